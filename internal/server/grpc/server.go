package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/guardkeeper/internal/logging"
	"github.com/dmitrijs2005/guardkeeper/internal/server/auth"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "recovery.v1.RecoveryService"

// recoveryServer lists the RPCs of recovery.v1.RecoveryService. Every
// request and response is a google.protobuf.Struct.
type recoveryServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAccounts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateNomination(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListNominations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteNomination(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListGuardianNominations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateNominationStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListGuardianAccounts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAccountGuardians(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveAccountGuardian(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetGuardianSettings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateGuardianSettings(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type rpc func(recoveryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unary adapts an rpc to the handler shape grpc.MethodDesc expects.
func unary(method string, call rpc) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(recoveryServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*structpb.Struct))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*recoveryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unary("Ping", recoveryServer.Ping)},
		{MethodName: "CreateAccount", Handler: unary("CreateAccount", recoveryServer.CreateAccount)},
		{MethodName: "GetAccount", Handler: unary("GetAccount", recoveryServer.GetAccount)},
		{MethodName: "ListAccounts", Handler: unary("ListAccounts", recoveryServer.ListAccounts)},
		{MethodName: "UpdateAccount", Handler: unary("UpdateAccount", recoveryServer.UpdateAccount)},
		{MethodName: "CreateNomination", Handler: unary("CreateNomination", recoveryServer.CreateNomination)},
		{MethodName: "ListNominations", Handler: unary("ListNominations", recoveryServer.ListNominations)},
		{MethodName: "DeleteNomination", Handler: unary("DeleteNomination", recoveryServer.DeleteNomination)},
		{MethodName: "ListGuardianNominations", Handler: unary("ListGuardianNominations", recoveryServer.ListGuardianNominations)},
		{MethodName: "UpdateNominationStatus", Handler: unary("UpdateNominationStatus", recoveryServer.UpdateNominationStatus)},
		{MethodName: "ListGuardianAccounts", Handler: unary("ListGuardianAccounts", recoveryServer.ListGuardianAccounts)},
		{MethodName: "ListAccountGuardians", Handler: unary("ListAccountGuardians", recoveryServer.ListAccountGuardians)},
		{MethodName: "RemoveAccountGuardian", Handler: unary("RemoveAccountGuardian", recoveryServer.RemoveAccountGuardian)},
		{MethodName: "GetGuardianSettings", Handler: unary("GetGuardianSettings", recoveryServer.GetGuardianSettings)},
		{MethodName: "UpdateGuardianSettings", Handler: unary("UpdateGuardianSettings", recoveryServer.UpdateGuardianSettings)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "recovery/v1/recovery.proto",
}

// Services bundles the business logic the transport delegates to.
type Services struct {
	Accounts    AccountService
	Nominations NominationService
	Guardians   GuardianService
	Settings    SettingsService
}

type GRPCServer struct {
	address     string
	logger      logging.Logger
	accounts    AccountService
	nominations NominationService
	guardians   GuardianService
	settings    SettingsService
	resolver    auth.Resolver
	limiter     *accountLimiter
}

// NewGRPCServer builds a server listening on a. Authenticated calls are
// throttled to limit requests per second per account with the given burst;
// a non-positive limit disables throttling.
func NewGRPCServer(a string, l logging.Logger, svc Services, resolver auth.Resolver, limit float64, burst int) *GRPCServer {
	return &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		accounts:    svc.Accounts,
		nominations: svc.Nominations,
		guardians:   svc.Guardians,
		settings:    svc.Settings,
		resolver:    resolver,
		limiter:     newAccountLimiter(rate.Limit(limit), burst),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor, s.rateLimitInterceptor))
	srv.RegisterService(&serviceDesc, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
