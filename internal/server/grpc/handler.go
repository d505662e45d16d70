package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/guardkeeper/internal/common"
	"github.com/dmitrijs2005/guardkeeper/internal/server/models"
	"github.com/dmitrijs2005/guardkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type AccountService interface {
	Create(ctx context.Context, email string, paymasterTokens []string) (*services.CreatedAccount, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Find(ctx context.Context, f services.AccountFilter) ([]*models.Account, error)
	Update(ctx context.Context, accountID string, walletAddress, eoaAddress *string) error
}

type NominationService interface {
	Create(ctx context.Context, accountID, email string) (*models.Nomination, error)
	UpdateStatus(ctx context.Context, guardianAccountID, nominationID, requested string) (*models.Nomination, error)
	Delete(ctx context.Context, accountID, nominationID string) error
	ListForAccount(ctx context.Context, accountID string, f services.NominationFilter) ([]*models.Nomination, error)
	ListForGuardian(ctx context.Context, accountID string, f services.NominationFilter) ([]*models.Nomination, error)
}

type GuardianService interface {
	ListAccountGuardians(ctx context.Context, accountID string, f services.GuardianFilter) ([]models.AccountGuardianView, error)
	RemoveAccountGuardian(ctx context.Context, accountID, guardianID string) error
	ListAccountsForGuardian(ctx context.Context, accountID, filterAccountID string) ([]models.GuardianAccountView, error)
}

type SettingsService interface {
	Get(ctx context.Context, accountID string) (*services.SettingsView, error)
	Update(ctx context.Context, accountID string, strategy models.SigningStrategy, guardianIDs []string) (*services.SettingsView, error)
}

// respond converts m to a Struct, or maps err to a status.
func (s *GRPCServer) respond(ctx context.Context, method string, m map[string]any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, s.toStatus(ctx, method, err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		s.logger.Error(ctx, "encode response", "method", method, "error", err.Error())
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// toStatus maps a service error to a gRPC status. Storage and internal
// causes are logged and replaced by a generic message.
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, common.ErrorNotFound):
		code = codes.NotFound
	case errors.Is(err, common.ErrorInvalidInput), errors.Is(err, common.ErrorInvalidPolicy):
		code = codes.InvalidArgument
	case errors.Is(err, common.ErrorInvalidState), errors.Is(err, common.ErrorInvalidTransition):
		code = codes.FailedPrecondition
	case errors.Is(err, common.ErrorUnauthorized):
		code = codes.Unauthenticated
	case common.IsRetryable(err):
		s.logger.Warn(ctx, "call failed", "method", method, "kind", "retryable", "error", err.Error())
		return status.Error(codes.Unavailable, "storage unavailable, retry")
	case errors.Is(err, common.ErrorStorage):
		s.logger.Error(ctx, "call failed", "method", method, "kind", "storage", "error", err.Error())
		return status.Error(codes.Internal, "storage error")
	default:
		s.logger.Error(ctx, "call failed", "method", method, "kind", "internal", "error", err.Error())
		return status.Error(codes.Internal, "internal error")
	}

	s.logger.Info(ctx, "call rejected", "method", method, "kind", code.String(), "error", err.Error())
	return status.Error(code, err.Error())
}

func (s *GRPCServer) caller(ctx context.Context) (string, error) {
	id, ok := accountIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return id, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	return s.respond(ctx, "Ping", map[string]any{"status": "OK"}, nil)

}

func (s *GRPCServer) CreateAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	tokens, err := stringList(req, "paymaster_tokens")
	if err != nil {
		return nil, s.toStatus(ctx, "CreateAccount", err)
	}

	created, err := s.accounts.Create(ctx, stringField(req, "email"), tokens)
	if err != nil {
		return nil, s.toStatus(ctx, "CreateAccount", err)
	}

	s.logger.Info(ctx, "account created", "account_id", created.AccountID)
	return s.respond(ctx, "CreateAccount", map[string]any{
		"account_id":     created.AccountID,
		"access_token":   created.AccessToken,
		"wallet_address": created.WalletAddress,
	}, nil)

}

func (s *GRPCServer) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	acc, err := s.accounts.GetByEmail(ctx, stringField(req, "email"))
	if err != nil {
		return nil, s.toStatus(ctx, "GetAccount", err)
	}
	return s.respond(ctx, "GetAccount", accountMap(acc), nil)

}

func (s *GRPCServer) ListAccounts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	if _, err := s.caller(ctx); err != nil {
		return nil, err
	}

	accs, err := s.accounts.Find(ctx, services.AccountFilter{
		WalletAddress: stringField(req, "wallet_address"),
		EOAAddress:    stringField(req, "eoa_address"),
		Email:         stringField(req, "email"),
	})
	if err != nil {
		return nil, s.toStatus(ctx, "ListAccounts", err)
	}
	return s.respond(ctx, "ListAccounts", map[string]any{"accounts": accountList(accs)}, nil)

}

func (s *GRPCServer) UpdateAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	accountID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	wallet, err := optionalString(req, "wallet_address")
	if err != nil {
		return nil, s.toStatus(ctx, "UpdateAccount", err)
	}
	eoa, err := optionalString(req, "eoa_address")
	if err != nil {
		return nil, s.toStatus(ctx, "UpdateAccount", err)
	}

	err = s.accounts.Update(ctx, accountID, wallet, eoa)
	return s.respond(ctx, "UpdateAccount", map[string]any{"updated": true}, err)

}

func (s *GRPCServer) CreateNomination(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	accountID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.nominations.Create(ctx, accountID, stringField(req, "email"))
	if err != nil {
		return nil, s.toStatus(ctx, "CreateNomination", err)
	}

	s.logger.Info(ctx, "nomination created", "nomination_id", n.ID, "account_id", accountID)
	return s.respond(ctx, "CreateNomination", nominationMap(n), nil)

}

func (s *GRPCServer) ListNominations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	accountID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	ns, err := s.nominations.ListForAccount(ctx, accountID, services.NominationFilter{
		ID:     stringField(req, "id"),
		Status: stringField(req, "status"),
		Email:  stringField(req, "email"),
	})
	if err != nil {
		return nil, s.toStatus(ctx, "ListNominations", err)
	}
	return s.respond(ctx, "ListNominations", map[string]any{"nominations": nominationList(ns)}, nil)

}

func (s *GRPCServer) DeleteNomination(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	accountID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	err = s.nominations.Delete(ctx, accountID, stringField(req, "id"))
	return s.respond(ctx, "DeleteNomination", map[string]any{"deleted": true}, err)

}

func (s *GRPCServer) ListGuardianNominations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	accountID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	ns, err := s.nominations.ListForGuardian(ctx, accountID, services.NominationFilter{
		ID:     stringField(req, "id"),
		Status: stringField(req, "status"),
	})
	if err != nil {
		return nil, s.toStatus(ctx, "ListGuardianNominations", err)
	}
	return s.respond(ctx, "ListGuardianNominations", map[string]any{"nominations": nominationList(ns)}, nil)

}

func (s *GRPCServer) UpdateNominationStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	accountID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.nominations.UpdateStatus(ctx, accountID, stringField(req, "id"), stringField(req, "status"))
	if err != nil {
		return nil, s.toStatus(ctx, "UpdateNominationStatus", err)
	}

	s.logger.Info(ctx, "nomination answered", "nomination_id", n.ID, "status", string(n.Status))
	return s.respond(ctx, "UpdateNominationStatus", nominationMap(n), nil)

}

func (s *GRPCServer) ListGuardianAccounts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	accountID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	accounts, err := s.guardians.ListAccountsForGuardian(ctx, accountID, stringField(req, "account_id"))
	if err != nil {
		return nil, s.toStatus(ctx, "ListGuardianAccounts", err)
	}
	return s.respond(ctx, "ListGuardianAccounts", map[string]any{"accounts": guardianAccountList(accounts)}, nil)

}

func (s *GRPCServer) ListAccountGuardians(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	accountID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	views, err := s.guardians.ListAccountGuardians(ctx, accountID, services.GuardianFilter{
		GuardianID: stringField(req, "guardian_id"),
		Status:     stringField(req, "status"),
	})
	if err != nil {
		return nil, s.toStatus(ctx, "ListAccountGuardians", err)
	}
	return s.respond(ctx, "ListAccountGuardians", map[string]any{"guardians": accountGuardianList(views)}, nil)

}

func (s *GRPCServer) RemoveAccountGuardian(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	accountID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	guardianID := stringField(req, "guardian_id")
	err = s.guardians.RemoveAccountGuardian(ctx, accountID, guardianID)
	return s.respond(ctx, "RemoveAccountGuardian", map[string]any{"guardian_id": guardianID}, err)

}

func (s *GRPCServer) GetGuardianSettings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	accountID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.settings.Get(ctx, accountID)
	if err != nil {
		return nil, s.toStatus(ctx, "GetGuardianSettings", err)
	}
	return s.respond(ctx, "GetGuardianSettings", settingsMap(view), nil)

}

func (s *GRPCServer) UpdateGuardianSettings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	accountID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := stringList(req, "guardian_ids")
	if err != nil {
		return nil, s.toStatus(ctx, "UpdateGuardianSettings", err)
	}

	view, err := s.settings.Update(ctx, accountID, models.SigningStrategy(stringField(req, "signers")), ids)
	if err != nil {
		return nil, s.toStatus(ctx, "UpdateGuardianSettings", err)
	}

	s.logger.Info(ctx, "guardian settings updated", "account_id", accountID, "signers", string(view.Strategy))
	return s.respond(ctx, "UpdateGuardianSettings", settingsMap(view), nil)

}
