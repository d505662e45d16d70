// Package server initializes and runs the guardian recovery service.
// It opens the database, applies migrations, wires the services and serves
// them over gRPC until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/guardkeeper/internal/logging"
	"github.com/dmitrijs2005/guardkeeper/internal/server/auth"
	"github.com/dmitrijs2005/guardkeeper/internal/server/config"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/guardkeeper/internal/server/services"
	"github.com/dmitrijs2005/guardkeeper/internal/server/wallet"
	_ "github.com/jackc/pgx/v5/stdlib"

	gs "github.com/dmitrijs2005/guardkeeper/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	services gs.Services
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, slog.LevelInfo)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	wallets, err := wallet.NewCounterfactual(c.WalletFactoryAddress, c.WalletInitCodeHash)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("wallet init error: %w", err)
	}

	svc := gs.Services{
		Accounts:    services.NewAccountService(db, m, wallets, c),
		Nominations: services.NewNominationService(db, m, c),
		Guardians:   services.NewGuardianService(db, m, c),
		Settings:    services.NewSettingsService(db, m, c),
	}

	return &App{config: c, logger: logger, db: db, services: svc}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.services,
		auth.NewJWTResolver([]byte(app.config.SecretKey)), app.config.RateLimit, app.config.RateBurst)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
	app.logger.Info(ctx, "App stopped")
}
