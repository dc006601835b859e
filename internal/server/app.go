// Package server wires configuration, storage, the registration gRPC
// service and the WebSocket handshake endpoint into one process.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/srpauth/internal/logging"
	"github.com/dmitrijs2005/srpauth/internal/server/auth"
	"github.com/dmitrijs2005/srpauth/internal/server/config"
	"github.com/dmitrijs2005/srpauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/srpauth/internal/server/services"
	"github.com/dmitrijs2005/srpauth/internal/server/ws"
	"github.com/dmitrijs2005/srpauth/internal/srp"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/srpauth/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	params      *srp.Params
	userService *services.UserService
	issuer      *auth.Issuer
}

// NewApp opens the store selected by c and prepares the services. Logs go
// to w as JSON.
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	logger := logging.New(w, c.LogLevel, "json")
	params := srp.DefaultParams()

	if c.UsesDefaultSecret() {
		logger.Warn(ctx, "access tokens are signed with the default secret key, set -s in production")
	}

	var (
		db *sql.DB
		rm repomanager.RepositoryManager
	)
	if c.DatabaseDSN != "" {
		var err error
		db, err = repomanager.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		rm = repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	} else {
		logger.Warn(ctx, "no database configured, users are kept in memory")
		rm = repomanager.NewMemoryRepositoryManager()
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		params:      params,
		userService: services.NewUserService(db, rm, params),
		issuer:      auth.NewIssuer([]byte(c.SecretKey), c.AccessTokenValidityDuration),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", sig.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves gRPC and HTTP until a signal arrives, ctx is done, or either
// listener fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	g, gctx := errgroup.WithContext(ctx)

	grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.issuer)

	handler := ws.NewHandler(gctx, app.params, app.userService, app.issuer, app.logger, app.config.HandshakeTimeout)
	httpServer := ws.NewHTTPServer(app.config.EndpointAddrHTTP, ws.NewRouter(handler, app.logger), app.logger)

	g.Go(func() error { return grpcServer.Run(gctx) })
	g.Go(func() error { return httpServer.Run(gctx) })

	err := g.Wait()
	handler.Wait()

	if app.db != nil {
		if cerr := app.db.Close(); cerr != nil {
			app.logger.Error(context.Background(), "closing db", "error", cerr)
		}
	}

	app.logger.Info(context.Background(), "App stopped")
	return err
}
