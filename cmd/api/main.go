package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/tarothouse/backend/internal/api/http"
	"github.com/tarothouse/backend/internal/api/http/handlers"
	"github.com/tarothouse/backend/internal/auth"
	"github.com/tarothouse/backend/internal/clock"
	"github.com/tarothouse/backend/internal/config"
	"github.com/tarothouse/backend/internal/domain"
	"github.com/tarothouse/backend/internal/events"
	"github.com/tarothouse/backend/internal/observability"
	"github.com/tarothouse/backend/internal/persistence"
	"github.com/tarothouse/backend/internal/repository"
	"github.com/tarothouse/backend/internal/service"
	"github.com/tarothouse/backend/internal/store"
	"github.com/tarothouse/backend/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("tarot-house: %v", err)
	}
}

func run() error {
	var envFile, migrationsDir string
	flagSet := pflag.NewFlagSet("tarot-house", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flagSet.StringVar(&migrationsDir, "migrations-dir", persistence.DefaultMigrationsDir, "directory of SQL migrations for the postgres store")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.Real()

	docs, closeStore, err := openStore(ctx, cfg, migrationsDir, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ledger, closeLedger, err := openSessions(ctx, cfg, clk, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	userTokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: cfg.Auth.UserJWTSecret,
		TTL:    cfg.Auth.UserTokenTTL(),
		Issuer: cfg.App.Name,
		Class:  domain.SubjectClassUser,
	}, clk)
	if err != nil {
		return fmt.Errorf("user token manager: %w", err)
	}
	adminTokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: cfg.Auth.AdminJWTSecret,
		TTL:    cfg.Auth.AdminTokenTTL(),
		Issuer: cfg.App.Name,
		Class:  domain.SubjectClassAdmin,
	}, clk)
	if err != nil {
		return fmt.Errorf("admin token manager: %w", err)
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.NewAuditWorker(logger).Start(dispatcher)

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	userRepo := repository.NewUserRepository(docs)

	userService := service.NewUserService(service.UserDependencies{
		Users:      userRepo,
		Hasher:     hasher,
		Sessions:   service.NewSessionIssuer(userTokens, ledger, dispatcher, clk, logger),
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger.Named("user"),
	})
	adminService := service.NewAdminService(service.AdminDependencies{
		Admins:     repository.NewAdminRepository(docs),
		Users:      userRepo,
		Ledger:     ledger,
		Hasher:     hasher,
		Sessions:   service.NewSessionIssuer(adminTokens, ledger, dispatcher, clk, logger),
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger.Named("admin"),
	})
	if err := adminService.EnsureAdmin(ctx, cfg.Admin.ID, cfg.Admin.Password); err != nil {
		return fmt.Errorf("seed administrator: %w", err)
	}

	metrics := observability.NewMetrics()
	mwCfg := httptransport.MiddlewareConfig{
		Logger:     logger,
		Metrics:    metrics,
		Clock:      clk,
		Timeout:    cfg.App.RequestTimeout(),
		Production: cfg.App.IsProduction(),
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.IsProduction(),
		ErrorHandler:          httptransport.ErrorHandler(mwCfg),
	})
	httptransport.RegisterMiddlewares(app, mwCfg)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics,
			handlers.Dependency{Name: "store", Pinger: docs},
			handlers.Dependency{Name: "sessions", Pinger: ledger},
		),
		Users:     handlers.NewUsersHandler(userService, clk),
		Admin:     handlers.NewAdminHandler(adminService, clk),
		UserGate:  auth.NewGate(userTokens, ledger),
		AdminGate: auth.NewGate(adminTokens, ledger),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	return app.ShutdownWithTimeout(shutdownTimeout)
}

func openStore(ctx context.Context, cfg *config.Config, migrationsDir string, logger *zap.Logger) (store.Store, func(), error) {
	indexes := repository.Indexes()
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := persistence.NewPostgresPool(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, migrationsDir, logger); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		return store.NewPostgres(pool, indexes...), pool.Close, nil
	case config.DriverDynamoDB:
		client, err := persistence.NewDynamoDB(ctx, cfg.DynamoDB, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.DynamoDB.Endpoint != "" {
			if err := persistence.EnsureTable(ctx, client, cfg.DynamoDB.TableName, logger); err != nil {
				return nil, nil, err
			}
		}
		return store.NewDynamoDB(client, cfg.DynamoDB.TableName, indexes...), func() {}, nil
	default:
		logger.Warn("using in-memory document store; data is lost on restart")
		return store.NewMemory(indexes...), func() {}, nil
	}
}

func openSessions(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *zap.Logger) (repository.SessionRepository, func(), error) {
	if cfg.Sessions.Driver != config.DriverRedis {
		return repository.NewMemorySessionRepository(clk), func() {}, nil
	}
	client, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewRedisSessionRepository(client, clk), func() { _ = client.Close() }, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
