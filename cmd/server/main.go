package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/realshaunoneill/servicetracker/internal/app"
	"github.com/realshaunoneill/servicetracker/internal/config"
	"github.com/realshaunoneill/servicetracker/internal/database"
	"github.com/realshaunoneill/servicetracker/internal/domain"
	"github.com/realshaunoneill/servicetracker/internal/logging"
	"github.com/realshaunoneill/servicetracker/internal/redis"
	"github.com/realshaunoneill/servicetracker/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrationsWithLock(ctx, db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db
}

func setupRedis(cfg *config.Config) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	var (
		pool     *pgxpool.Pool
		catalog  domain.ServiceCatalog
		recorder domain.SessionRecorder
		accounts domain.AccountService
		gate     domain.AccessGate
	)

	if cfg.DatabaseURL == "" {
		slog.Info("No database URL specified, only logging new sessions to console")
		recorder = app.NewReconciler(nil, nil, clock, true)
	} else {
		pool = setupDB(cfg)
		defer pool.Close()

		serviceRepo := database.NewServiceRepo(pool)
		accountRepo := database.NewAccountRepo(pool)

		var finder domain.ServiceFinder = serviceRepo
		if cfg.RedisURL != "" {
			rdb := setupRedis(cfg)
			defer rdb.Close()
			finder = redis.NewServiceCache(rdb, serviceRepo)
			slog.Info("Redis service cache enabled")
		}

		if cfg.Debug {
			slog.Info("Debug mode enabled, session reports are logged but not persisted")
		}

		recorder = app.NewReconciler(finder, serviceRepo, clock, cfg.Debug)
		catalog = app.NewRegistry(serviceRepo, clock)
		accounts = app.NewAccounts(accountRepo, clock, cfg.RegistrationEnabled)
		gate = app.NewGate(accountRepo)
	}

	srv, err := server.NewServer(cfg, catalog, recorder, accounts, gate, pool)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv)

	slog.Info("Starting server", "port", cfg.Port, "dashboard", cfg.DashboardEnabled)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
