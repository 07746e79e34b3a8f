package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mathpets/battle-arena/internal/arena"
	"github.com/mathpets/battle-arena/internal/auth"
	"github.com/mathpets/battle-arena/internal/config"
	"github.com/mathpets/battle-arena/internal/db/repository"
	"github.com/mathpets/battle-arena/internal/leaderboard"
	"github.com/mathpets/battle-arena/internal/logging"
	"github.com/mathpets/battle-arena/internal/server"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server
}

// New bootstraps config, logger, Postgres, Redis, and the HTTP server.
// There are no background workers: match progress is driven entirely by
// incoming requests.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	store := repository.NewStore(pool)
	authMgr := auth.NewManager(auth.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		Issuer: cfg.Name,
	})

	taskStore := arena.NewRedisTaskStore(redisClient, cfg.Arena.TaskTTL)
	metrics := arena.NewMetrics(prometheus.DefaultRegisterer)

	arenaSvc := arena.NewService(store, taskStore, arena.Options{
		Stakes:              cfg.Arena.Stakes,
		RoundDuration:       cfg.Arena.RoundDuration,
		DisconnectThreshold: cfg.Arena.DisconnectThreshold,
		InspectFee:          cfg.Arena.InspectFee,
	}, metrics, logger)

	lbSvc := leaderboard.NewService(store, redisClient, logger, leaderboard.ServiceOptions{
		TopN:     cfg.Arena.LeaderboardSize,
		CacheTTL: cfg.Arena.LeaderboardCacheTTL,
	})

	arenaHandlers := arena.NewHTTPHandlers(arenaSvc)
	lbHandler := leaderboard.NewHTTPHandler(lbSvc, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, authMgr, arenaHandlers, lbHandler)

	return &Application{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		http:   apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
