package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mathpets/battle-arena/internal/arena"
	"github.com/mathpets/battle-arena/internal/auth"
	"github.com/mathpets/battle-arena/internal/config"
	"github.com/mathpets/battle-arena/internal/leaderboard"
)

// NewHTTPServer wires health, metrics, and the authenticated battle routes.
func NewHTTPServer(
	cfg *config.App,
	logger zerolog.Logger,
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	authMgr *auth.Manager,
	arenaHandlers *arena.HTTPHandlers,
	lbHandler *leaderboard.HTTPHandler,
) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := pingDependencies(r.Context(), pool, redisClient); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	// Everything below requires a bearer token.
	authed := http.NewServeMux()
	authed.HandleFunc("POST /v1/queue/join", arenaHandlers.JoinQueue)
	authed.HandleFunc("POST /v1/match/{id}/ping", arenaHandlers.Ping)
	authed.HandleFunc("GET /v1/match/{id}/state", arenaHandlers.State)
	authed.HandleFunc("GET /v1/match/{id}/task", arenaHandlers.Task)
	authed.HandleFunc("POST /v1/match/{id}/answer", arenaHandlers.Answer)
	authed.HandleFunc("POST /v1/match/{id}/leave", arenaHandlers.Leave)
	authed.HandleFunc("POST /v1/match/{id}/finish", arenaHandlers.Finish)
	authed.HandleFunc("GET /v1/leaderboard", lbHandler.HandleGet)
	authed.HandleFunc("POST /v1/inspect", arenaHandlers.Inspect)

	mux.Handle("/v1/", auth.Middleware(authMgr, logger)(authed))

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redisClient *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	return redisClient.Ping(ctx).Err()
}
