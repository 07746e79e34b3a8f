package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"battle-arena"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Arena    Arena
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds task-store and cache configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing and auth.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
}

// Arena groups battle gameplay tuning: 60 second rounds, 7 second
// disconnect window, stakes of 100/500/1000 coins by default.
type Arena struct {
	Stakes              []int64       `env:"BATTLE_STAKES" envSeparator:"," envDefault:"100,500,1000"`
	RoundDuration       time.Duration `env:"BATTLE_ROUND_DURATION" envDefault:"60s"`
	DisconnectThreshold time.Duration `env:"BATTLE_DISCONNECT_THRESHOLD" envDefault:"7s"`
	InspectFee          int64         `env:"BATTLE_INSPECT_FEE" envDefault:"1000"`
	TaskTTL             time.Duration `env:"BATTLE_TASK_TTL" envDefault:"2m"`
	LeaderboardSize     int           `env:"BATTLE_LEADERBOARD_SIZE" envDefault:"10"`
	LeaderboardCacheTTL time.Duration `env:"BATTLE_LEADERBOARD_CACHE_TTL" envDefault:"15s"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Arena.Stakes) == 0 {
		return nil, fmt.Errorf("BATTLE_STAKES must list at least one stake")
	}
	for _, s := range cfg.Arena.Stakes {
		if s <= 0 {
			return nil, fmt.Errorf("BATTLE_STAKES entries must be positive, got %d", s)
		}
	}
	return cfg, nil
}
