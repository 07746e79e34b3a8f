package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/mathpets/battle-arena/internal/config"
	"github.com/mathpets/battle-arena/internal/logging"
)

// Usage: migrator [-dir db/migrations] [up|down|status|version]
func main() {
	dir := flag.String("dir", "db/migrations", "directory containing migration files")
	envFile := flag.String("env-file", "configs/.env", "env file loaded outside production")
	flag.Parse()

	logger := logging.New("battle-arena-migrator", os.Getenv("APP_ENV"))

	if err := run(logger, *dir, *envFile, flag.Arg(0)); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
}

func run(logger zerolog.Logger, dir, envFile, command string) error {
	if command == "" {
		command = "up"
	}
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load(envFile)
	}

	var pg config.Postgres
	if err := env.Parse(&pg); err != nil {
		return fmt.Errorf("parse postgres config: %w", err)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, pg.Port, pg.User, pg.Password, pg.Database, pg.SSLMode)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	logger.Info().
		Str("database", pg.Database).
		Str("dir", dir).
		Str("command", command).
		Msg("running migrations")

	switch command {
	case "up":
		return goose.Up(db, dir)
	case "down":
		return goose.Down(db, dir)
	case "status":
		return goose.Status(db, dir)
	case "version":
		return goose.Version(db, dir)
	default:
		return fmt.Errorf("unknown command %q, want up, down, status, or version", command)
	}
}
