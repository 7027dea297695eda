package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mvcampos/gelateria/go/internal/dbconfig"
	"github.com/mvcampos/gelateria/go/internal/outbox"
	"github.com/mvcampos/gelateria/go/internal/queue"
	"github.com/mvcampos/gelateria/go/internal/rejector"
)

func main() {
	// load .env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// configure zerolog console output and level
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	cfg := dbconfig.NewConfigFromEnv()
	dsn := cfg.DSN()

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("create connection pool")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	// The outbox rides on database/sql
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to database")

	grace := rejector.DefaultGraceWindow
	if gw := os.Getenv("GRACE_WINDOW"); gw != "" {
		if d, err := time.ParseDuration(gw); err == nil {
			grace = d
		}
	}

	outboxApp := outbox.NewApp(outbox.NewRepository(db))
	sweeper := rejector.NewSweeper(
		rejector.NewRepository(pool),
		queue.NewRepository(pool),
		outboxApp,
		grace,
	)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Dur("grace_window", grace).Msg("starting timeout sweeper")
		errCh <- sweeper.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("sweeper stopped with error")
		}
	}

	log.Info().Msg("timeout sweeper shutdown complete")
}
