package main

import (
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/mvcampos/gelateria/go/internal/flavors"
	"github.com/mvcampos/gelateria/go/internal/gateway"
	"github.com/mvcampos/gelateria/go/internal/outbox"
	"github.com/mvcampos/gelateria/go/internal/queue"
	"github.com/mvcampos/gelateria/go/internal/rejector"
	"github.com/mvcampos/gelateria/go/internal/rounds"
	"github.com/mvcampos/gelateria/go/internal/sequence"
	"github.com/mvcampos/gelateria/go/internal/teams"
)

type Services struct {
	Rounds   *rounds.Service
	Queue    *queue.Service
	Sequence *sequence.Service
	Flavors  *flavors.Service
	Teams    *teams.Service
	Sweeper  *rejector.Sweeper
	Gateway  *gateway.Service
}

func setupServices(pool *pgxpool.Pool, db *sql.DB, config *Config) (*Services, error) {
	// Repository layer -> app layer -> service layer
	clock := clockwork.NewRealClock()

	// Outbox: every domain mutation lands here before it reaches NATS
	outboxRepo := outbox.NewRepository(db)
	outboxApp := outbox.NewApp(outboxRepo)

	// Flavors
	flavorsRepo := flavors.NewRepository(pool)
	flavorsApp := flavors.NewApp(flavorsRepo)
	flavorsService := flavors.NewService(flavorsApp)

	// Teams
	teamsRepo := teams.NewRepository(pool)
	teamsApp := teams.NewApp(teamsRepo)
	teamsService := teams.NewService(teamsApp)

	// Flavor sequences
	sequenceRepo := sequence.NewRepository(pool)
	sequenceApp := sequence.NewApp(sequenceRepo, flavorsApp,
		sequence.SelectionPolicy(config.Sequence.Policy), clock)

	// Rounds
	roundsRepo := rounds.NewRepository(pool)
	roundsApp := rounds.NewApp(roundsRepo, outboxApp, sequenceApp, clock)
	roundsService := rounds.NewService(roundsApp)

	sequenceService := sequence.NewService(sequenceApp, roundsApp)

	// Production queue
	queueRepo := queue.NewRepository(pool)
	queueApp := queue.NewApp(queueRepo, roundsApp, outboxApp, config.Round.TeamQuota, clock)
	queueService := queue.NewService(queueApp)

	// Auto-timeout rejector
	rejectorRepo := rejector.NewRepository(pool)
	sweeper := rejector.NewSweeper(rejectorRepo, queueRepo, outboxApp,
		time.Duration(config.Rejector.GraceWindowSec)*time.Second)

	// Round gateway (WebSocket fan-out)
	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.JetStreamConfig.URL = getEnv("NATS_URL", gatewayConfig.JetStreamConfig.URL)
	gatewayConfig.WarningThresholdsSec = config.Round.WarningThresholdsSec
	gatewayService, err := gateway.NewService(gatewayConfig)
	if err != nil {
		return nil, err
	}

	return &Services{
		Rounds:   roundsService,
		Queue:    queueService,
		Sequence: sequenceService,
		Flavors:  flavorsService,
		Teams:    teamsService,
		Sweeper:  sweeper,
		Gateway:  gatewayService,
	}, nil
}
