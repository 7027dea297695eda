package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service is the round gateway service that handles WebSocket connections and event broadcasting
type Service struct {
	connectionManager *ConnectionManager
	stateManager      *RoundStateManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
}

// Config holds configuration for the round gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig

	// WarningThresholdsSec is handed to screens in the round snapshot so
	// their countdowns arm the same warning marks.
	WarningThresholdsSec []int
}

// DefaultConfig returns default configuration for the round gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig:     DefaultConnectionConfig(),
		JetStreamConfig:      DefaultJetStreamConsumerConfig(),
		WarningThresholdsSec: []int{60, 30, 10},
	}
}

// NewService creates a new round gateway service
func NewService(config Config) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	stateManager := NewRoundStateManager()

	wsHandler := NewWebSocketHandler(connectionManager, stateManager, config.WarningThresholdsSec)

	eventConsumer, err := NewEventConsumer(connectionManager, stateManager, config.JetStreamConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	return &Service{
		connectionManager: connectionManager,
		stateManager:      stateManager,
		wsHandler:         wsHandler,
		eventConsumer:     eventConsumer,
	}, nil
}

// Start begins the gateway service
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting round gateway service")

	go s.connectionManager.Start(ctx)

	go func() {
		if err := s.eventConsumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("round gateway service shutting down")
	return s.Stop()
}

// Stop gracefully shuts down the gateway service
func (s *Service) Stop() error {
	if err := s.eventConsumer.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop event consumer")
	}

	// Connection manager stops when the context is cancelled
	log.Info().Msg("round gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("round gateway routes registered")
}

// HandleRoundConnection is a convenience method that delegates to the WebSocket handler
func (s *Service) HandleRoundConnection(w http.ResponseWriter, r *http.Request) {
	s.wsHandler.HandleRoundConnection(w, r)
}

// BroadcastEvent allows manual event broadcasting (useful for testing)
func (s *Service) BroadcastEvent(roundID uuid.UUID, event *RoundEvent) {
	s.connectionManager.BroadcastToRound(roundID, event)
}
