package sequence

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/rs/zerolog/log"
)

// RoundGetter resolves the round whose sequence is being read.
type RoundGetter interface {
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
}

// Service exposes sequence reads over HTTP.
type Service struct {
	app    *App
	rounds RoundGetter
}

// NewService creates a new sequence Service
func NewService(app *App, rounds RoundGetter) *Service {
	return &Service{app: app, rounds: rounds}
}

// RegisterRoutes registers sequence routes with an HTTP mux
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rounds/{id}/sequence", s.handleEntries)
	mux.HandleFunc("GET /api/rounds/{id}/sequence/window", s.handleWindow)
}

func (s *Service) handleEntries(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid round id", http.StatusBadRequest)
		return
	}

	entries, err := s.app.EntriesFor(r.Context(), roundID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"entries": entries}); err != nil {
		log.Error().Err(err).Msg("failed to encode sequence response")
	}
}

func (s *Service) handleWindow(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid round id", http.StatusBadRequest)
		return
	}

	round, err := s.rounds.GetRound(r.Context(), roundID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	window, err := s.app.WindowFor(r.Context(), round)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(window); err != nil {
		log.Error().Err(err).Msg("failed to encode window response")
	}
}
