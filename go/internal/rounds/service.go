package rounds

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Service exposes round operations over HTTP.
type Service struct {
	app *App
}

// NewService creates a new rounds Service
func NewService(app *App) *Service {
	return &Service{app: app}
}

type createRoundRequest struct {
	TimeLimitSec     int `json:"time_limit_sec"`
	PlannedItemCount int `json:"planned_item_count"`
}

type extendRoundRequest struct {
	DeltaMin int `json:"delta_min"`
}

type roundResponse struct {
	Round        *models.Round `json:"round"`
	RemainingSec int           `json:"remaining_sec"`
}

// RegisterRoutes registers round routes with an HTTP mux
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rounds", s.handleCreate)
	mux.HandleFunc("GET /api/rounds/current", s.handleCurrent)
	mux.HandleFunc("GET /api/rounds/{id}", s.handleGet)
	mux.HandleFunc("POST /api/rounds/{id}/start", s.handleStart)
	mux.HandleFunc("POST /api/rounds/{id}/pause", s.handlePause)
	mux.HandleFunc("POST /api/rounds/{id}/finish", s.handleFinish)
	mux.HandleFunc("POST /api/rounds/{id}/extend", s.handleExtend)
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	round, err := s.app.CreateRound(r.Context(), req.TimeLimitSec, req.PlannedItemCount)
	if err != nil {
		writeRoundError(w, err)
		return
	}
	s.writeRound(w, http.StatusCreated, round)
}

func (s *Service) handleCurrent(w http.ResponseWriter, r *http.Request) {
	round, err := s.app.GetCurrentRound(r.Context())
	if err != nil {
		writeRoundError(w, err)
		return
	}
	s.writeRound(w, http.StatusOK, round)
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid round id", http.StatusBadRequest)
		return
	}
	round, err := s.app.GetRound(r.Context(), id)
	if err != nil {
		writeRoundError(w, err)
		return
	}
	s.writeRound(w, http.StatusOK, round)
}

func (s *Service) handleStart(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.app.StartRound)
}

func (s *Service) handlePause(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.app.PauseRound)
}

func (s *Service) handleFinish(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.app.FinishRound)
}

func (s *Service) handleExtend(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid round id", http.StatusBadRequest)
		return
	}

	var req extendRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	round, err := s.app.ExtendRound(r.Context(), id, req.DeltaMin)
	if err != nil {
		writeRoundError(w, err)
		return
	}
	s.writeRound(w, http.StatusOK, round)
}

func (s *Service) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) (*models.Round, error)) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid round id", http.StatusBadRequest)
		return
	}
	round, err := op(r.Context(), id)
	if err != nil {
		writeRoundError(w, err)
		return
	}
	s.writeRound(w, http.StatusOK, round)
}

func (s *Service) writeRound(w http.ResponseWriter, status int, round *models.Round) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := roundResponse{Round: round, RemainingSec: s.app.RemainingSeconds(round)}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to encode round response")
	}
}

func writeRoundError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRoundNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrRoundConflict), errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
