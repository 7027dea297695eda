package queue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Service exposes production queue operations over HTTP.
type Service struct {
	app *App
}

// NewService creates a new queue Service
func NewService(app *App) *Service {
	return &Service{app: app}
}

type submitItemRequest struct {
	TeamID   uuid.UUID `json:"team_id"`
	RoundID  uuid.UUID `json:"round_id"`
	FlavorID uuid.UUID `json:"flavor_id"`
}

type evaluateItemRequest struct {
	Result models.ItemResult `json:"result"`
	Reason string            `json:"reason,omitempty"`
	Judge  string            `json:"judge"`
}

// RegisterRoutes registers queue routes with an HTTP mux
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/items", s.handleSubmit)
	mux.HandleFunc("POST /api/items/{id}/evaluate", s.handleEvaluate)
	mux.HandleFunc("GET /api/rounds/{id}/items", s.handleListForRound)
	mux.HandleFunc("GET /api/rounds/{id}/items/ready", s.handleListReady)
}

func (s *Service) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := s.app.Submit(r.Context(), SubmitItemRequest{
		TeamID:   req.TeamID,
		RoundID:  req.RoundID,
		FlavorID: req.FlavorID,
	})
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeItem(w, http.StatusCreated, item)
}

func (s *Service) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	var req evaluateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := s.app.Evaluate(r.Context(), EvaluateItemRequest{
		ItemID: itemID,
		Result: req.Result,
		Reason: req.Reason,
		Judge:  req.Judge,
	})
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeItem(w, http.StatusOK, item)
}

func (s *Service) handleListForRound(w http.ResponseWriter, r *http.Request) {
	s.list(w, r, s.app.ListForRound)
}

func (s *Service) handleListReady(w http.ResponseWriter, r *http.Request) {
	s.list(w, r, s.app.ListReady)
}

func (s *Service) list(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, roundID uuid.UUID) ([]models.ProductionItem, error)) {
	roundID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid round id", http.StatusBadRequest)
		return
	}
	items, err := fetch(r.Context(), roundID)
	if err != nil {
		writeQueueError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"items": items}); err != nil {
		log.Error().Err(err).Msg("failed to encode items response")
	}
}

func writeItem(w http.ResponseWriter, status int, item *models.ProductionItem) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"item": item}); err != nil {
		log.Error().Err(err).Msg("failed to encode item response")
	}
}

func writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrQuotaExceeded), errors.Is(err, ErrRoundNotAccepting), errors.Is(err, ErrAlreadyEvaluated):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
