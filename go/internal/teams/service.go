package teams

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Service exposes team operations over HTTP.
type Service struct {
	app *App
}

// NewService creates a new teams Service
func NewService(app *App) *Service {
	return &Service{app: app}
}

type createTeamRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// RegisterRoutes registers team routes with an HTTP mux
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/teams", s.handleCreate)
	mux.HandleFunc("GET /api/teams", s.handleList)
	mux.HandleFunc("GET /api/teams/{id}", s.handleGet)
	mux.HandleFunc("DELETE /api/teams/{id}", s.handleDelete)
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	team, err := s.app.CreateTeam(r.Context(), req.Name, req.Color)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeTeam(w, http.StatusCreated, team)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.ListTeams(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"teams": list}); err != nil {
		log.Error().Err(err).Msg("failed to encode teams response")
	}
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid team id", http.StatusBadRequest)
		return
	}

	team, err := s.app.GetTeam(r.Context(), id)
	if err != nil {
		writeTeamError(w, err)
		return
	}
	writeTeam(w, http.StatusOK, team)
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid team id", http.StatusBadRequest)
		return
	}

	if err := s.app.DeleteTeam(r.Context(), id); err != nil {
		writeTeamError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeTeam(w http.ResponseWriter, status int, team *models.Team) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"team": team}); err != nil {
		log.Error().Err(err).Msg("failed to encode team response")
	}
}

func writeTeamError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrTeamNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}
