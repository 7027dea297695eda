package flavors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/mvcampos/gelateria/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Service exposes flavor catalog operations over HTTP.
type Service struct {
	app *App
}

// NewService creates a new flavors Service
func NewService(app *App) *Service {
	return &Service{app: app}
}

type createFlavorRequest struct {
	Name string `json:"name"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// RegisterRoutes registers flavor routes with an HTTP mux
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/flavors", s.handleCreate)
	mux.HandleFunc("GET /api/flavors", s.handleList)
	mux.HandleFunc("GET /api/flavors/{id}", s.handleGet)
	mux.HandleFunc("PUT /api/flavors/{id}/active", s.handleSetActive)
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createFlavorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	flavor, err := s.app.CreateFlavor(r.Context(), req.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeFlavor(w, http.StatusCreated, flavor)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		list []models.Flavor
		err  error
	)
	if r.URL.Query().Get("active") == "true" {
		list, err = s.app.ListActiveFlavors(r.Context())
	} else {
		list, err = s.app.ListFlavors(r.Context())
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"flavors": list}); err != nil {
		log.Error().Err(err).Msg("failed to encode flavors response")
	}
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid flavor id", http.StatusBadRequest)
		return
	}

	flavor, err := s.app.GetFlavor(r.Context(), id)
	if err != nil {
		writeFlavorError(w, err)
		return
	}
	writeFlavor(w, http.StatusOK, flavor)
}

func (s *Service) handleSetActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid flavor id", http.StatusBadRequest)
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	flavor, err := s.app.SetFlavorActive(r.Context(), id, req.Active)
	if err != nil {
		writeFlavorError(w, err)
		return
	}
	writeFlavor(w, http.StatusOK, flavor)
}

func writeFlavor(w http.ResponseWriter, status int, flavor *models.Flavor) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"flavor": flavor}); err != nil {
		log.Error().Err(err).Msg("failed to encode flavor response")
	}
}

func writeFlavorError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrFlavorNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}
