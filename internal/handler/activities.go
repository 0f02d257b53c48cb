package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mergington/activities/internal/domain"
	"github.com/mergington/activities/internal/service"
)

// ActivitiesHandler exposes the activity catalog
type ActivitiesHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewActivitiesHandler creates a new activities handler
func NewActivitiesHandler(catalog *service.CatalogService, logger *slog.Logger) *ActivitiesHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ActivitiesHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// ActivityResponse is the API view of one catalog entry
type ActivityResponse struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	Schedule            string `json:"schedule"`
	MaxParticipants     int    `json:"max_participants"`
	CurrentParticipants int    `json:"current_participants"`
}

// List handles GET /api/activities
func (h *ActivitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.catalog.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list activities", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}

	out := make([]ActivityResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, ActivityResponse{
			ID:                  s.ID,
			Name:                s.Name,
			Description:         s.Description,
			Schedule:            s.Schedule,
			MaxParticipants:     s.MaxParticipants,
			CurrentParticipants: s.CurrentParticipants,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

// CreateActivityRequest represents an admin activity creation request
type CreateActivityRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Schedule        string `json:"schedule"`
	MaxParticipants int    `json:"max_participants"`
}

// Create handles POST /api/activities
func (h *ActivitiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	if req.Name == "" || req.MaxParticipants <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "name and a positive max_participants are required"})
		return
	}

	activity, err := h.catalog.Create(r.Context(), req.Name, req.Description, req.Schedule, req.MaxParticipants)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toActivityResponse(activity, 0))
}

func toActivityResponse(a *domain.Activity, current int) ActivityResponse {
	return ActivityResponse{
		ID:                  a.ID,
		Name:                a.Name,
		Description:         a.Description,
		Schedule:            a.Schedule,
		MaxParticipants:     a.MaxParticipants,
		CurrentParticipants: current,
	}
}
