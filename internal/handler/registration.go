package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mergington/activities/internal/security/audit"
	"github.com/mergington/activities/internal/service"
)

// RegistrationHandler handles signup and unregister endpoints
type RegistrationHandler struct {
	registrations *service.RegistrationService
	catalog       *service.CatalogService
	audit         *audit.Logger
	logger        *slog.Logger
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(
	registrations *service.RegistrationService,
	catalog *service.CatalogService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *RegistrationHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &RegistrationHandler{
		registrations: registrations,
		catalog:       catalog,
		audit:         auditLog,
		logger:        logger,
	}
}

// MessageResponse is a confirmation message body
type MessageResponse struct {
	Message string `json:"message"`
}

// Signup handles POST /api/activities/{id}/signup?email=
func (h *RegistrationHandler) Signup(w http.ResponseWriter, r *http.Request) {
	activityID, email, ok := h.parseParams(w, r)
	if !ok {
		return
	}

	if _, err := h.registrations.Signup(r.Context(), activityID, email); err != nil {
		h.audit.LogSignup(r.Context(), email, strconv.FormatInt(activityID, 10), "failed", err.Error())
		writeDomainError(w, err)
		return
	}

	h.audit.LogSignup(r.Context(), email, strconv.FormatInt(activityID, 10), "success", "")

	name := h.activityName(r, activityID)
	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Signed up %s for %s", email, name),
	})
}

// Unregister handles DELETE /api/activities/{id}/unregister?email=
func (h *RegistrationHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	activityID, email, ok := h.parseParams(w, r)
	if !ok {
		return
	}

	if err := h.registrations.Unregister(r.Context(), activityID, email); err != nil {
		h.audit.LogUnregister(r.Context(), email, strconv.FormatInt(activityID, 10), "failed", err.Error())
		writeDomainError(w, err)
		return
	}

	h.audit.LogUnregister(r.Context(), email, strconv.FormatInt(activityID, 10), "success", "")
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Unregistered"})
}

func (h *RegistrationHandler) parseParams(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	idStr := r.PathValue("id")
	activityID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid activity id"})
		return 0, "", false
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "email is required"})
		return 0, "", false
	}

	return activityID, email, true
}

func (h *RegistrationHandler) activityName(r *http.Request, activityID int64) string {
	activity, err := h.catalog.GetByID(r.Context(), activityID)
	if err != nil {
		return fmt.Sprintf("activity %d", activityID)
	}
	return activity.Name
}
