package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mergington/activities/internal/security/audit"
	"github.com/mergington/activities/internal/security/middleware"
	"github.com/mergington/activities/internal/service"
)

// AuthHandler handles account registration, login, and identity lookup
type AuthHandler struct {
	authService *service.AuthService
	audit       *audit.Logger
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, auditLog *audit.Logger, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		audit:       auditLog,
		logger:      logger,
	}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode register request",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "email and password are required"})
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.FirstName, req.LastName, req.Password)
	if err != nil {
		h.logger.Info("registration failed",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		h.audit.LogRegister(r.Context(), req.Email, "failed", err.Error())
		writeDomainError(w, err)
		return
	}

	h.audit.LogRegister(r.Context(), user.Email, "success", "")
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode login request",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.audit.LogLogin(r.Context(), req.Email, "failed")
		writeDomainError(w, err)
		return
	}

	h.audit.LogLogin(r.Context(), req.Email, "success")
	writeJSON(w, http.StatusOK, result)
}

// Me handles GET /api/me. It runs behind RequireAuth, which resolves the
// bearer token to a user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}
