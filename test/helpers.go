package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mergington/activities/internal/events"
	"github.com/mergington/activities/internal/handler"
	"github.com/mergington/activities/internal/repository/memory"
	"github.com/mergington/activities/internal/security/audit"
	"github.com/mergington/activities/internal/security/auth"
	"github.com/mergington/activities/internal/security/middleware"
	"github.com/mergington/activities/internal/service"
)

// TestServerHelper runs the full HTTP surface against in-memory storage
type TestServerHelper struct {
	Server *httptest.Server
	Logger *slog.Logger
	Users  *memory.UserRepository
	Store  *memory.Store
	Hub    *events.Hub
}

// NewTestServer wires handlers, services, and in-memory repositories the
// same way cmd/server does, minus Postgres, redis, and the outer
// middleware chain.
func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := memory.NewUserRepository()
	store := memory.NewStore()

	tokens := auth.NewTokenManager("test-secret", "test-issuer")
	authService := service.NewAuthService(users, tokens, time.Minute, log)
	catalogService := service.NewCatalogService(store.Activities(), nil, log)
	hub := events.NewHub(nil, log)
	registrationService := service.NewRegistrationService(users, store.Activities(), store.Registrations(), hub, log)

	auditLog := audit.NewLogger(log)
	authHandler := handler.NewAuthHandler(authService, auditLog, log)
	activitiesHandler := handler.NewActivitiesHandler(catalogService, log)
	registrationHandler := handler.NewRegistrationHandler(registrationService, catalogService, auditLog, log)
	healthHandler := handler.NewHealthHandler(
		handler.PingerFunc(func(ctx context.Context) error { return nil }),
		nil,
		log,
	)

	requireAuth := middleware.RequireAuth(authService, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", authHandler.Register)
	mux.HandleFunc("POST /api/login", authHandler.Login)
	mux.Handle("GET /api/me", requireAuth(http.HandlerFunc(authHandler.Me)))
	mux.HandleFunc("GET /api/activities", activitiesHandler.List)
	mux.HandleFunc("POST /api/activities", activitiesHandler.Create)
	mux.HandleFunc("POST /api/activities/{id}/signup", registrationHandler.Signup)
	mux.HandleFunc("DELETE /api/activities/{id}/unregister", registrationHandler.Unregister)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &TestServerHelper{
		Server: httptest.NewServer(mux),
		Logger: log,
		Users:  users,
		Store:  store,
		Hub:    hub,
	}
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// SeedCatalog loads the default starter activities
func (h *TestServerHelper) SeedCatalog(t *testing.T) {
	t.Helper()
	catalog := service.NewCatalogService(h.Store.Activities(), nil, h.Logger)
	if err := catalog.SeedIfEmpty(context.Background()); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}
}

// PostJSON sends a JSON body and decodes the JSON response into out
func (h *TestServerHelper) PostJSON(t *testing.T, path string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	resp, err := http.Post(h.URL()+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	decodeBody(t, resp, out)
	return resp
}

// Do sends a request with an optional bearer token and decodes the response
func (h *TestServerHelper) Do(t *testing.T, method, path, token string, out interface{}) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.URL()+path, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	decodeBody(t, resp, out)
	return resp
}

// RegisterUser creates an account through the API
func (h *TestServerHelper) RegisterUser(t *testing.T, email, password string) {
	t.Helper()
	resp := h.PostJSON(t, "/api/register", map[string]string{
		"email":      email,
		"first_name": "Test",
		"last_name":  "Student",
		"password":   password,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("failed to register %s: status %d", email, resp.StatusCode)
	}
}

// LoginUser logs in through the API and returns the bearer token
func (h *TestServerHelper) LoginUser(t *testing.T, email, password string) string {
	t.Helper()
	var result struct {
		AccessToken string `json:"access_token"`
	}
	resp := h.PostJSON(t, "/api/login", map[string]string{
		"email":    email,
		"password": password,
	}, &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("failed to log in %s: status %d", email, resp.StatusCode)
	}
	return result.AccessToken
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	if out == nil {
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("failed to decode response %q: %v", string(data), err)
	}
}

// SignupPath builds the signup URL for an activity and email
func SignupPath(activityID int64, email string) string {
	return fmt.Sprintf("/api/activities/%d/signup?email=%s", activityID, email)
}

// UnregisterPath builds the unregister URL for an activity and email
func UnregisterPath(activityID int64, email string) string {
	return fmt.Sprintf("/api/activities/%d/unregister?email=%s", activityID, email)
}

// AssertStatusCode fails the test when the response status differs
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType fails the test when the Content-Type header differs
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); ct != expected {
		t.Errorf("Expected Content-Type %s, got %s", expected, ct)
	}
}
