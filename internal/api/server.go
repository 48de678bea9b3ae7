package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gobeyondidentity/keyissuer/internal/version"
	"github.com/gobeyondidentity/keyissuer/pkg/metrics"
	"github.com/gobeyondidentity/keyissuer/pkg/telemetry"
)

// maxBodyBytes caps request bodies on every POST endpoint.
const maxBodyBytes = 64 << 10

// ServerConfig holds optional server collaborators.
type ServerConfig struct {
	// Metrics enables GET /metrics and request counting when set.
	Metrics *metrics.Metrics
	// StaticDir is served at / when set; otherwise a placeholder page is served.
	StaticDir string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	issuer    *Issuer
	stats     *telemetry.Store
	metrics   *metrics.Metrics
	staticDir string
	logger    *slog.Logger
}

// NewServer creates an API server over issuer and stats.
func NewServer(issuer *Issuer, stats *telemetry.Store, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		issuer:    issuer,
		stats:     stats,
		metrics:   cfg.Metrics,
		staticDir: cfg.StaticDir,
		logger:    logger,
	}
}

// RegisterRoutes registers all API routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Credential lifecycle
	mux.HandleFunc("POST /issue", s.handleIssue)
	mux.HandleFunc("POST /issue/failed", s.handleIssueFailed)
	mux.HandleFunc("POST /confirm", s.handleConfirm)

	// Telemetry
	mux.HandleFunc("POST /api/stats", s.handleStatsAppend)
	mux.HandleFunc("GET /api/stats", s.handleStatsList)

	// Operations
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Landing page and assets
	mux.Handle("GET /", s.staticHandler())
}

// Handler returns the routed mux wrapped in the middleware chain:
// request id -> recovery -> logging -> CORS -> routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return requestIDMiddleware(s.recoverMiddleware(s.loggingMiddleware(corsMiddleware(mux))))
}

// handleHealth is the liveness probe endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": version.Version,
	})
}

// handleReady is the readiness probe endpoint.
// Returns 503 once the issuer has shut down.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	registry := s.issuer.Registry()
	checks := map[string]string{"registry": "ok"}
	status := http.StatusOK

	if registry.Closed() {
		checks["registry"] = "closed"
		status = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":  "ready",
		"checks":  checks,
		"pending": registry.Len(),
	}
	if status != http.StatusOK {
		response["status"] = "not_ready"
	}
	writeJSON(w, status, response)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	slog.Warn("request error", "method", r.Method, "path", r.URL.Path, "status", status, "error", message)
	writeJSON(w, status, map[string]string{"error": message})
}

// writeInternalError logs the detailed error internally and returns a generic message to the client.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error, genericMsg string) {
	slog.Error(genericMsg, "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": genericMsg})
}
