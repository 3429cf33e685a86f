package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "secretsanta/docs"
	"secretsanta/internal/delivery/http/controllers"
	"secretsanta/internal/delivery/http/middleware"
	"secretsanta/internal/domain"
	"secretsanta/internal/metrics"
)

// NewRouter initializes the HTTP router with all application routes.
// With a nil verifier the organizer routes are open.
func NewRouter(sessionController *controllers.SessionController, m *metrics.Metrics, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	requireAuth := middleware.RequireAuth(verifier, logger)

	// API Routes
	mux.HandleFunc("POST /generate", requireAuth(sessionController.Generate))
	mux.HandleFunc("GET /get-matches", requireAuth(sessionController.GetMatches))
	mux.HandleFunc("GET /export-matches", requireAuth(sessionController.ExportMatches))

	// Ops
	mux.HandleFunc("GET /health", health)
	mux.Handle("GET /metrics", m.Handler())

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// health reports liveness. Its body is not wrapped in the response envelope.
func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}
