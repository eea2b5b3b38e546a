package handlers

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"promptvault/internal/domain"
	"promptvault/internal/enrich"
	"promptvault/internal/infra"
	"promptvault/internal/middleware"
)

// Enricher starts preview generation jobs.
type Enricher interface {
	Start(ctx context.Context) (<-chan enrich.Event, error)
}

type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Prompts  domain.PromptRepository
	Enricher Enricher
}

func NewApp(cfg *infra.Config, logger infra.Logger, prompts domain.PromptRepository, enricher Enricher) *App {
	return &App{Config: cfg, Logger: logger, Prompts: prompts, Enricher: enricher}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Error: code, Message: message})
}

// requestLogger tags the app logger with the request and caller ids.
func (a *App) requestLogger(r *http.Request) infra.Logger {
	return a.Logger.With().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("user_id", middleware.UserIDFromContext(r.Context())).
		Logger()
}
