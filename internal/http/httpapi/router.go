package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"promptvault/internal/http/handlers"
	"promptvault/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(app.Config.CORSAllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	if app.Config.StoragePath != "" {
		files := http.FileServer(http.Dir(app.Config.StoragePath))
		r.Handle("/static/*", http.StripPrefix("/static/", files))
	}

	r.Route("/v1/prompts", func(r chi.Router) {
		r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))
		r.Use(middleware.AuthJWT(app.Config.JWTSecret))
		r.Post("/import", app.PromptsImport)
		r.Post("/enrich", app.PromptsEnrich)
		r.Get("/pending", app.PromptsPending)
	})

	return r
}
