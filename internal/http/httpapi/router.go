package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"labassistant/internal/http/handlers"
	"labassistant/internal/infra"
	"labassistant/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(logger),
		chimw.Recoverer,
		middleware.CORS(cfg.AllowedOrigins),
		middleware.Locale(cfg.DefaultLocale),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.Health)
		r.Get("/config", app.Config)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
			r.Post("/reaction/explain", app.ExplainReaction)
			r.Post("/equation/balance", app.BalanceEquation)
			r.Post("/reaction/image", app.ReactionImage)
			r.Get("/reaction/image/ws", app.ReactionImageStream)
			r.Post("/material/recognize", app.RecognizeMaterial)
		})
	})

	return r
}
