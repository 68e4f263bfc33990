package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/actuallystonmai/beer-recommender/internal/handler"
	"github.com/actuallystonmai/beer-recommender/internal/logging"
	"github.com/actuallystonmai/beer-recommender/internal/metrics"
)

type Options struct {
	Timeout     time.Duration
	CORSOrigins []string
	// TrainRateLimit is training requests per IP per minute; 0 disables it.
	TrainRateLimit int
}

func Setup(h *handler.Handler, opts Options) http.Handler {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.Timeout))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	train := func(next http.Handler) http.Handler { return next }
	if opts.TrainRateLimit > 0 {
		train = httprate.LimitByIP(opts.TrainRateLimit, time.Minute)
	}

	// Routes
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/usernames", h.ListUsernames)
	r.Get("/beers", h.ListBeers)
	r.Route("/users/{username}", func(r chi.Router) {
		r.With(train).Post("/models", h.TrainModel)
		r.Get("/predictions", h.GetPrediction)
		r.Post("/rankings", h.RankBeers)
		r.Get("/suggestion", h.GetSuggestion)
	})
	r.Get("/suggestions/batch", h.GetBatchSuggestions)

	return r
}
