package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mailtriage/internal/domain/email"
)

// StatsSource reports how many processed messages fell into each intent.
type StatsSource interface {
	CountByIntent(ctx context.Context) (map[email.Intent]int, error)
}

// NewRouter exposes /metrics, /healthz and /stats.
func NewRouter(registry *prometheus.Registry, stats StatsSource, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		counts, err := stats.CountByIntent(req.Context())
		if err != nil {
			logger.Error("Failed to load stats", zap.Error(err))
			http.Error(w, "stats unavailable", http.StatusInternalServerError)
			return
		}

		out := make(map[string]int, len(counts))
		for intent, n := range counts {
			out[intent.String()] = n
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	return r
}
