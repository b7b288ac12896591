package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	suspensionhandler "noticeflow/internal/suspension/handler"
)

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter assembles the ops surface: the manual suspension/revival API,
// Prometheus metrics, and health. Business endpoints beyond these belong to
// external collaborators, not this service.
func NewRouter(susp *suspensionhandler.Handler, replica HealthChecker, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	susp.Register(r)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if replica != nil {
			if err := replica.Health(req.Context()); err != nil {
				// A dead replica degrades sync but the engine still runs.
				status["replica"] = "unavailable"
				log.WithError(err).Warn("replica health check failed")
			} else {
				status["replica"] = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})

	return r
}
