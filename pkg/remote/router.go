package remote

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/livestate/internal/errors"
)

// maxEventBytes bounds POST /events bodies.
const maxEventBytes = 1 << 20

type routerConfig struct {
	gatherer    prometheus.Gatherer
	metricsPath string
	logger      *slog.Logger
}

// RouterOption configures NewRouter.
type RouterOption func(*routerConfig)

// WithMetrics serves gatherer at GET /metrics.
func WithMetrics(gatherer prometheus.Gatherer) RouterOption {
	return func(c *routerConfig) {
		c.gatherer = gatherer
	}
}

// WithMetricsPath moves the metrics endpoint. The default is /metrics.
func WithMetricsPath(path string) RouterOption {
	return func(c *routerConfig) {
		c.metricsPath = path
	}
}

// WithRouterLogger sets the logger for request errors.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(c *routerConfig) {
		c.logger = logger
	}
}

// NewRouter exposes hub over HTTP:
//
//	GET  /ws       websocket sessions
//	GET  /state    JSON snapshot of the root
//	POST /events   apply one JSON event
//	GET  /healthz  liveness
//	GET  /metrics  Prometheus metrics, when WithMetrics is given
func NewRouter(hub *Hub, opts ...RouterOption) http.Handler {
	cfg := routerConfig{
		metricsPath: "/metrics",
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "ok")
	})

	r.Handle("/ws", hub)

	r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		data, err := hub.Snapshot(r.Context())
		if err != nil {
			cfg.logger.Error("remote: snapshot failed", "error", err)
			http.Error(w, "snapshot failed", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})

	r.Post("/events", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
		if err != nil {
			http.Error(w, "event too large", http.StatusRequestEntityTooLarge)
			return
		}
		e, err := DecodeEvent(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		res, err := hub.Apply(r.Context(), e)
		if err != nil {
			if _, coded := err.(*errors.Error); !coded {
				cfg.logger.Error("remote: apply failed", "event", e.Name, "error", err)
				http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
				return
			}
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	if cfg.gatherer != nil {
		r.Handle(cfg.metricsPath, promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes err as the JSON form of a coded error.
func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, errors.FromError(err, "E401").FormatJSON())
}
