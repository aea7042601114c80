package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kirillkom/dataset-recommender/internal/config"
	"github.com/kirillkom/dataset-recommender/internal/core/ports"
	"github.com/kirillkom/dataset-recommender/internal/observability/metrics"
)

const multipartMemory = 32 << 20

// Services are the inbound ports served over HTTP.
type Services struct {
	Datasets    ports.DatasetManager
	Recommender ports.Recommender
	History     ports.QueryHistoryService
	Search      ports.SearchRunner
	Usage       ports.UsageReader
}

type Router struct {
	cfg      config.Config
	services Services
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
}

func NewRouter(cfg config.Config, services Services, httpMetrics *metrics.HTTPServerMetrics, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:      cfg,
		services: services,
		metrics:  httpMetrics,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(rt.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", userIDHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Get("/healthz", rt.healthz)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
		})
		v1.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
		})
		v1.Use(userIDMiddleware)

		v1.Route("/datasets", func(d chi.Router) {
			d.Post("/", rt.uploadDataset)
			d.Get("/", rt.listDatasets)
			d.Post("/analyze", rt.analyzeDataset)
			d.Get("/{id}", rt.getDataset)
			d.Get("/{id}/preview", rt.previewDataset)
			d.Get("/{id}/schema", rt.datasetSchema)
			d.Delete("/{id}", rt.deleteDataset)
		})

		v1.Post("/recommendations/questions", rt.clarifyingQuestions)
		v1.Post("/recommendations/refine", rt.refineCandidates)
		v1.Post("/search", rt.search)

		v1.Route("/queries", func(q chi.Router) {
			q.Get("/", rt.listQueries)
			q.Post("/", rt.createQuery)
			q.Get("/{id}", rt.getQuery)
			q.Put("/{id}", rt.updateQuery)
			q.Delete("/{id}", rt.deleteQuery)
		})

		v1.Get("/usage", rt.usage)
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

func pathID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}
