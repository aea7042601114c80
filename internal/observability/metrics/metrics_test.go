package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/dataset-recommender/internal/core/domain"
)

func TestStrategyOutcomeUsesNoneForLLMSuccess(t *testing.T) {
	m := NewHTTPServerMetrics("api")

	m.RecordStrategyOutcome("refine", "llm", "")
	m.RecordStrategyOutcome("refine", "llm", domain.FallbackQuota)

	if got := testutil.ToFloat64(m.strategyOutcomesTotal.WithLabelValues("api", "refine", "llm", "none")); got != 1 {
		t.Fatalf("expected one success outcome, got %v", got)
	}
	if got := testutil.ToFloat64(m.strategyOutcomesTotal.WithLabelValues("api", "refine", "llm", string(domain.FallbackQuota))); got != 1 {
		t.Fatalf("expected one quota outcome, got %v", got)
	}
}

func TestBreakerStateChangedSetsGauge(t *testing.T) {
	m := NewHTTPServerMetrics("api")

	m.BreakerStateChanged("llm.rank", "closed", "open")
	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("api", "llm.rank")); got != 2 {
		t.Fatalf("expected open gauge 2, got %v", got)
	}
	m.BreakerStateChanged("llm.rank", "open", "half-open")
	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("api", "llm.rank")); got != 1 {
		t.Fatalf("expected half-open gauge 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.breakerTransitions.WithLabelValues("api", "llm.rank", "open")); got != 1 {
		t.Fatalf("expected one transition to open, got %v", got)
	}
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/datasets/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/datasets/abc", nil))

	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodGet, "/v1/datasets/{id}", "404")); got != 1 {
		t.Fatalf("expected request counted under route pattern, got %v", got)
	}
}

func TestHandlerExposesSearchMetrics(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.ObserveSearch("limited", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), `recommender_search_requests_total{outcome="limited",service="api"} 1`) {
		t.Fatalf("search counter missing from exposition:\n%s", rec.Body.String())
	}
}

func TestWorkerMetricsTrackDatasets(t *testing.T) {
	m := NewWorkerMetrics("worker")

	m.StartDataset()
	m.FinishDataset(time.Second, nil)
	m.StartDataset()
	m.FinishDataset(time.Second, errors.New("parse"))
	m.ObserveQueueLag(-time.Second)

	if got := testutil.ToFloat64(m.processInFlight); got != 0 {
		t.Fatalf("expected no datasets in flight, got %v", got)
	}
	if got := testutil.ToFloat64(m.processTotal.WithLabelValues("worker", "error")); got != 1 {
		t.Fatalf("expected one failed dataset, got %v", got)
	}
	if got := testutil.CollectAndCount(m.queueLag); got != 0 {
		t.Fatalf("negative lag must not be observed, got %d series", got)
	}
}
