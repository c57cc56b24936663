package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/":           "/",
		"/query/":     "/query",
		"/query":      "/query",
		"/chunk/":     "/chunk",
		"/wp-admin/x": "other",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/query/?prompt=x", nil))

	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodGet, "/query", "418")); got != 1 {
		t.Fatalf("expected 1 request counted, got %v", got)
	}
}

func TestObserveQueryRecordsTiers(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.ObserveQuery(domain.RetrievalContext{Historical: []string{"a", "b"}, Regulatory: []string{"r"}}, time.Second, nil)
	m.ObserveQuery(domain.RetrievalContext{}, time.Millisecond, domain.WrapError(domain.ErrCollectionUnavailable, "count", errors.New("empty")))

	if got := testutil.ToFloat64(m.queryTotal.WithLabelValues("api", "success")); got != 1 {
		t.Fatalf("expected 1 successful query, got %v", got)
	}
	if got := testutil.ToFloat64(m.queryTotal.WithLabelValues("api", "collection_unavailable")); got != 1 {
		t.Fatalf("expected 1 unavailable query, got %v", got)
	}
	if got := testutil.ToFloat64(m.queryNoSpecific); got != 1 {
		t.Fatalf("expected query without specific context counted, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `f1rag_rag_context_documents_count{service="api",tier="historical"} 1`) {
		t.Fatalf("expected context histogram in exposition")
	}
}

func TestPipelineMetrics(t *testing.T) {
	server := NewHTTPServerMetrics("api")
	m := NewPipelineMetrics("api", server.Registry())

	m.ObserveDocument("chunk", domain.OutcomeChunked)
	m.ObserveDocument("chunk", "")
	m.ObserveStage("chunk", domain.BatchReport{Target: "decisions", Total: 10, AlreadyDone: 4, Processed: 3, Skipped: 1}, time.Second, nil)

	if got := testutil.ToFloat64(m.documentsTotal.WithLabelValues("api", "chunk", "failed")); got != 1 {
		t.Fatalf("expected empty outcome counted as failed, got %v", got)
	}
	if got := testutil.ToFloat64(m.stageBacklog.WithLabelValues("api", "chunk", "decisions")); got != 2 {
		t.Fatalf("expected 2 remaining documents, got %v", got)
	}
}

func TestWorkerMetrics(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartDocument()
	m.FinishDocument("worker", domain.OutcomeChunked, time.Second, errors.New("store failed"))

	if got := testutil.ToFloat64(m.ingestTotal.WithLabelValues("worker", "failed")); got != 1 {
		t.Fatalf("expected failed ingest, got %v", got)
	}
	if got := testutil.ToFloat64(m.ingestInFlight); got != 0 {
		t.Fatalf("expected no in-flight ingest, got %v", got)
	}
}
