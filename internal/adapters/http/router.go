package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/f1-penalty-rag/internal/config"
	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/core/metadata"
	"github.com/kirillkom/f1-penalty-rag/internal/core/ports"
	"github.com/kirillkom/f1-penalty-rag/internal/observability/metrics"
)

const welcomeMessage = "Welcome to Formula One Penalty Analysis Tool"

// corpusPipeline adds collection reset to the bulk stages for /store/?reset=true.
type corpusPipeline interface {
	ports.CorpusPipeline
	ResetCollection(ctx context.Context, target domain.DocType) error
}

type Router struct {
	cfg      config.Config
	pipeline corpusPipeline
	analyzer ports.PenaltyAnalyzer
	ingest   ports.IngestRequester
	metrics  *metrics.HTTPServerMetrics
}

// NewRouter accepts a nil ingest requester; /ingest/ then answers 503.
func NewRouter(
	cfg config.Config,
	pipeline corpusPipeline,
	analyzer ports.PenaltyAnalyzer,
	ingest ports.IngestRequester,
) *Router {
	return &Router{
		cfg:      cfg,
		pipeline: pipeline,
		analyzer: analyzer,
		ingest:   ingest,
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	limited := newTrafficControl(rt.cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.index)
	mux.HandleFunc("/health", rt.health)
	mux.HandleFunc("/metadata/", rt.parseMetadata)
	mux.Handle("/chunk/", limited(http.HandlerFunc(rt.chunk)))
	mux.Handle("/embed/", limited(http.HandlerFunc(rt.embed)))
	mux.Handle("/store/", limited(http.HandlerFunc(rt.store)))
	mux.Handle("/query/", limited(http.HandlerFunc(rt.query)))
	mux.Handle("/ingest/", limited(http.HandlerFunc(rt.requestIngest)))

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware("api", handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "healthy")
}

func (rt *Router) chunk(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reports, err := rt.pipeline.ChunkCorpus(r.Context(), limit)
	writeReports(w, r, "chunk", reports, err)
}

func (rt *Router) embed(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reports, err := rt.pipeline.EmbedCorpus(r.Context(), limit)
	writeReports(w, r, "embed", reports, err)
}

func (rt *Router) store(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	reset, err := parseBool(r, "reset")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reset {
		for _, target := range []domain.DocType{domain.DocTypeDecision, domain.DocTypeRegulation} {
			if err := rt.pipeline.ResetCollection(r.Context(), target); err != nil {
				writeReports(w, r, "store", nil, err)
				return
			}
		}
	}
	reports, err := rt.pipeline.StoreCorpus(r.Context())
	writeReports(w, r, "store", reports, err)
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	prompt := strings.TrimSpace(r.URL.Query().Get("prompt"))
	if prompt == "" {
		writeError(w, r, domain.WrapError(domain.ErrInvalidQuery, "query", fmt.Errorf("prompt is required")))
		return
	}
	choice, err := domain.ParseModelChoice(r.URL.Query().Get("llm_choice"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if rt.cfg.APIQueryTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(rt.cfg.APIQueryTimeoutSeconds)*time.Second)
		defer cancel()
	}

	analysis, err := rt.analyzer.Answer(ctx, prompt, choice)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (rt *Router) requestIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.ingest == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ingest queue is not configured"})
		return
	}
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if err := rt.ingest.RequestIngest(r.Context(), rawURL); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "url": rawURL})
}

func (rt *Router) parseMetadata(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	text := metadata.NormalizeText(r.URL.Query().Get("text"))
	if text == "" {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "parse metadata", fmt.Errorf("text is required")))
		return
	}
	writeJSON(w, http.StatusOK, metadata.Parse(text))
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return false
	}
	return true
}

// parseLimit treats a missing limit as unlimited.
func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse limit", fmt.Errorf("limit must be a non-negative integer, got %q", raw))
	}
	return limit, nil
}

func parseBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.WrapError(domain.ErrInvalidInput, "parse "+key, err)
	}
	return v, nil
}

// writeReports answers 200 with whatever reports exist; only a stage that
// could not run at all turns into an error status.
func writeReports(w http.ResponseWriter, r *http.Request, stage string, reports []domain.BatchReport, err error) {
	if err != nil && len(reports) == 0 {
		slog.Error("stage_failed", "stage", stage, "request_id", requestIDFromContext(r.Context()), "error", err)
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}
	body := domain.JoinReports(reports)
	if err != nil {
		body += "\nStage stopped early: " + err.Error()
		writeText(w, http.StatusInternalServerError, body)
		return
	}
	writeText(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", "path", r.URL.Path, "request_id", requestIDFromContext(r.Context()), "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
