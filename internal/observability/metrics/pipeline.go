package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
)

// PipelineMetrics counts per-document outcomes and stage runs of the
// chunk, embed and store pipeline.
type PipelineMetrics struct {
	service string

	documentsTotal *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	stageRuns      *prometheus.CounterVec
	stageBacklog   *prometheus.GaugeVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Documents handled by pipeline stage and outcome.",
		},
		[]string{"service", "stage", "outcome"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Bulk stage run duration in seconds.",
			Buckets:   []float64{0.1, 1, 5, 15, 60, 300, 900, 1800, 3600},
		},
		[]string{"service", "stage", "status"},
	)
	stageRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_runs_total",
			Help:      "Bulk stage runs by status.",
		},
		[]string{"service", "stage", "status"},
	)
	stageBacklog := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_remaining_documents",
			Help:      "Documents left undone after the last run of a stage.",
		},
		[]string{"service", "stage", "target"},
	)

	registerer.MustRegister(documentsTotal, stageDuration, stageRuns, stageBacklog)

	return &PipelineMetrics{
		service:        service,
		documentsTotal: documentsTotal,
		stageDuration:  stageDuration,
		stageRuns:      stageRuns,
		stageBacklog:   stageBacklog,
	}
}

func (m *PipelineMetrics) ObserveDocument(stage string, outcome domain.IngestOutcome) {
	if outcome == "" {
		outcome = domain.OutcomeFailed
	}
	m.documentsTotal.WithLabelValues(m.service, stage, string(outcome)).Inc()
}

func (m *PipelineMetrics) ObserveStage(stage string, report domain.BatchReport, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.stageRuns.WithLabelValues(m.service, stage, status).Inc()
	m.stageDuration.WithLabelValues(m.service, stage, status).Observe(duration.Seconds())

	remaining := report.Total - report.AlreadyDone - report.Processed - report.Skipped - report.Corrupted
	m.stageBacklog.WithLabelValues(m.service, stage, report.Target).Set(float64(max(remaining, 0)))
}
