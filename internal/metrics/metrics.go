package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry 独立的 registry，不混入默认的 go/process 指标
var Registry = prometheus.NewRegistry()

var (
	EntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papersieve_entries_total",
			Help: "Feed entries by source and outcome (new, seen, malformed)",
		},
		[]string{"source", "outcome"},
	)

	AbstractResolution = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papersieve_abstract_resolution_total",
			Help: "Abstract resolver terminal states",
		},
		[]string{"state"},
	)

	GateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papersieve_gate_decisions_total",
			Help: "Enrichment gate decisions",
		},
		[]string{"decision"},
	)

	EnrichmentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papersieve_enrichment_total",
			Help: "Enrichment results by status",
		},
		[]string{"status"},
	)

	CorpusRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papersieve_corpus_refresh_total",
			Help: "Reference corpus refreshes by result (refreshed, cached, stale, failed)",
		},
		[]string{"result"},
	)

	EstimatedTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "papersieve_enrich_estimated_tokens_total",
			Help: "Estimated prompt tokens for queued enrichment calls",
		},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "papersieve_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"stage"},
	)
)

func init() {
	Registry.MustRegister(EntriesTotal)
	Registry.MustRegister(AbstractResolution)
	Registry.MustRegister(GateDecisions)
	Registry.MustRegister(EnrichmentTotal)
	Registry.MustRegister(CorpusRefresh)
	Registry.MustRegister(EstimatedTokens)
	Registry.MustRegister(StageDuration)
}

// Stage 计时，用法：defer metrics.Stage("rank")()
func Stage(name string) func() {
	start := time.Now()
	return func() {
		StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

// WriteTextfile 以 node_exporter textfile 格式写出全部指标；path 为空时不做任何事
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
