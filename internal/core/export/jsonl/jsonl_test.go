package jsonl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperSieve/internal/models"
)

func TestExport_RoundTrip(t *testing.T) {
	p := &models.PaperRecord{
		Source:         "arxiv",
		ID:             "2401.00001",
		Title:          "Observation of <b>discrete</b> time crystals",
		Authors:        []string{"A", "B"},
		Published:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Categories:     []string{"quant-ph"},
		AbstractStatus: models.AbstractExhausted,
		Score:          models.NewScoreMap(map[string]float64{"Optics": 8.91, "Quantum": 2}),
		Recommended:    []string{"Optics"},
		EnrichStatus:   models.EnrichSuccess,
		Enrichment:     &models.Enrichment{TLDR: "t"},
		RunDate:        "2024-01-02",
	}
	path := filepath.Join(t.TempDir(), "out", "2024-01-02_arxiv.jsonl")
	require.NoError(t, NewJSONLExporter().Export([]*models.PaperRecord{p, p}, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(raw), "\n"))
	assert.Contains(t, string(raw), "<b>discrete</b>")
	assert.Contains(t, string(raw), `"max":8.91`)

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, p.Score.Equal(got[0].Score))
	assert.Equal(t, p.Recommended, got[0].Recommended)
	assert.Equal(t, models.AbstractExhausted, got[0].AbstractStatus)
	assert.Equal(t, "t", got[0].Enrichment.TLDR)
}

func TestExport_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old\nold\nold\n"), 0644))
	require.NoError(t, NewJSONLExporter().Export([]*models.PaperRecord{{Source: "aps", ID: "10.1/x", Title: "t"}}, path))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	entries, _ := os.ReadDir(filepath.Dir(path))
	assert.Len(t, entries, 1, "临时文件应被清理")
}
