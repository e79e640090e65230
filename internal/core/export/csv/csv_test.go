package csv

import (
	stdcsv "encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperSieve/internal/models"
)

func TestExport(t *testing.T) {
	papers := []*models.PaperRecord{
		{
			Source:       "nature",
			ID:           "10.1038/s41566-024-0001-x",
			Title:        "Lasing, in a \"ring\"",
			Authors:      []string{"A", "B"},
			AbsURL:       "https://doi.org/10.1038/s41566-024-0001-x",
			Score:        models.NewScoreMap(map[string]float64{"Optics": 5.5}),
			Recommended:  []string{"Optics"},
			EnrichStatus: models.EnrichSuccess,
			Enrichment:   &models.Enrichment{TLDR: "激光"},
		},
		{Source: "aps", ID: "10.1103/x", Title: "t", EnrichStatus: models.EnrichSkip},
	}
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, NewCSVExporter().Export(papers, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	bom := make([]byte, 3)
	_, err = f.Read(bom)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, bom)

	rows, err := stdcsv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, "Lasing, in a \"ring\"", rows[1][3])
	assert.Equal(t, "5.50", rows[1][9])
	assert.Equal(t, "激光", rows[1][11])
	assert.Equal(t, "skip", rows[2][16])
	assert.Equal(t, "", rows[2][11])
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "光学...", truncate("光学测量", 2))
	assert.Equal(t, "abc", truncate("abc", 5))
}
