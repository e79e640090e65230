package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	EntriesTotal.WithLabelValues("arxiv", "new").Add(3)
	GateDecisions.WithLabelValues("queued").Inc()
	Stage("rank")()

	path := filepath.Join(t.TempDir(), "sub", "papersieve.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `papersieve_entries_total{outcome="new",source="arxiv"} 3`)
	assert.Contains(t, text, `papersieve_gate_decisions_total{decision="queued"} 1`)
	assert.Contains(t, text, `papersieve_stage_duration_seconds_count{stage="rank"} 1`)
}

func TestWriteTextfileDisabled(t *testing.T) {
	assert.NoError(t, WriteTextfile(""))
}
