package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, parseLevel("debug"))
	assert.Equal(t, WARN, parseLevel("WARNING"))
	assert.Equal(t, ERROR, parseLevel("error"))
	assert.Equal(t, INFO, parseLevel("nonsense"))
}

func TestWithPrefixAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{zl: newLogger(DEBUG, &buf, false).zl, prefix: "resolver"}

	l.Info("尝试 %d 次", 3)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "resolver", line["component"])
	assert.Equal(t, "尝试 3 次", line["message"])
	assert.Equal(t, "info", line["level"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(WARN, &buf, false)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
