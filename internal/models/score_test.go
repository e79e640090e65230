package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreMap_MaxInvariant(t *testing.T) {
	tests := []struct {
		name   string
		input  map[string]float64
		max    float64
		length int
	}{
		{"empty", map[string]float64{}, 0, 0},
		{"single", map[string]float64{"Optics": 8.91}, 8.91, 1},
		{"several", map[string]float64{"A": 1.5, "B": 4.2, "C": 0}, 4.2, 3},
		{"negative clamps to zero", map[string]float64{"A": -0.3, "B": 0.1}, 0.1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewScoreMap(tt.input)
			assert.Equal(t, tt.max, m.Max())
			assert.Equal(t, tt.length, m.Len())
			for _, name := range m.Ranked() {
				s, _ := m.Get(name)
				assert.GreaterOrEqual(t, s, 0.0)
				assert.LessOrEqual(t, s, m.Max())
			}
		})
	}
}

func TestScoreMap_JSONFlattensMax(t *testing.T) {
	m := NewScoreMap(map[string]float64{"Optics": 8.5, "Quantum/Qubits": 2})

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Optics":8.5,"Quantum/Qubits":2,"max":8.5}`, string(data))

	// 分数降序，max 在最后
	assert.Equal(t, `{"Optics":8.5,"Quantum/Qubits":2,"max":8.5}`, string(data))

	var back ScoreMap
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, m.Equal(back))
}

func TestScoreMap_EmptyJSON(t *testing.T) {
	data, err := json.Marshal(ScoreMap{})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	var back ScoreMap
	require.NoError(t, json.Unmarshal([]byte("{}"), &back))
	assert.True(t, back.Empty())
}

func TestScoreMap_UnmarshalIgnoresStaleMax(t *testing.T) {
	var m ScoreMap
	require.NoError(t, json.Unmarshal([]byte(`{"A":1,"B":3,"max":99}`), &m))
	assert.Equal(t, 3.0, m.Max())
	_, ok := m.Get(MaxKey)
	assert.False(t, ok)
}

func TestScoreMap_CollectionNamedMax(t *testing.T) {
	var m ScoreMap
	m.Set("max", 2)
	m.Set("Other", 1)

	s, ok := m.Get("max")
	require.True(t, ok)
	assert.Equal(t, 2.0, s)
	assert.Contains(t, m.Ranked(), "max_")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"max_":2,"Other":1,"max":2}`, string(data))
}

func TestPaperRecord_MergeCategories(t *testing.T) {
	p := &PaperRecord{Categories: []string{"quant-ph"}}
	p.MergeCategories("physics.optics", "quant-ph", " ", "physics.optics")
	assert.Equal(t, []string{"quant-ph", "physics.optics"}, p.Categories)
}

func TestEnrichStatus_Terminal(t *testing.T) {
	assert.False(t, EnrichPending.Terminal())
	assert.False(t, EnrichQueued.Terminal())
	assert.True(t, EnrichSuccess.Terminal())
	assert.True(t, EnrichSkip.Terminal())
	assert.True(t, EnrichError.Terminal())
}
