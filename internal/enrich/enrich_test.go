package enrich

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperSieve/internal/models"
)

type stubModel struct {
	reply string
	err   error
	got   []*schema.Message
}

func (s *stubModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	s.got = input
	if s.err != nil {
		return nil, s.err
	}
	return &schema.Message{Role: schema.Assistant, Content: s.reply}, nil
}

func queued(n int) []*models.PaperRecord {
	out := make([]*models.PaperRecord, n)
	for i := range out {
		out[i] = &models.PaperRecord{
			Source:       "arxiv",
			ID:           fmt.Sprintf("2401.%05d", i),
			Title:        fmt.Sprintf("paper %d", i),
			Abstract:     "abstract",
			EnrichStatus: models.EnrichQueued,
		}
	}
	return out
}

func TestParseEnrichment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"plain", `{"tldr":"a","motivation":"b","method":"c","result":"d","conclusion":"e"}`, true},
		{"fenced", "```json\n{\"tldr\":\"a\"}\n```", true},
		{"prose around", "Here it is: {\"tldr\":\"a\"} hope this helps", true},
		{"latex backslash", `{"tldr":"phase \alpha shift"}`, true},
		{"no object", "sorry", false},
		{"empty tldr", `{"tldr":""}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := parseEnrichment(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, e.TLDR)
		})
	}
}

func TestSummarizer_UsesAbstractAndLanguage(t *testing.T) {
	m := &stubModel{reply: `{"tldr":"短句","motivation":"m","method":"x","result":"r","conclusion":"c"}`}
	s := NewSummarizerWithModel(m, "")
	p := &models.PaperRecord{Source: "arxiv", ID: "1", Title: "Time crystals", Abstract: "We observe a discrete time crystal."}

	e, err := s.Summarize(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "短句", e.TLDR)
	require.Len(t, m.got, 2)
	assert.Equal(t, schema.System, m.got[0].Role)
	assert.Contains(t, m.got[1].Content, "Chinese")
	assert.Contains(t, m.got[1].Content, "discrete time crystal")
}

func TestSummarizer_FallsBackToTitle(t *testing.T) {
	m := &stubModel{reply: `{"tldr":"a"}`}
	s := NewSummarizerWithModel(m, "English")
	_, err := s.Summarize(context.Background(), &models.PaperRecord{Title: "Only a title"})
	require.NoError(t, err)
	assert.Contains(t, m.got[1].Content, "Content:\nOnly a title")
}

func TestSummarizer_Errors(t *testing.T) {
	p := &models.PaperRecord{Title: "t", Abstract: "a"}

	_, err := NewSummarizerWithModel(&stubModel{err: errors.New("boom")}, "").Summarize(context.Background(), p)
	assert.ErrorIs(t, err, models.ErrEnrichmentFailed)

	_, err = NewSummarizerWithModel(&stubModel{reply: "not json"}, "").Summarize(context.Background(), p)
	assert.ErrorIs(t, err, models.ErrEnrichmentFailed)

	_, err = NewSummarizerWithModel(&stubModel{reply: "{}"}, "").Summarize(context.Background(), &models.PaperRecord{})
	assert.ErrorIs(t, err, models.ErrEnrichmentFailed)
}

func TestNewSummarizer_RequiresKey(t *testing.T) {
	_, err := NewSummarizer(DefaultLLMConfig())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPool_AllTerminal(t *testing.T) {
	papers := queued(6)
	fake := &FakeSummarizer{Errs: map[string]error{
		papers[2].Key(): fmt.Errorf("%w: bad json", models.ErrEnrichmentFailed),
	}}
	pool := NewPool(PoolConfig{Workers: 3, Timeout: time.Second}, fake)

	ok, failed, err := pool.Run(context.Background(), papers)
	require.NoError(t, err)
	assert.Equal(t, 5, ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 6, fake.Calls())

	for i, p := range papers {
		if i == 2 {
			assert.Equal(t, models.EnrichError, p.EnrichStatus)
			assert.Contains(t, p.EnrichError, "bad json")
			assert.Nil(t, p.Enrichment)
			continue
		}
		assert.Equal(t, models.EnrichSuccess, p.EnrichStatus)
		require.NotNil(t, p.Enrichment)
		assert.Equal(t, "tldr: "+p.Title, p.Enrichment.TLDR)
	}
}

func TestPool_Timeout(t *testing.T) {
	papers := queued(2)
	pool := NewPool(PoolConfig{Workers: 2, Timeout: 20 * time.Millisecond}, &FakeSummarizer{Block: true})

	_, failed, err := pool.Run(context.Background(), papers)
	require.NoError(t, err)
	assert.Equal(t, 2, failed)
	for _, p := range papers {
		assert.Equal(t, models.EnrichError, p.EnrichStatus)
		assert.Contains(t, p.EnrichError, "超时")
	}
}

func TestPool_CancelledMarksRemaining(t *testing.T) {
	papers := queued(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &FakeSummarizer{}
	_, failed, err := NewPool(PoolConfig{Workers: 1}, fake).Run(ctx, papers)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, failed)
	assert.Equal(t, 0, fake.Calls())
	for _, p := range papers {
		assert.Equal(t, models.EnrichError, p.EnrichStatus)
		assert.Equal(t, "cancelled", p.EnrichError)
	}
}

func TestPool_Empty(t *testing.T) {
	ok, failed, err := NewPool(PoolConfig{}, &FakeSummarizer{}).Run(context.Background(), nil)
	assert.NoError(t, err)
	assert.Zero(t, ok+failed)
}

func TestDisabled(t *testing.T) {
	papers := queued(2)
	_, failed, err := NewPool(PoolConfig{Workers: 2}, Disabled(ErrNotConfigured)).Run(context.Background(), papers)
	require.NoError(t, err)
	assert.Equal(t, 2, failed)
	assert.Contains(t, papers[0].EnrichError, "api_key")
}
