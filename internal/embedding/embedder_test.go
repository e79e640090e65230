package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperSieve/internal/models"
)

func TestBuildEmbeddingText(t *testing.T) {
	p := &models.PaperRecord{Title: "  Title ", Abstract: "Body"}
	assert.Equal(t, "Title\n\nBody", BuildEmbeddingText(p))

	p.Abstract = " "
	assert.Equal(t, "Title", BuildEmbeddingText(p))
}

func TestNewWithoutKeyIsNoop(t *testing.T) {
	svc, err := New(EmbedderConfig{})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", svc.ModelName())
	assert.Equal(t, 1536, svc.Dim())

	_, err = svc.EmbedQuery(context.Background(), "x")
	assert.Error(t, err)
}

func TestEmbedRecords(t *testing.T) {
	fake := NewFake(8)
	fake.Vectors["Only title"] = []float32{1, 0, 0, 0, 0, 0, 0, 0}

	done := &models.PaperRecord{Title: "done", Embedding: []float32{1}}
	titleOnly := &models.PaperRecord{Title: "Only title", AbstractStatus: models.AbstractExhausted}
	full := &models.PaperRecord{Title: "Full", Abstract: "with abstract"}

	n, err := EmbedRecords(context.Background(), fake, []*models.PaperRecord{done, titleOnly, full})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Only title", "Full\n\nwith abstract"}, fake.Texts)
	assert.Equal(t, []float32{1, 0, 0, 0, 0, 0, 0, 0}, titleOnly.Embedding)
	assert.Len(t, full.Embedding, 8)
	assert.Equal(t, []float32{1}, done.Embedding)

	n, err = EmbedRecords(context.Background(), fake, []*models.PaperRecord{done})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, fake.Calls)
}

func TestEmbedRecordsError(t *testing.T) {
	fake := NewFake(4)
	fake.Err = errors.New("quota")
	p := &models.PaperRecord{Title: "x"}
	_, err := EmbedRecords(context.Background(), fake, []*models.PaperRecord{p})
	assert.Error(t, err)
	assert.Nil(t, p.Embedding)
}
