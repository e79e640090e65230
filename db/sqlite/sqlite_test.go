package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperSieve/internal/models"
)

func openTemp(t *testing.T) (*SQLiteDB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "papersieve.db")
	s, err := NewSQLiteDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func sampleRecord() *models.PaperRecord {
	return &models.PaperRecord{
		Source:         "nature",
		ID:             "10.1038/s41566-024-0001-x",
		Journal:        "Nature Photonics",
		Title:          "Integrated frequency combs",
		Authors:        []string{"A. Author", "B. Author"},
		Published:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Abstract:       "We demonstrate...",
		Categories:     []string{"nphoton"},
		AbsURL:         "https://doi.org/10.1038/s41566-024-0001-x",
		AbstractStatus: models.AbstractNative,
		Score:          models.NewScoreMap(map[string]float64{"Optics": 8.91, "Quantum": 3.2}),
		Recommended:    []string{"Optics"},
		EnrichStatus:   models.EnrichSuccess,
		Enrichment:     &models.Enrichment{TLDR: "t", Motivation: "m", Method: "me", Result: "r", Conclusion: "c"},
		RunDate:        "2024-05-02",
	}
}

func TestUpsertRoundTrip(t *testing.T) {
	s, _ := openTemp(t)
	rec := sampleRecord()

	id, err := s.Upsert(rec)
	require.NoError(t, err)
	assert.NotZero(t, id)

	got, err := s.GetRecords(models.RecordFilter{Sources: []string{"nature"}}, "")
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, rec.ID, r.ID)
	assert.Equal(t, rec.Authors, r.Authors)
	assert.True(t, rec.Score.Equal(r.Score), "score map should survive storage")
	assert.Equal(t, rec.Recommended, r.Recommended)
	assert.Equal(t, rec.Enrichment, r.Enrichment)
	assert.Equal(t, models.AbstractNative, r.AbstractStatus)
	assert.True(t, rec.Published.Equal(r.Published))
	assert.Nil(t, r.Embedding)
}

func TestUpsertUpdatesInPlace(t *testing.T) {
	s, _ := openTemp(t)
	rec := sampleRecord()
	id1, err := s.Upsert(rec)
	require.NoError(t, err)

	rec.EnrichStatus = models.EnrichError
	rec.Enrichment = nil
	rec.EnrichError = "timeout"
	id2, err := s.Upsert(rec)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	n, err := s.CountRecords(models.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetRecords(models.RecordFilter{Statuses: []models.EnrichStatus{models.EnrichError}}, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Enrichment)
	assert.Equal(t, "timeout", got[0].EnrichError)
}

func TestEmbeddingByModel(t *testing.T) {
	s, _ := openTemp(t)
	rec := sampleRecord()
	_, err := s.Upsert(rec)
	require.NoError(t, err)

	require.NoError(t, s.SaveEmbedding(rec.Source, rec.ID, "m1", []float32{0.5, -1, 2}))

	got, err := s.GetRecords(models.RecordFilter{}, "m1")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1, 2}, got[0].Embedding)

	got, err = s.GetRecords(models.RecordFilter{}, "other-model")
	require.NoError(t, err)
	assert.Nil(t, got[0].Embedding)

	assert.Error(t, s.SaveEmbedding("nature", "missing", "m1", []float32{1}))
}

func TestRunDatesAndFilter(t *testing.T) {
	s, _ := openTemp(t)
	for i, d := range []string{"2024-05-01", "2024-05-03", "2024-05-03"} {
		r := sampleRecord()
		r.ID = r.ID + string(rune('a'+i))
		r.RunDate = d
		_, err := s.Upsert(r)
		require.NoError(t, err)
	}

	dates, err := s.RunDates(models.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-01", "2024-05-03"}, dates)

	got, err := s.GetRecords(models.RecordFilter{DateFrom: "2024-05-02"}, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSeenIDsAppendOnly(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.CommitSeen(ctx, "arxiv", []string{"2405.00001", "2405.00002"}))
	require.NoError(t, s.CommitSeen(ctx, "arxiv", []string{"2405.00001"}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteDB(path)
	require.NoError(t, err)
	defer reopened.Close()

	seen, err := reopened.LoadSeen(ctx)
	require.NoError(t, err)
	assert.Len(t, seen["arxiv"], 2)
	assert.Contains(t, seen["arxiv"], "2405.00002")
}

func TestCorruptFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papersieve.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a sqlite database, just some bytes........"), 0644))

	_, err := NewSQLiteDB(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDedupStoreCorrupted)
}

func TestMissingFileStartsEmpty(t *testing.T) {
	s, _ := openTemp(t)
	seen, err := s.LoadSeen(context.Background())
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestCorpusReplace(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	snap, err := s.LoadCorpus(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	first := &models.CorpusSnapshot{
		Collections: []string{"Optics", "Empty"},
		Items: []models.CorpusItem{
			{Collection: "Optics", ItemKey: "K1", Title: "x", Embedding: []float32{1, 0}, AddedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		RefreshedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Model:       "m1",
	}
	require.NoError(t, s.ReplaceCorpus(ctx, first))

	second := &models.CorpusSnapshot{
		Collections: []string{"Quantum"},
		Items: []models.CorpusItem{
			{Collection: "Quantum", ItemKey: "K2", Embedding: []float32{0, 1}, AddedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		},
		RefreshedAt: time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC),
		Model:       "m1",
	}
	require.NoError(t, s.ReplaceCorpus(ctx, second))

	got, err := s.LoadCorpus(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"Quantum"}, got.Collections)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "K2", got.Items[0].ItemKey)
	assert.Equal(t, []float32{0, 1}, got.Items[0].Embedding)
	assert.True(t, second.RefreshedAt.Equal(got.RefreshedAt))
}
