package core

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storage "PaperSieve/db"
	dbsqlite "PaperSieve/db/sqlite"
	"PaperSieve/internal/core/export/jsonl"
	"PaperSieve/internal/corpus"
	emb "PaperSieve/internal/embedding"
	"PaperSieve/internal/enrich"
	"PaperSieve/internal/gate"
	"PaperSieve/internal/models"
	"PaperSieve/internal/platform"
	"PaperSieve/internal/ranker"
	"PaperSieve/internal/resolver"
	"PaperSieve/internal/websearch"
)

type fakePlatform struct {
	name    string
	entries []platform.RawEntry
	err     error
	calls   int
}

func (f *fakePlatform) Name() string               { return f.name }
func (f *fakePlatform) GetConfig() platform.Config { return nil }
func (f *fakePlatform) Fetch(ctx context.Context, categories []string) ([]platform.RawEntry, error) {
	f.calls++
	return f.entries, f.err
}

func arxivEntry(id, title, abstract string) platform.RawEntry {
	desc := "arXiv:" + id + "v1 Announce Type: new"
	if abstract != "" {
		desc += "\nAbstract: " + abstract
	}
	return platform.RawEntry{
		Source:      "arxiv",
		Category:    "physics.optics",
		GUID:        "oai:arXiv.org:" + id + "v1",
		Title:       title,
		Description: desc,
		Authors:     []string{"Alice, Bob"},
		Tags:        []string{"physics.optics"},
	}
}

type fixture struct {
	app      *App
	store    *dbsqlite.SQLiteDB
	plat     *fakePlatform
	library  *corpus.StaticLibrary
	embedder *emb.Fake
	llm      *enrich.FakeSummarizer
	search   *websearch.MockProvider
	dataDir  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := dbsqlite.NewSQLiteDB(filepath.Join(dir, "papersieve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:    store,
		dataDir:  dir,
		embedder: emb.NewFake(8),
		llm:      &enrich.FakeSummarizer{},
		search:   websearch.NewMockProvider(websearch.MockReply{Err: websearch.ErrNoResults}),
		plat: &fakePlatform{name: "arxiv", entries: []platform.RawEntry{
			arxivEntry("2401.00001", "A lasing paper", "ring laser"),
			arxivEntry("2401.00002", "Unrelated", "biology"),
			arxivEntry("2401.00003", "No abstract here", ""),
			{Source: "arxiv", Title: "missing id"},
		}},
		library: &corpus.StaticLibrary{Collections: []corpus.Collection{
			{Name: "Optics", Items: []corpus.LibraryItem{
				{Key: "K1", Title: "Ref optics", Abstract: "lasers", AddedAt: time.Now()},
			}},
			{Name: "Empty"},
		}},
	}
	f.embedder.Vectors["Ref optics\n\nlasers"] = []float32{1, 0, 0, 0, 0, 0, 0, 0}
	f.embedder.Vectors["A lasing paper\n\nring laser"] = []float32{1, 0, 0, 0, 0, 0, 0, 0}
	f.embedder.Vectors["Unrelated\n\nbiology"] = []float32{0, 1, 0, 0, 0, 0, 0, 0}
	f.embedder.Vectors["No abstract here"] = []float32{0, 0, 1, 0, 0, 0, 0, 0}

	f.app = f.build(store)
	return f
}

func (f *fixture) build(store storage.Store) *App {
	rcfg := resolver.DefaultConfig()
	rcfg.Backoff = time.Millisecond
	return New(Components{
		Store:    store,
		Sources:  []Source{{Name: "arxiv", Categories: []string{"physics.optics"}, Platform: f.plat}},
		Resolver: resolver.New(rcfg, nil, f.search, websearch.DefaultConfig()),
		Embedder: f.embedder,
		Corpus:   corpus.New(corpus.DefaultConfig(), f.library, f.embedder, store),
		Ranker:   ranker.New(ranker.DefaultConfig()),
		Gate:     gate.New(gate.DefaultConfig()),
		Enricher: enrich.NewPool(enrich.PoolConfig{Workers: 2, Timeout: time.Second}, f.llm),
		DataDir:  f.dataDir,
	})
}

func byID(papers []*models.PaperRecord) map[string]*models.PaperRecord {
	out := make(map[string]*models.PaperRecord, len(papers))
	for _, p := range papers {
		out[p.ID] = p
	}
	return out
}

func TestRunDaily_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sum, err := f.app.RunDaily(ctx, "2024-01-02")
	require.NoError(t, err)

	ss := sum.Source("arxiv")
	assert.Equal(t, 4, ss.Total)
	assert.Equal(t, 1, ss.Malformed)
	assert.Equal(t, 3, ss.New)
	assert.Equal(t, 2, ss.WithAbstract)
	assert.Equal(t, 1, ss.Queued)
	assert.Equal(t, 1, ss.Success)
	assert.Equal(t, 2, ss.Skip)
	assert.Equal(t, "2024-01-02_arxiv.jsonl", ss.OutputFile)

	records, err := f.store.GetRecords(models.RecordFilter{DateFrom: "2024-01-02", DateTo: "2024-01-02"}, "fake")
	require.NoError(t, err)
	require.Len(t, records, 3)
	got := byID(records)

	hit := got["2401.00001"]
	assert.InDelta(t, 10.0, hit.Score.Max(), 0.01)
	assert.Equal(t, []string{"Optics"}, hit.Recommended)
	assert.Equal(t, models.EnrichSuccess, hit.EnrichStatus)
	require.NotNil(t, hit.Enrichment)
	assert.NotEmpty(t, hit.Embedding)

	miss := got["2401.00002"]
	assert.Equal(t, models.EnrichSkip, miss.EnrichStatus)
	assert.Nil(t, miss.Enrichment)
	s, ok := miss.Score.Get("Empty")
	assert.True(t, ok)
	assert.Zero(t, s)

	// 摘要补全失败的论文仍然进入排序，只用标题向量化
	noAbs := got["2401.00003"]
	assert.Equal(t, models.AbstractExhausted, noAbs.AbstractStatus)
	assert.Empty(t, noAbs.Abstract)
	assert.Contains(t, f.embedder.Texts, "No abstract here")
	assert.Len(t, f.search.Queries, 3)

	// 输出文件按 max 降序
	out, err := jsonl.Read(filepath.Join(f.dataDir, "2024-01-02_arxiv.jsonl"))
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "2401.00001", out[0].ID)

	raw, err := os.ReadFile(filepath.Join(f.dataDir, "cache", "update.json"))
	require.NoError(t, err)
	var saved models.RunSummary
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, sum.RunID, saved.RunID)
	assert.Equal(t, "daily", saved.Mode)

	list, err := os.ReadFile(filepath.Join(f.dataDir, "cache", "file-list.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02_arxiv.jsonl\n", string(list))
}

func TestRunDaily_SecondRunIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.app.RunDaily(ctx, "2024-01-02")
	require.NoError(t, err)
	calls := f.llm.Calls()
	before, err := f.store.CountRecords(models.RecordFilter{})
	require.NoError(t, err)

	sum, err := f.app.RunDaily(ctx, "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Source("arxiv").New)

	after, err := f.store.CountRecords(models.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, calls, f.llm.Calls(), "不应再次调用 LLM")
	assert.NoFileExists(t, filepath.Join(f.dataDir, "2024-01-03_arxiv.jsonl"))
}

func TestRunDaily_EnrichmentErrorIsNonFatal(t *testing.T) {
	f := newFixture(t)
	f.llm.Errs = map[string]error{"arxiv:2401.00001": models.ErrEnrichmentFailed}

	sum, err := f.app.RunDaily(context.Background(), "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Source("arxiv").Error)

	records, err := f.store.GetRecords(models.RecordFilter{Statuses: []models.EnrichStatus{models.EnrichError}}, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].EnrichError, "enrichment failed")
}

type corruptedStore struct {
	storage.Store
}

func (corruptedStore) CheckIntegrity(ctx context.Context) error {
	return models.ErrDedupStoreCorrupted
}

func TestRunDaily_CorruptedDedupStoreAborts(t *testing.T) {
	f := newFixture(t)
	app := f.build(corruptedStore{f.store})

	sum, err := app.RunDaily(context.Background(), "2024-01-02")
	assert.ErrorIs(t, err, models.ErrDedupStoreCorrupted)
	assert.NotEmpty(t, sum.Err)
	assert.Zero(t, f.plat.calls, "去重库损坏时不应抓取")
	assert.Zero(t, f.llm.Calls())
}

func TestRunDaily_BadDate(t *testing.T) {
	f := newFixture(t)
	_, err := f.app.RunDaily(context.Background(), "02/01/2024")
	assert.Error(t, err)
}

func TestRunDaily_FetchErrorKeepsPartialEntries(t *testing.T) {
	f := newFixture(t)
	f.plat.err = errors.New("nphoton: HTTP 503")

	sum, err := f.app.RunDaily(context.Background(), "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Source("arxiv").New)
	assert.Contains(t, sum.Source("arxiv").Err, "503")
}

func TestRunWeekly_BackfillsAfterCorpusChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.app.now = func() time.Time { return time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC) }

	_, err := f.app.RunDaily(ctx, "2024-01-02")
	require.NoError(t, err)
	require.Equal(t, 1, f.llm.Calls())

	// 新增一个与 "Unrelated" 相同的参考条目，weekly 后它应被重新排队
	f.embedder.Vectors["Bio ref\n\nbiology"] = []float32{0, 1, 0, 0, 0, 0, 0, 0}
	f.library.Collections = append(f.library.Collections, corpus.Collection{
		Name:  "Biology",
		Items: []corpus.LibraryItem{{Key: "K2", Title: "Bio ref", Abstract: "biology", AddedAt: time.Now()}},
	})

	f.app.now = func() time.Time { return time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC) }
	sum, err := f.app.RunWeekly(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "weekly", sum.Mode)
	assert.Equal(t, 3, sum.Source("arxiv").Total)
	assert.Equal(t, 1, sum.Source("arxiv").Queued)
	assert.Equal(t, 2, f.llm.Calls(), "已成功增强的论文不会重复调用")
	assert.Equal(t, 2, f.library.Calls, "weekly 必须强制刷新语料")

	records, err := f.store.GetRecords(models.RecordFilter{}, "")
	require.NoError(t, err)
	got := byID(records)
	assert.Equal(t, models.EnrichSuccess, got["2401.00002"].EnrichStatus)
	assert.Equal(t, []string{"Biology"}, got["2401.00002"].Recommended)
	assert.Equal(t, models.EnrichSkip, got["2401.00003"].EnrichStatus)

	out, err := jsonl.Read(filepath.Join(f.dataDir, "2024-01-02_arxiv.jsonl"))
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, models.EnrichSuccess, byID(out)["2401.00002"].EnrichStatus)
}

func TestRunWeekly_LookbackWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.app.RunDaily(ctx, "2023-06-01")
	require.NoError(t, err)

	f.app.now = func() time.Time { return time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC) }
	sum, err := f.app.RunWeekly(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, sum.Source("arxiv").Total)

	sum, err = f.app.RunWeekly(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "weekly-full", sum.Mode)
	assert.Equal(t, 3, sum.Source("arxiv").Total)
}

func TestRunWeekly_ForcedRefreshFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.app.RunDaily(ctx, "2024-01-02")
	require.NoError(t, err)

	f.library.Err = errors.New("zotero: 503")
	_, err = f.app.RunWeekly(ctx, false)
	assert.ErrorIs(t, err, models.ErrCorpusRefreshFailed)

	// daily 仍可使用旧快照
	_, err = f.app.RunDaily(ctx, "2024-01-03")
	assert.NoError(t, err)
}

func TestExportPapers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.app.RunDaily(ctx, "2024-01-02")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	n, err := f.app.ExportPapers(ctx, "2024-01-02", "csv", path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "A lasing paper"))

	_, err = f.app.ExportPapers(ctx, "2024-01-02", "xml", path, nil)
	assert.Error(t, err)
	_, err = f.app.ExportPapers(ctx, "1999-01-01", "jsonl", path, nil)
	assert.Error(t, err)

	_, err = f.app.ExportToFeiShuBitable(ctx, "2024-01-02", nil)
	assert.ErrorContains(t, err, "feishu 配置不完整")
}

func TestSourceSpecNativeName(t *testing.T) {
	assert.Equal(t, "springer", SourceSpec{Name: "nature"}.NativeName())
	assert.Equal(t, "semantic", SourceSpec{Name: "nature", Native: "semantic"}.NativeName())
	assert.Equal(t, "", SourceSpec{Name: "arxiv", Native: "none"}.NativeName())
	assert.Equal(t, "", SourceSpec{Name: "unknown"}.NativeName())
}
