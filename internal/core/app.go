package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	storage "PaperSieve/db"
	dbsqlite "PaperSieve/db/sqlite"
	"PaperSieve/internal/corpus"
	emb "PaperSieve/internal/embedding"
	"PaperSieve/internal/enrich"
	"PaperSieve/internal/gate"
	"PaperSieve/internal/platform"
	"PaperSieve/internal/ranker"
	"PaperSieve/internal/resolver"
	"PaperSieve/internal/websearch"
	"PaperSieve/pkg/logger"
	"PaperSieve/pkg/zotero"
)

// DateLayout run_date 与输出文件名使用的日期格式
const DateLayout = "2006-01-02"

// Source 一个已构造好的 feed 来源
type Source struct {
	Name       string
	Categories []string
	Platform   platform.Platform
}

// Components App 的全部协作者。NewApp 从配置构造，测试可以直接注入假实现
type Components struct {
	Store    storage.Store
	Sources  []Source
	Resolver *resolver.Resolver
	Embedder emb.Service
	Corpus   *corpus.Cache
	Ranker   *ranker.Ranker
	Gate     *gate.Gate
	Enricher *enrich.Pool

	DataDir            string
	MetricsTextfile    string
	WeeklyLookbackDays int
	FeiShu             FeiShuConfig
}

// App 流水线编排：daily 处理新论文，weekly 刷新语料后重排历史论文并回填增强
type App struct {
	Components
	log *logger.Logger
	now func() time.Time
}

func New(c Components) *App {
	if c.WeeklyLookbackDays <= 0 {
		c.WeeklyLookbackDays = DefaultPipelineConfig().WeeklyLookbackDays
	}
	return &App{Components: c, log: logger.WithPrefix("[pipeline]"), now: time.Now}
}

// NewApp 按配置构造全部组件。可选组件（元数据 API、搜索、Zotero、LLM）缺配置时降级并给出警告
func NewApp(opts Options) (*App, error) {
	if opts.DataDir == "" {
		homeDir, _ := os.UserHomeDir()
		opts.DataDir = filepath.Join(homeDir, ".papersieve", "data")
	}
	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	if opts.DatabasePath == "" {
		opts.DatabasePath = filepath.Join(opts.DataDir, "papersieve.db")
	}

	sqliteDB, err := dbsqlite.NewSQLiteDB(opts.DatabasePath)
	if err != nil {
		return nil, err
	}

	sources, err := buildSources(opts)
	if err != nil {
		sqliteDB.Close()
		return nil, err
	}

	embedSvc, err := emb.New(opts.Embedder)
	if err != nil {
		sqliteDB.Close()
		return nil, err
	}
	if opts.Embedder.APIKey == "" {
		logger.Warn("embedder.apikey 未配置，无法计算向量")
	}

	var search websearch.Provider
	if s, err := websearch.New(opts.WebSearch, NewHTTPClient(opts.WebSearch.Timeout, opts.WebSearch.Proxy)); err != nil {
		logger.Warn("通用搜索不可用，摘要补全只使用元数据 API: %v", err)
	} else {
		search = s
	}
	res := resolver.New(opts.Resolver, buildNatives(opts), search, opts.WebSearch)

	var library corpus.LibraryProvider
	if opts.Zotero.Configured() {
		client := zotero.NewClient(opts.Zotero.UserID, opts.Zotero.APIKey).
			WithLibraryType(opts.Zotero.LibraryType)
		library = corpus.NewZoteroLibrary(client, opts.Zotero.ItemTypes)
	} else {
		logger.Warn("zotero 配置不完整，只能使用已保存的语料快照")
	}

	summarizer, err := enrich.NewSummarizer(opts.LLM)
	if errors.Is(err, enrich.ErrNotConfigured) {
		logger.Warn("llm.api_key 未配置，排队的论文会被标记为 error")
		summarizer = enrich.Disabled(err)
	} else if err != nil {
		sqliteDB.Close()
		return nil, err
	}

	return New(Components{
		Store:    sqliteDB,
		Sources:  sources,
		Resolver: res,
		Embedder: embedSvc,
		Corpus:   corpus.New(opts.Corpus, library, embedSvc, sqliteDB),
		Ranker:   ranker.New(opts.Ranker),
		Gate:     gate.New(opts.Gate),
		Enricher: enrich.NewPool(enrich.PoolConfig{
			Workers: opts.Pipeline.Workers,
			Timeout: opts.Pipeline.EnrichTimeout,
		}, summarizer),
		DataDir:            opts.DataDir,
		MetricsTextfile:    opts.MetricsTextfile,
		WeeklyLookbackDays: opts.Pipeline.WeeklyLookbackDays,
		FeiShu:             opts.FeiShu,
	}), nil
}

func buildSources(opts Options) ([]Source, error) {
	var out []Source
	for _, spec := range opts.Sources {
		prov, ok := Get(spec.Name)
		if !ok {
			return nil, fmt.Errorf("未知或未实现的来源: %s（可用: %v）", spec.Name, List())
		}
		pcfg, ok := opts.Platforms[spec.Name]
		if !ok || pcfg == nil {
			logger.Debug("使用平台默认配置: %s", spec.Name)
			pcfg = prov.DefaultConfig()
		}
		plat, err := prov.New(pcfg)
		if err != nil {
			return nil, fmt.Errorf("创建平台实例失败 [%s]: %w", spec.Name, err)
		}
		out = append(out, Source{Name: spec.Name, Categories: spec.Categories, Platform: plat})
	}
	return out, nil
}

// buildNatives 来源名 -> 元数据 API；构造失败（例如缺 key）只降级到通用搜索
func buildNatives(opts Options) map[string]platform.NativeLookup {
	natives := make(map[string]platform.NativeLookup)
	built := make(map[string]platform.NativeLookup)
	for _, spec := range opts.Sources {
		name := spec.NativeName()
		if name == "" {
			continue
		}
		if l, ok := built[name]; ok {
			natives[spec.Name] = l
			continue
		}
		lp, ok := GetLookup(name)
		if !ok {
			logger.Warn("未知的元数据 API %s（来源 %s），跳过", name, spec.Name)
			continue
		}
		cfg, ok := opts.Lookups[name]
		if !ok || cfg == nil {
			cfg = lp.DefaultConfig()
		}
		l, err := lp.New(cfg)
		if err != nil {
			logger.Warn("元数据 API %s 不可用: %v", name, err)
			continue
		}
		built[name] = l
		natives[spec.Name] = l
	}
	return natives
}

func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

func (a *App) cacheDir() string {
	return filepath.Join(a.DataDir, "cache")
}
