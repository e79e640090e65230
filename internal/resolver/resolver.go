package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PaperSieve/internal/ir"
	"PaperSieve/internal/metrics"
	"PaperSieve/internal/models"
	"PaperSieve/internal/platform"
	"PaperSieve/internal/websearch"
	"PaperSieve/pkg/logger"
	"PaperSieve/pkg/retry"
)

// Config resolver.* 配置
type Config struct {
	FallbackAttempts int           `mapstructure:"fallback_attempts" yaml:"fallback_attempts"`
	PaperTimeout     time.Duration `mapstructure:"paper_timeout" yaml:"paper_timeout"`
	CallTimeout      time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`
	Backoff          time.Duration `mapstructure:"backoff" yaml:"backoff"`
	MaxAbstractChars int           `mapstructure:"max_abstract_chars" yaml:"max_abstract_chars"`
}

func DefaultConfig() Config {
	return Config{
		FallbackAttempts: 3,
		PaperTimeout:     60 * time.Second,
		CallTimeout:      20 * time.Second,
		Backoff:          time.Second,
		MaxAbstractChars: 3000,
	}
}

// Resolver 摘要补全：native 元数据 API -> 通用网页搜索 -> 放弃
type Resolver struct {
	cfg        Config
	natives    map[string]platform.NativeLookup // source -> lookup
	search     websearch.Provider
	maxResults int
	minMatch   float64
	matcher    *ir.Matcher
	prefetched map[string]*platform.NativeMeta // PaperRecord.Key() -> meta
	log        *logger.Logger
}

// New natives 按来源名索引；search 为 nil 时跳过兜底
func New(cfg Config, natives map[string]platform.NativeLookup, search websearch.Provider, searchCfg websearch.Config) *Resolver {
	if natives == nil {
		natives = map[string]platform.NativeLookup{}
	}
	return &Resolver{
		cfg:        cfg,
		natives:    natives,
		search:     search,
		maxResults: searchCfg.MaxResults,
		minMatch:   searchCfg.MinMatch,
		matcher:    ir.NewMatcher(),
		prefetched: make(map[string]*platform.NativeMeta),
		log:        logger.WithPrefix("[resolver]"),
	}
}

// Prefetch 对支持批量查询的 native API 先批量拉取，减少单篇请求
func (r *Resolver) Prefetch(ctx context.Context, papers []*models.PaperRecord) {
	bySource := make(map[string][]*models.PaperRecord)
	for _, p := range papers {
		if p.HasAbstract() {
			continue
		}
		if _, ok := r.natives[p.Source].(platform.BatchLookup); ok {
			bySource[p.Source] = append(bySource[p.Source], p)
		}
	}

	for source, list := range bySource {
		bl := r.natives[source].(platform.BatchLookup)
		size := max(bl.BatchSize(), 1)
		for start := 0; start < len(list); start += size {
			batch := list[start:min(start+size, len(list))]
			callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
			metas, err := bl.LookupBatch(callCtx, batch)
			cancel()
			if err != nil {
				r.log.Warn("%s 批量查询失败（%d 篇），稍后逐篇重试: %v", bl.Name(), len(batch), err)
				continue
			}
			for _, p := range batch {
				// 批量已经查过但没有结果的也记下来，避免重复请求
				r.prefetched[p.Key()] = metas[p.ID]
			}
		}
		r.log.Debug("%s 批量预取完成: %d 篇", source, len(list))
	}
}

// machine 单篇论文的运行时状态
type machine struct {
	state   State
	used    int // 已消耗的兜底查询次数
	variant int
	lastErr error
}

// Resolve 为缺摘要的论文补全摘要。每篇论文有独立超时，错误不会影响其他论文。
// 返回终态；Exhausted 时错误包装 models.ErrAbstractUnavailable
func (r *Resolver) Resolve(ctx context.Context, p *models.PaperRecord) (State, error) {
	if p.HasAbstract() {
		if p.AbstractStatus == "" || p.AbstractStatus == models.AbstractNotAttempted {
			p.AbstractStatus = models.AbstractPresent
		}
		return Resolved, nil
	}

	paperCtx, cancel := context.WithTimeout(ctx, r.cfg.PaperTimeout)
	defer cancel()

	m := &machine{state: NeedsAbstract}
	for !m.state.Terminal() {
		ev := r.step(paperCtx, m, p)
		next := Transition(m.state, ev)
		r.log.Debug("%s: %s -> %s", p.Key(), m.state, next)
		m.state = next
	}

	metrics.AbstractResolution.WithLabelValues(m.state.String()).Inc()
	if m.state == Exhausted {
		p.AbstractStatus = models.AbstractExhausted
		if m.lastErr != nil {
			return Exhausted, fmt.Errorf("%w: %s: %v", models.ErrAbstractUnavailable, p.Key(), m.lastErr)
		}
		return Exhausted, fmt.Errorf("%w: %s", models.ErrAbstractUnavailable, p.Key())
	}
	return Resolved, nil
}

// ResolveAll 顺序处理；ctx 被取消时停止并返回 ctx 错误
func (r *Resolver) ResolveAll(ctx context.Context, papers []*models.PaperRecord) (resolved, exhausted int, err error) {
	r.Prefetch(ctx, papers)
	for _, p := range papers {
		if err := ctx.Err(); err != nil {
			return resolved, exhausted, err
		}
		if p.HasAbstract() {
			r.Resolve(ctx, p)
			continue
		}
		state, rerr := r.Resolve(ctx, p)
		if state == Exhausted {
			exhausted++
			r.log.Warn("摘要补全失败，将只用标题: %v", rerr)
			continue
		}
		resolved++
	}
	return resolved, exhausted, nil
}

func (r *Resolver) step(ctx context.Context, m *machine, p *models.PaperRecord) Event {
	if err := ctx.Err(); err != nil {
		m.lastErr = err
		return EvFatal
	}
	switch m.state {
	case NeedsAbstract:
		if _, ok := r.natives[p.Source]; ok {
			return EvHasNative
		}
		return EvNoNative
	case TryNative:
		return r.tryNative(ctx, m, p)
	case TryFallback:
		return r.tryFallback(ctx, m, p)
	}
	return EvFatal
}

func (r *Resolver) tryNative(ctx context.Context, m *machine, p *models.PaperRecord) Event {
	native := r.natives[p.Source]

	meta, ok := r.prefetched[p.Key()]
	if !ok {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		var err error
		meta, err = native.Lookup(callCtx, p)
		cancel()
		if err != nil {
			m.lastErr = err
			r.log.Debug("%s native 查询失败: %v", p.Key(), err)
			return EvMiss
		}
	}
	if meta == nil {
		return EvMiss
	}

	applyMeta(p, meta)
	if meta.Abstract == "" {
		return EvMiss
	}
	p.Abstract = truncate(meta.Abstract, r.cfg.MaxAbstractChars)
	p.AbstractStatus = models.AbstractNative
	return EvFound
}

// applyMeta native API 顺带返回的类别、期刊和作者只补空缺，不覆盖 feed 里已有的
func applyMeta(p *models.PaperRecord, meta *platform.NativeMeta) {
	if len(p.Categories) == 0 {
		p.MergeCategories(meta.Categories...)
	}
	if p.Journal == "" {
		p.Journal = meta.Journal
	}
	if len(p.Authors) == 0 && len(meta.Authors) > 0 {
		p.Authors = meta.Authors
	}
}

func (r *Resolver) tryFallback(ctx context.Context, m *machine, p *models.PaperRecord) Event {
	if r.search == nil || m.used >= r.cfg.FallbackAttempts {
		return EvBudgetSpent
	}

	variants := queryVariants(p)
	query := variants[min(m.variant, len(variants)-1)]

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	results, err := r.search.Search(callCtx, query, r.maxResults)
	cancel()
	// 单次调用超时（callCtx 或 http.Client）而整篇预算还在，按可重试处理
	callTimedOut := errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil

	switch {
	case err == nil:
		m.used++
		if hit, ok := pickResult(r.matcher, p, results, r.minMatch); ok {
			if abstract := extractAbstract(hit.Text(), r.cfg.MaxAbstractChars); abstract != "" {
				p.Abstract = abstract
				p.AbstractStatus = models.AbstractFallback
				r.log.Debug("%s 通过 %s 找到摘要: %s", p.Key(), r.search.Name(), hit.URL)
				return EvFound
			}
		}
		m.variant++
		return r.afterAttempt(m, EvNoMatch)

	case errors.Is(err, websearch.ErrNoResults):
		m.used++
		m.variant++
		return r.afterAttempt(m, EvNoMatch)

	case websearch.IsTransient(err) || callTimedOut:
		m.used++
		m.lastErr = err
		if m.used >= r.cfg.FallbackAttempts {
			return EvBudgetSpent
		}
		backoff := retry.Config{InitialDelay: r.cfg.Backoff, MaxDelay: 8 * r.cfg.Backoff}.Backoff(m.used)
		r.log.Debug("%s 搜索暂时失败，%v 后重试: %v", p.Key(), backoff, err)
		if serr := retry.Sleep(ctx, backoff); serr != nil {
			m.lastErr = serr
			return EvFatal
		}
		return EvTransient

	default:
		// 不可重试的错误（缺 key、4xx、请求构造失败、整篇超时）不消耗预算，直接放弃
		m.lastErr = err
		return EvFatal
	}
}

func (r *Resolver) afterAttempt(m *machine, ev Event) Event {
	if m.used >= r.cfg.FallbackAttempts {
		return EvBudgetSpent
	}
	return ev
}
