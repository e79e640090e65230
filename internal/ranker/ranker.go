// Package ranker 按参考库计算每篇论文在各 collection 下的相关度：
// score(p, c) = max_i cos(p, e_i) * decay(t_i)，再乘以 scale。
package ranker

import (
	"fmt"
	"sort"
	"time"

	"PaperSieve/internal/models"
	"PaperSieve/pkg/logger"
	"PaperSieve/pkg/similarity"
)

const (
	RecommendFloor  = "floor"
	RecommendMargin = "margin"
)

type Config struct {
	HalfLifeDays    float64 `mapstructure:"half_life_days" yaml:"half_life_days"`
	DecayFloor      float64 `mapstructure:"decay_floor" yaml:"decay_floor"`
	Scale           float64 `mapstructure:"scale" yaml:"scale"`
	RecommendMode   string  `mapstructure:"recommend_mode" yaml:"recommend_mode"`
	RecommendFloor  float64 `mapstructure:"recommend_floor" yaml:"recommend_floor"`
	RecommendMargin float64 `mapstructure:"recommend_margin" yaml:"recommend_margin"`
}

func DefaultConfig() Config {
	return Config{
		HalfLifeDays:    90,
		DecayFloor:      0.1,
		Scale:           10,
		RecommendMode:   RecommendFloor,
		RecommendFloor:  4.0,
		RecommendMargin: 0.5,
	}
}

func (c Config) Validate() error {
	if c.HalfLifeDays <= 0 {
		return fmt.Errorf("ranker.half_life_days 必须大于 0")
	}
	if c.DecayFloor < 0 || c.DecayFloor > 1 {
		return fmt.Errorf("ranker.decay_floor 必须在 [0,1] 之间")
	}
	if c.Scale <= 0 {
		return fmt.Errorf("ranker.scale 必须大于 0")
	}
	switch c.RecommendMode {
	case RecommendFloor, RecommendMargin:
	default:
		return fmt.Errorf("未知的 ranker.recommend_mode: %q", c.RecommendMode)
	}
	return nil
}

type Ranker struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Ranker {
	return &Ranker{cfg: cfg, now: time.Now}
}

// weightedItem 预先算好衰减的参考条目
type weightedItem struct {
	vec   []float32
	decay float64
}

// Index 一次快照对应的打分索引，Rank 时复用
type Index struct {
	collections []string
	items       map[string][]weightedItem
}

// BuildIndex 按 collection 分组并计算每个条目的衰减
func (r *Ranker) BuildIndex(snap *models.CorpusSnapshot) *Index {
	idx := &Index{items: make(map[string][]weightedItem)}
	if snap == nil {
		return idx
	}
	now := r.now()
	idx.collections = append(idx.collections, snap.Collections...)
	for _, it := range snap.Items {
		if len(it.Embedding) == 0 {
			continue
		}
		idx.items[it.Collection] = append(idx.items[it.Collection], weightedItem{
			vec:   it.Embedding,
			decay: Decay(it.AddedAt, now, r.cfg.HalfLifeDays, r.cfg.DecayFloor),
		})
	}
	return idx
}

// Score 论文向量在每个 collection 下的分数；没有可用条目的 collection 为 0
func (r *Ranker) Score(vec []float32, idx *Index) models.ScoreMap {
	var sm models.ScoreMap
	for _, col := range idx.collections {
		best := 0.0
		if len(vec) > 0 {
			for _, it := range idx.items[col] {
				if s := similarity.CosineSimilarity(vec, it.vec) * it.decay; s > best {
					best = s
				}
			}
		}
		sm.Set(col, best*r.cfg.Scale)
	}
	return sm
}

// Recommend 推荐的 collection：只考虑分数 > 0 的。
// margin 模式取 >= max-margin 的；floor 模式取 > floor 的，都不满足时退回最高分那个
func (r *Ranker) Recommend(sm models.ScoreMap) []string {
	out := []string{}
	if sm.Max() <= 0 {
		return out
	}
	ranked := sm.Ranked()
	for _, name := range ranked {
		s, _ := sm.Get(name)
		if s <= 0 {
			continue
		}
		switch r.cfg.RecommendMode {
		case RecommendMargin:
			if s >= sm.Max()-r.cfg.RecommendMargin {
				out = append(out, name)
			}
		default:
			if s > r.cfg.RecommendFloor {
				out = append(out, name)
			}
		}
	}
	if len(out) == 0 {
		out = append(out, ranked[0])
	}
	return out
}

// Rank 为每篇论文写入分数和推荐 collection
func (r *Ranker) Rank(papers []*models.PaperRecord, snap *models.CorpusSnapshot) {
	idx := r.BuildIndex(snap)
	var noVec int
	for _, p := range papers {
		if len(p.Embedding) == 0 {
			noVec++
		}
		p.Score = r.Score(p.Embedding, idx)
		p.Recommended = r.Recommend(p.Score)
	}
	if noVec > 0 {
		logger.Warn("%d 篇论文没有向量，分数记为 0", noVec)
	}
}

// SortByScore 按 max 分数降序，分数相同按 ID 排序
func SortByScore(papers []*models.PaperRecord) {
	sort.SliceStable(papers, func(i, j int) bool {
		if papers[i].Score.Max() != papers[j].Score.Max() {
			return papers[i].Score.Max() > papers[j].Score.Max()
		}
		return papers[i].ID < papers[j].ID
	})
}
