package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// MaxKey ScoreMap 序列化时的合成键
const MaxKey = "max"

// ScoreMap collection -> 非负分数，外加合成的 max（所有 collection 分数的最大值）
type ScoreMap struct {
	scores map[string]float64
	max    float64
}

// NewScoreMap 从普通 map 构造，负分会被截断为 0
func NewScoreMap(scores map[string]float64) ScoreMap {
	var m ScoreMap
	for name, s := range scores {
		m.Set(name, s)
	}
	return m
}

// SafeCollectionName 与合成键冲突的 collection 名改写为 max_
func SafeCollectionName(name string) string {
	if name == MaxKey {
		return MaxKey + "_"
	}
	return name
}

func (m *ScoreMap) Set(collection string, score float64) {
	if m.scores == nil {
		m.scores = make(map[string]float64)
	}
	if score < 0 {
		score = 0
	}
	collection = SafeCollectionName(collection)
	m.scores[collection] = score
	m.recompute()
}

func (m *ScoreMap) recompute() {
	m.max = 0
	for _, s := range m.scores {
		if s > m.max {
			m.max = s
		}
	}
}

func (m ScoreMap) Get(collection string) (float64, bool) {
	s, ok := m.scores[SafeCollectionName(collection)]
	return s, ok
}

func (m ScoreMap) Max() float64 { return m.max }

func (m ScoreMap) Len() int { return len(m.scores) }

func (m ScoreMap) Empty() bool { return len(m.scores) == 0 }

// Ranked 按分数降序返回 collection 名，分数相同按名字排序
func (m ScoreMap) Ranked() []string {
	names := make([]string, 0, len(m.scores))
	for n := range m.scores {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		si, sj := m.scores[names[i]], m.scores[names[j]]
		if si != sj {
			return si > sj
		}
		return names[i] < names[j]
	})
	return names
}

// Map 返回拷贝（不含 max）
func (m ScoreMap) Map() map[string]float64 {
	out := make(map[string]float64, len(m.scores))
	for k, v := range m.scores {
		out[k] = v
	}
	return out
}

// Equal 两个 ScoreMap 的内容是否一致
func (m ScoreMap) Equal(o ScoreMap) bool {
	if len(m.scores) != len(o.scores) || m.max != o.max {
		return false
	}
	for k, v := range m.scores {
		if ov, ok := o.scores[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// MarshalJSON 按分数降序输出，max 放在最后；空 map 输出 {}
func (m ScoreMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.Ranked() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.scores[name])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	if len(m.scores) > 0 {
		v, err := json.Marshal(m.max)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"` + MaxKey + `":`)
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON max 由其余分数重新计算，不信任输入里的值
func (m *ScoreMap) UnmarshalJSON(data []byte) error {
	raw := map[string]float64{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid score map: %w", err)
	}
	m.scores = nil
	m.max = 0
	for k, v := range raw {
		if k == MaxKey {
			continue
		}
		if m.scores == nil {
			m.scores = make(map[string]float64)
		}
		if v < 0 {
			v = 0
		}
		m.scores[k] = v
	}
	m.recompute()
	return nil
}
