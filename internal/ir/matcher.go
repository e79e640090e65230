package ir

// Matcher 在一组候选文档中找出与查询标题最匹配的一个
type Matcher struct {
	tokenizer *Tokenizer
}

func NewMatcher() *Matcher {
	return &Matcher{tokenizer: NewTokenizer()}
}

// Best 返回最佳文档下标和 [0,1] 的归一化分数；没有任何命中时返回 -1
func (m *Matcher) Best(query string, docs []Document) (int, float64) {
	if len(docs) == 0 || len(m.tokenizer.Tokenize(query)) == 0 {
		return -1, 0
	}

	index := NewInvertedIndex(m.tokenizer)
	index.AddDocuments(docs)
	searcher := NewBM25Searcher(index, m.tokenizer)

	best, bestScore := -1, 0.0
	for _, r := range searcher.Search(query, 0) {
		score := searcher.NormalizedScore(query, r.DocID)
		if score > bestScore {
			best, bestScore = int(r.DocID-1), score
		}
	}
	return best, bestScore
}
