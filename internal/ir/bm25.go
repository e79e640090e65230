package ir

import (
	"math"
	"sort"
)

// SearchResult 检索结果，DocID 与 AddDocuments 分配的编号一致
type SearchResult struct {
	DocID int64
	Score float64
}

// BM25Searcher BM25 搜索器
type BM25Searcher struct {
	index       *InvertedIndex
	tokenizer   *Tokenizer
	k1          float64 // 词频饱和度参数，默认 1.5
	b           float64 // 长度归一化参数，默认 0.75
	titleWeight float64 // 标题字段权重，默认 2.0
}

func NewBM25Searcher(index *InvertedIndex, tokenizer *Tokenizer) *BM25Searcher {
	return &BM25Searcher{
		index:       index,
		tokenizer:   tokenizer,
		k1:          1.5,
		b:           0.75,
		titleWeight: 2.0,
	}
}

// Search 执行 BM25 搜索，按分数降序返回前 topK 个
func (s *BM25Searcher) Search(query string, topK int) []*SearchResult {
	queryTerms := s.tokenizer.Tokenize(query)
	if len(queryTerms) == 0 {
		return make([]*SearchResult, 0)
	}

	candidateDocs := make(map[int64]bool)
	for _, term := range queryTerms {
		for _, posting := range s.index.GetPostingList(term) {
			candidateDocs[posting.DocID] = true
		}
	}

	results := make([]*SearchResult, 0, len(candidateDocs))
	for docID := range candidateDocs {
		results = append(results, &SearchResult{
			DocID: docID,
			Score: s.computeDocumentScore(queryTerms, docID),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].DocID < results[j].DocID
		}
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// computeIDF BM25 的 IDF；小数据集上使用 log(N/df) 这个更平滑的版本
func (s *BM25Searcher) computeIDF(term string) float64 {
	df := s.index.GetDocumentFrequency(term)
	totalDocs := s.index.GetTotalDocs()

	if totalDocs == 0 {
		return 0
	}
	if df == 0 {
		// 未出现的词按最稀有处理，只用于归一化的分母
		return math.Log(float64(totalDocs) + 1)
	}
	if df == totalDocs {
		// 如果词在所有文档中都出现，给予最小的IDF
		return 0.1
	}
	return math.Log(float64(totalDocs) / float64(df))
}

// saturation 词频饱和项 tf*(k1+1) / (tf + k1*(1-b+b*|d|/avgdl))
func (s *BM25Searcher) saturation(tf int, docID int64) float64 {
	avgDocLength := s.index.GetAverageDocumentLength()
	if avgDocLength == 0 {
		return 0
	}
	docLength := float64(s.index.GetDocumentLength(docID))
	numerator := float64(tf) * (s.k1 + 1)
	denominator := float64(tf) + s.k1*(1-s.b+s.b*docLength/avgDocLength)
	return numerator / denominator
}

// computeDocumentScore 查询与文档的总 BM25 分数，标题中的词按 titleWeight 加权
func (s *BM25Searcher) computeDocumentScore(queryTerms []string, docID int64) float64 {
	if s.index.GetDocumentLength(docID) == 0 {
		return 0
	}

	var totalScore float64
	for _, term := range queryTerms {
		posting, ok := s.index.GetPosting(term, docID)
		if !ok || posting.TermFreq == 0 {
			continue
		}
		score := s.computeIDF(term) * s.saturation(posting.TermFreq, docID)
		if posting.TitleFreq > 0 {
			titleProportion := float64(posting.TitleFreq) / float64(posting.TermFreq)
			score *= 1 + (s.titleWeight-1)*titleProportion
		}
		totalScore += score
	}
	return totalScore
}

// NormalizedScore 把 BM25 分数映射到 [0,1]：
// 分母是每个查询词都在该文档标题中出现一次时的分数
func (s *BM25Searcher) NormalizedScore(query string, docID int64) float64 {
	queryTerms := s.tokenizer.Tokenize(query)
	if len(queryTerms) == 0 || s.index.GetDocumentLength(docID) == 0 {
		return 0
	}

	sat := s.saturation(1, docID)
	var ideal float64
	for _, term := range queryTerms {
		ideal += s.computeIDF(term) * sat * s.titleWeight
	}
	if ideal == 0 {
		return 0
	}
	return math.Min(1, s.computeDocumentScore(queryTerms, docID)/ideal)
}
