package ir

import (
	"sync"
)

// Document 被索引的文档：标题 + 正文（摘要或搜索片段）
type Document struct {
	Title string
	Body  string
}

// Posting 倒排索引中的 posting 条目
type Posting struct {
	DocID     int64 // 文档ID
	TermFreq  int   // 总词频（标题+正文）
	TitleFreq int   // 标题中的词频
	BodyFreq  int   // 正文中的词频
}

// PostingList 某个词的倒排列表
type PostingList []Posting

// InvertedIndex 倒排索引结构
type InvertedIndex struct {
	index        map[string]PostingList // term -> []Posting
	docLengths   map[int64]int
	titleLengths map[int64]int
	tokenizer    *Tokenizer
	mutex        sync.RWMutex
	totalDocs    int
	totalLength  int
}

func NewInvertedIndex(tokenizer *Tokenizer) *InvertedIndex {
	return &InvertedIndex{
		index:        make(map[string]PostingList),
		docLengths:   make(map[int64]int),
		titleLengths: make(map[int64]int),
		tokenizer:    tokenizer,
	}
}

// AddDocument 添加单个文档到索引，同一个 docID 只能添加一次
func (ii *InvertedIndex) AddDocument(docID int64, doc Document) {
	ii.mutex.Lock()
	defer ii.mutex.Unlock()

	titleTokens := ii.tokenizer.Tokenize(doc.Title)
	bodyTokens := ii.tokenizer.Tokenize(doc.Body)

	titleFreqs := make(map[string]int)
	for _, token := range titleTokens {
		titleFreqs[token]++
	}
	bodyFreqs := make(map[string]int)
	for _, token := range bodyTokens {
		bodyFreqs[token]++
	}

	allTerms := make(map[string]bool)
	for term := range titleFreqs {
		allTerms[term] = true
	}
	for term := range bodyFreqs {
		allTerms[term] = true
	}

	for term := range allTerms {
		ii.index[term] = append(ii.index[term], Posting{
			DocID:     docID,
			TermFreq:  titleFreqs[term] + bodyFreqs[term],
			TitleFreq: titleFreqs[term],
			BodyFreq:  bodyFreqs[term],
		})
	}

	length := len(titleTokens) + len(bodyTokens)
	ii.docLengths[docID] = length
	ii.titleLengths[docID] = len(titleTokens)
	ii.totalDocs++
	ii.totalLength += length
}

// AddDocuments 批量添加，docID 从 1 开始按顺序分配
func (ii *InvertedIndex) AddDocuments(docs []Document) {
	for i, doc := range docs {
		ii.AddDocument(int64(i+1), doc)
	}
}

func (ii *InvertedIndex) GetPostingList(term string) PostingList {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()
	return ii.index[term]
}

// GetPosting 词在某个文档中的 posting
func (ii *InvertedIndex) GetPosting(term string, docID int64) (Posting, bool) {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()
	for _, p := range ii.index[term] {
		if p.DocID == docID {
			return p, true
		}
	}
	return Posting{}, false
}

// GetDocumentFrequency 包含该词的文档数
func (ii *InvertedIndex) GetDocumentFrequency(term string) int {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()
	return len(ii.index[term])
}

// GetTermFrequency 词在指定文档中的频率
func (ii *InvertedIndex) GetTermFrequency(term string, docID int64) int {
	p, _ := ii.GetPosting(term, docID)
	return p.TermFreq
}

func (ii *InvertedIndex) GetAverageDocumentLength() float64 {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()
	if ii.totalDocs == 0 {
		return 0
	}
	return float64(ii.totalLength) / float64(ii.totalDocs)
}

func (ii *InvertedIndex) GetDocumentLength(docID int64) int {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()
	return ii.docLengths[docID]
}

func (ii *InvertedIndex) GetTitleLength(docID int64) int {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()
	return ii.titleLengths[docID]
}

func (ii *InvertedIndex) GetTotalDocs() int {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()
	return ii.totalDocs
}

func (ii *InvertedIndex) GetVocabularySize() int {
	ii.mutex.RLock()
	defer ii.mutex.RUnlock()
	return len(ii.index)
}
