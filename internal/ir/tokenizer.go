package ir

import (
	"embed"
	"regexp"
	"strings"
)

//go:embed stopWords.txt
var stopWordsFS embed.FS
var stopWords map[string]bool

var nonWord = regexp.MustCompile(`[^a-z0-9\s-]`)

type Tokenizer struct {
	stopWords map[string]bool // 维护一个停用词的集合
}

// NewTokenizer 停用词在 init 中加载，读取失败时已回退到内置列表
func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		stopWords: stopWords,
	}
}

func (t *Tokenizer) Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}

	text = strings.ToLower(text)
	text = nonWord.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "-", " ")

	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) > 1 && !t.stopWords[word] {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

func (t *Tokenizer) TokenizeWithCount(text string) map[string]int {
	result := make(map[string]int)
	for _, token := range t.Tokenize(text) {
		result[token]++
	}
	return result
}
