package ir

import (
	"bufio"
	"strings"
)

func init() {
	loadStopWords()
}

func loadStopWords() {
	stopWords = make(map[string]bool)
	file, err := stopWordsFS.Open("stopWords.txt")
	if err != nil {
		initDefaultStopWords()
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if word := strings.TrimSpace(scanner.Text()); word != "" {
			stopWords[word] = true
		}
	}
}

func initDefaultStopWords() {
	stopWords = make(map[string]bool)
	for _, word := range []string{
		"a", "an", "the", "and", "or", "of", "in", "on", "for", "to", "with", "by", "from",
		"is", "are", "was", "were", "be", "this", "that", "it", "as", "at",
	} {
		stopWords[word] = true
	}
}
