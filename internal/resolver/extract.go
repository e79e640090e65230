package resolver

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"PaperSieve/internal/ir"
	"PaperSieve/internal/models"
	"PaperSieve/internal/websearch"
)

var (
	abstractMarker = regexp.MustCompile(`(?im)^\s*(?:#+\s*)?abstract\s*:?\s*$|\babstract\s*:\s*`)
	sectionHeading = regexp.MustCompile(`(?i)^(?:#+\s*)?(?:\d+\.?\s*)?(introduction|keywords?|references|main|background|related topics|about this article|cite this article|access options|figures?)\b`)
)

// pickResult 在搜索结果中选出与论文匹配的一条：URL/DOI 命中优先，其次标题 BM25 分数
func pickResult(matcher *ir.Matcher, p *models.PaperRecord, results []websearch.Result, minMatch float64) (websearch.Result, bool) {
	doi := strings.ToLower(p.ID)
	for _, r := range results {
		if strings.TrimSpace(r.Text()) == "" {
			continue
		}
		if websearch.SameURL(r.URL, p.AbsURL) || (p.Source != "arxiv" && websearch.ExtractDOI(r.URL) == doi) {
			return r, true
		}
	}

	docs := make([]ir.Document, len(results))
	for i, r := range results {
		docs[i] = ir.Document{Title: r.Title, Body: r.Snippet}
	}
	idx, score := matcher.Best(p.Title, docs)
	if idx < 0 || score < minMatch || strings.TrimSpace(results[idx].Text()) == "" {
		return websearch.Result{}, false
	}
	return results[idx], true
}

// extractAbstract 从网页正文或片段中截取摘要：有 Abstract 标记时取其后的段落直到下一个小节
func extractAbstract(text string, maxChars int) string {
	text = websearch.CleanContent(text)
	if loc := abstractMarker.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
	}

	var paras []string
	for _, para := range strings.Split(text, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			if len(paras) > 0 && utf8.RuneCountInString(strings.Join(paras, " ")) > 200 {
				break
			}
			continue
		}
		if sectionHeading.MatchString(para) && len(paras) > 0 {
			break
		}
		paras = append(paras, para)
	}
	return truncate(strings.Join(paras, " "), maxChars)
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:maxChars])) + "..."
}

// queryVariants 兜底搜索的查询序列：带标识符的精确标题、精确标题、普通标题
func queryVariants(p *models.PaperRecord) []string {
	title := strings.Join(strings.Fields(p.Title), " ")
	quoted := `"` + strings.ReplaceAll(title, `"`, "") + `"`
	hint := p.ID
	if p.Source == "arxiv" {
		hint = "arXiv:" + p.ID
	}
	return []string{quoted + " " + hint, quoted, title}
}
