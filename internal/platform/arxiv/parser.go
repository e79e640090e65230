package arxiv

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"PaperSieve/internal/platform"
)

type AtomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Total   int         `xml:"http://a9.com/-/spec/opensearch/1.1/ totalResults"`
	Entries []AtomEntry `xml:"entry"`
}

type AtomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	Authors    []AtomAuthor   `xml:"author"`
	Links      []AtomLink     `xml:"link"`
	Categories []AtomCategory `xml:"category"`
}

type AtomAuthor struct {
	Name string `xml:"name"`
}

type AtomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

type AtomCategory struct {
	Term string `xml:"term,attr"`
}

var versionSuffix = regexp.MustCompile(`v\d+$`)

// ParseAtomFeed 解析 API 响应，key 为去掉版本号的 arXiv id
func ParseAtomFeed(xmlContent string) (map[string]*platform.NativeMeta, error) {
	var feed AtomFeed
	if err := xml.Unmarshal([]byte(xmlContent), &feed); err != nil {
		return nil, fmt.Errorf("failed to parse atom: %w", err)
	}

	out := make(map[string]*platform.NativeMeta, len(feed.Entries))
	for _, e := range feed.Entries {
		id := versionSuffix.ReplaceAllString(parseArxivIDFromURL(e.ID), "")
		if id == "" {
			continue
		}

		meta := &platform.NativeMeta{Abstract: cleanText(e.Summary)}
		for _, a := range e.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				meta.Authors = append(meta.Authors, name)
			}
		}
		for _, c := range e.Categories {
			if c.Term != "" {
				meta.Categories = append(meta.Categories, c.Term)
			}
		}
		out[id] = meta
	}
	return out, nil
}

var spaces = regexp.MustCompile(`\s+`)

func cleanText(text string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(text, " "))
}

func parseArxivIDFromURL(url string) string {
	// 从 http://arxiv.org/abs/2408.12345v1 提取 2408.12345v1
	if idx := strings.LastIndex(url, "/abs/"); idx >= 0 {
		return url[idx+len("/abs/"):]
	}
	if idx := strings.LastIndex(url, "/"); idx > 0 && idx < len(url)-1 {
		return url[idx+1:]
	}
	return ""
}
