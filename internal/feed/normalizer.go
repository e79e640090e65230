// Package feed 把各来源的原始条目规范化为 PaperRecord。
package feed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"PaperSieve/internal/models"
	"PaperSieve/internal/platform"
	"PaperSieve/pkg/logger"
)

// Dropped 被丢弃的条目及原因
type Dropped struct {
	Entry  platform.RawEntry
	Reason error
}

// Normalize 单条规范化；缺少标题或 id 时返回 models.ErrMalformedEntry
func Normalize(e platform.RawEntry, runDate string) (*models.PaperRecord, error) {
	prof := ProfileFor(e.Source)

	id := extractID(e, prof.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: %s 条目缺少 id (guid=%q)", models.ErrMalformedEntry, e.Source, e.GUID)
	}
	title := cleanText(e.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: %s:%s 缺少标题", models.ErrMalformedEntry, e.Source, id)
	}

	p := &models.PaperRecord{
		Source:         e.Source,
		ID:             id,
		Title:          title,
		Authors:        splitAuthors(e.Authors, prof.StripTrailingAnd),
		Journal:        journalName(e, prof),
		Published:      publishedAt(e, prof),
		RunDate:        runDate,
		AbstractStatus: models.AbstractNotAttempted,
		Categories:     []string{},
		Recommended:    []string{},
	}

	if prof.ID == IDArxivGUID {
		p.Abstract = arxivAbstract(e.Description)
		p.AbsURL = "https://arxiv.org/abs/" + id
		p.PDFURL = "https://arxiv.org/pdf/" + id
	} else {
		p.AbsURL = "https://doi.org/" + id
	}
	if p.HasAbstract() {
		p.AbstractStatus = models.AbstractPresent
	}

	// 抓取时声明的 category，跨 category 出现的论文由 NormalizeAll 合并
	if e.Category != "" {
		p.MergeCategories(e.Category)
	}
	if prof.TagsAsCategories {
		p.MergeCategories(e.Tags...)
	}
	if prof.SectionAsCategories && e.Section != "" {
		p.MergeCategories(splitList(e.Section, prof.StripTrailingAnd)...)
	}
	return p, nil
}

// NormalizeAll 批量规范化；同一 id 在同一次运行中多次出现时合并类别，输出顺序无意义
func NormalizeAll(entries []platform.RawEntry, runDate string) ([]*models.PaperRecord, []Dropped) {
	byKey := make(map[string]*models.PaperRecord, len(entries))
	var out []*models.PaperRecord
	var dropped []Dropped

	for _, e := range entries {
		p, err := Normalize(e, runDate)
		if err != nil {
			logger.Warn("丢弃条目: %v", err)
			dropped = append(dropped, Dropped{Entry: e, Reason: err})
			continue
		}
		if prev, ok := byKey[p.Key()]; ok {
			prev.MergeCategories(p.Categories...)
			if !prev.HasAbstract() && p.HasAbstract() {
				prev.Abstract = p.Abstract
				prev.AbstractStatus = p.AbstractStatus
			}
			continue
		}
		byKey[p.Key()] = p
		out = append(out, p)
	}
	return out, dropped
}

var arxivVersion = regexp.MustCompile(`v\d+$`)

func extractID(e platform.RawEntry, rule IDRule) string {
	switch rule {
	case IDArxivGUID:
		guid := strings.TrimSpace(e.GUID)
		if i := strings.LastIndex(guid, ".org:"); i >= 0 {
			guid = guid[i+len(".org:"):]
		} else if i := strings.LastIndex(guid, "/abs/"); i >= 0 {
			guid = guid[i+len("/abs/"):]
		}
		return arxivVersion.ReplaceAllString(guid, "")
	case IDPrismDOI:
		return cleanDOI(e.DOI)
	case IDDCIdentifier:
		return cleanDOI(e.Identifier)
	default:
		for _, c := range []string{e.DOI, e.Identifier} {
			if d := cleanDOI(c); d != "" {
				return d
			}
		}
		return strings.TrimSpace(firstNonEmpty(e.GUID, e.Link))
	}
}

func cleanDOI(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"doi:", "https://doi.org/", "http://doi.org/", "http://dx.doi.org/"} {
		if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			s = s[len(prefix):]
		}
	}
	return strings.TrimSpace(s)
}

func arxivAbstract(desc string) string {
	desc = stripHTML(desc)
	if i := strings.Index(desc, "Abstract:"); i >= 0 {
		desc = desc[i+len("Abstract:"):]
	}
	return cleanText(desc)
}

func journalName(e platform.RawEntry, prof Profile) string {
	if prof.Journal != "" {
		return prof.Journal
	}
	if e.PublicationName != "" {
		return cleanText(e.PublicationName)
	}
	if e.DCSource != "" {
		return cleanText(strings.Split(e.DCSource, ",")[0])
	}
	return ""
}

func publishedAt(e platform.RawEntry, prof Profile) time.Time {
	if prof.PreferPublicationDate && e.PublicationDate != "" {
		s := strings.SplitN(e.PublicationDate, "+", 2)[0]
		for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	if e.Published != nil {
		return e.Published.UTC()
	}
	return time.Time{}
}

// splitAuthors 作者字段可能是 "A, B, C" 的合并串
func splitAuthors(raw []string, stripAnd bool) []string {
	out := []string{}
	for _, a := range raw {
		out = append(out, splitList(a, false)...)
	}
	if stripAnd {
		trimLeadingAnd(out)
	}
	return out
}

func splitList(s string, stripAnd bool) []string {
	var out []string
	for _, part := range strings.Split(s, ", ") {
		if part = cleanText(part); part != "" {
			out = append(out, part)
		}
	}
	if stripAnd {
		trimLeadingAnd(out)
	}
	return out
}

// trimLeadingAnd "A, B, and C" 拆开后最后一项是 "and C"
func trimLeadingAnd(list []string) {
	if len(list) == 0 {
		return
	}
	last := list[len(list)-1]
	if len(last) > 4 && strings.HasPrefix(last, "and ") {
		list[len(list)-1] = strings.TrimSpace(last[4:])
	}
}

var spaces = regexp.MustCompile(`\s+`)

func cleanText(s string) string {
	s = stripHTML(s)
	s = norm.NFC.String(s)
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// stripHTML 标题里常见 <i>、<sub> 之类的标签
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
