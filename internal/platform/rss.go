package platform

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// ParseFeed 解析 RSS/RDF/Atom，保留 prism 和 dc 扩展字段
func ParseFeed(data []byte, source, category string) ([]RawEntry, error) {
	fp := gofeed.NewParser()
	feed, err := fp.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, toRawEntry(item, source, category))
	}
	return entries, nil
}

func toRawEntry(item *gofeed.Item, source, category string) RawEntry {
	e := RawEntry{
		Source:      source,
		Category:    category,
		GUID:        item.GUID,
		Title:       item.Title,
		Description: item.Description,
		Link:        item.Link,
		Tags:        item.Categories,
	}
	if e.Description == "" {
		e.Description = item.Content
	}

	switch {
	case item.PublishedParsed != nil:
		e.Published = item.PublishedParsed
	case item.UpdatedParsed != nil:
		e.Published = item.UpdatedParsed
	}

	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			e.Authors = append(e.Authors, a.Name)
		}
	}
	if len(e.Authors) == 0 && item.DublinCoreExt != nil {
		e.Authors = append(e.Authors, item.DublinCoreExt.Creator...)
	}

	e.DOI = extValue(item.Extensions, "prism", "doi")
	e.PublicationName = extValue(item.Extensions, "prism", "publicationName")
	e.Section = extValue(item.Extensions, "prism", "section")
	e.PublicationDate = extValue(item.Extensions, "prism", "publicationDate")

	if dc := item.DublinCoreExt; dc != nil {
		if len(dc.Identifier) > 0 {
			e.Identifier = dc.Identifier[0]
		}
		if len(dc.Source) > 0 {
			e.DCSource = dc.Source[0]
		}
	}
	if e.Identifier == "" {
		e.Identifier = extValue(item.Extensions, "dc", "identifier")
	}
	return e
}

func extValue(exts ext.Extensions, prefix, name string) string {
	if exts == nil {
		return ""
	}
	ns, ok := exts[prefix]
	if !ok {
		return ""
	}
	for _, v := range ns[name] {
		if s := strings.TrimSpace(v.Value); s != "" {
			return s
		}
	}
	return ""
}
