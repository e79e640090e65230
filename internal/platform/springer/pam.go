package springer

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"PaperSieve/internal/platform"
)

type pamResponse struct {
	Records struct {
		Articles []pamArticle `xml:"message>article"`
	} `xml:"records"`
}

type pamArticle struct {
	Head pamHead `xml:"head"`
	Body struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"body"`
}

type pamHead struct {
	DOI             string   `xml:"message>doi"`
	Title           string   `xml:"message>title"`
	Creators        []string `xml:"message>creator"`
	PublicationName string   `xml:"message>publicationName"`
	Subjects        []string `xml:"message>subject"`
}

// ParsePAM 解析 PAM 响应，key 为 DOI；没有 Abstract 段落的文章跳过
func ParsePAM(data []byte) (map[string]*platform.NativeMeta, error) {
	var resp pamResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse pam: %w", err)
	}

	out := make(map[string]*platform.NativeMeta)
	for _, a := range resp.Records.Articles {
		doi := strings.TrimSpace(a.Head.DOI)
		if doi == "" {
			continue
		}
		abstract, err := abstractFromBody(a.Body.Inner)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", doi, err)
		}
		if abstract == "" {
			continue
		}

		meta := &platform.NativeMeta{
			Abstract: abstract,
			Journal:  strings.TrimSpace(a.Head.PublicationName),
		}
		for _, c := range a.Head.Creators {
			if c = strings.TrimSpace(c); c != "" {
				meta.Authors = append(meta.Authors, c)
			}
		}
		seen := map[string]bool{}
		for _, s := range a.Head.Subjects {
			for _, part := range strings.Split(s, ", ") {
				part = strings.TrimSpace(part)
				if part != "" && !seen[part] {
					seen[part] = true
					meta.Categories = append(meta.Categories, part)
				}
			}
		}
		out[doi] = meta
	}
	return out, nil
}

var spaces = regexp.MustCompile(`\s+`)

// abstractFromBody 取 body 中 "Abstract" 标题之后、下一个 h1 之前的所有段落
func abstractFromBody(inner []byte) (string, error) {
	if len(bytes.TrimSpace(inner)) == 0 {
		return "", nil
	}
	dec := xml.NewDecoder(bytes.NewReader(append(append([]byte("<root>"), inner...), []byte("</root>")...)))
	dec.Strict = false

	var (
		paragraphs []string
		inAbstract bool
		depth      int
		current    strings.Builder
		currentTag string
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				currentTag = t.Name.Local
				current.Reset()
			}
		case xml.CharData:
			if depth >= 2 {
				current.Write(t)
			}
		case xml.EndElement:
			if depth == 2 {
				text := strings.TrimSpace(spaces.ReplaceAllString(current.String(), " "))
				switch {
				case currentTag == "h1" && strings.Contains(text, "Abstract"):
					inAbstract = true
				case currentTag == "h1" && inAbstract:
					return strings.Join(paragraphs, " "), nil
				case currentTag == "p" && inAbstract && text != "":
					paragraphs = append(paragraphs, text)
				}
			}
			depth--
		}
	}
	return strings.Join(paragraphs, " "), nil
}
