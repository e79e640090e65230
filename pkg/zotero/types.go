package zotero

import (
	"encoding/json"
)

// IntOrBool 处理可能是 int 或 false 的字段（如 numChildren）
// Zotero API 在值为 0 时会返回 false 而不是 0
type IntOrBool int

func (i *IntOrBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*i = 1
		} else {
			*i = 0
		}
		return nil
	}
	var num int
	if err := json.Unmarshal(data, &num); err == nil {
		*i = IntOrBool(num)
		return nil
	}
	*i = 0
	return nil
}

func (i IntOrBool) Int() int {
	return int(i)
}

// StringOrBool 处理可能是 string 或 false 的字段（如 parentCollection）
type StringOrBool string

func (s *StringOrBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = StringOrBool(str)
		return nil
	}
	*s = ""
	return nil
}

func (s StringOrBool) String() string {
	return string(s)
}

/*
GET /users/{userID}/items?itemType=journalArticle || preprint&start=0&limit=100

	[
	  {
	    "key": "ABCD2345",
	    "version": 1234,
	    "data": {
	      "key": "ABCD2345",
	      "itemType": "journalArticle",
	      "title": "Attention Is All You Need",
	      "abstractNote": "The dominant sequence transduction models...",
	      "collections": ["EFGH5678"],
	      "dateAdded": "2024-01-15T12:00:00Z",
	      "dateModified": "2024-01-15T12:00:00Z"
	    }
	  }
	]

响应头 Total-Results 给出总条数，用 start 翻页
*/
type Item struct {
	Key     string   `json:"key"`
	Version int      `json:"version"`
	Meta    ItemMeta `json:"meta"`
	Data    ItemData `json:"data"`
}

// ItemData 条目的核心数据，只保留参考库语料需要的字段
type ItemData struct {
	ItemType     string    `json:"itemType"` // journalArticle, preprint, conferencePaper, book 等
	Title        string    `json:"title"`
	Creators     []Creator `json:"creators,omitempty"`
	AbstractNote string    `json:"abstractNote,omitempty"`
	Date         string    `json:"date,omitempty"`
	DateAdded    string    `json:"dateAdded,omitempty"`
	DateModified string    `json:"dateModified,omitempty"`
	DOI          string    `json:"DOI,omitempty"`
	URL          string    `json:"url,omitempty"`
	Tags         []Tag     `json:"tags,omitempty"`
	Collections  []string  `json:"collections,omitempty"` // Collection keys
}

// Creator 作者/编辑等创作者信息
type Creator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

type Tag struct {
	Tag  string `json:"tag"`
	Type int    `json:"type,omitempty"`
}

type ItemMeta struct {
	CreatorSummary string    `json:"creatorSummary,omitempty"`
	ParsedDate     string    `json:"parsedDate,omitempty"`
	NumChildren    IntOrBool `json:"numChildren"` // 注意：可能是 false 或数字
}

// Collection 集合
type Collection struct {
	Key     string         `json:"key"`
	Version int            `json:"version"`
	Meta    CollectionMeta `json:"meta"`
	Data    CollectionData `json:"data"`
}

type CollectionData struct {
	Key              string       `json:"key"`
	Name             string       `json:"name"`
	ParentCollection StringOrBool `json:"parentCollection"` // false 或父集合 key
}

type CollectionMeta struct {
	NumCollections IntOrBool `json:"numCollections"`
	NumItems       IntOrBool `json:"numItems"`
}
