package feed

// IDRule 从原始条目中取稳定 id 的方式
type IDRule int

const (
	IDGeneric      IDRule = iota // DOI > dc:identifier > GUID > link
	IDArxivGUID                  // oai:arXiv.org:<id>，去掉版本号
	IDPrismDOI                   // prism:doi
	IDDCIdentifier               // dc:identifier，去掉 doi: 前缀
)

// Profile 每个来源的字段约定
type Profile struct {
	ID      IDRule
	Journal string // 固定期刊名，留空则取 prism:publicationName / dc:source

	// TagsAsCategories feed 的 <category> 作为类别
	TagsAsCategories bool
	// SectionAsCategories prism:section 按 ", " 拆开作为类别
	SectionAsCategories bool
	// StripTrailingAnd 最后一个作者 / 类别去掉开头的 "and "
	StripTrailingAnd bool
	// PreferPublicationDate 发布时间优先取 prism:publicationDate
	PreferPublicationDate bool
}

var Profiles = map[string]Profile{
	"arxiv":   {ID: IDArxivGUID, Journal: "ArXiv", TagsAsCategories: true},
	"nature":  {ID: IDPrismDOI},
	"science": {ID: IDPrismDOI},
	"optica":  {ID: IDDCIdentifier},
	"aps": {
		ID:                    IDPrismDOI,
		SectionAsCategories:   true,
		StripTrailingAnd:      true,
		PreferPublicationDate: true,
	},
}

// ProfileFor 未知来源使用通用规则
func ProfileFor(source string) Profile {
	if p, ok := Profiles[source]; ok {
		return p
	}
	return Profile{ID: IDGeneric, TagsAsCategories: true}
}
