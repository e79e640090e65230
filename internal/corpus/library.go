package corpus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"PaperSieve/pkg/logger"
	"PaperSieve/pkg/zotero"
)

// LibraryItem 参考库中的一条文献
type LibraryItem struct {
	Key      string
	Title    string
	Abstract string
	AddedAt  time.Time
}

// Collection 名字为完整路径（Parent/Child）
type Collection struct {
	Name  string
	Items []LibraryItem
}

// LibraryProvider 参考库来源
type LibraryProvider interface {
	ListCollections(ctx context.Context) ([]Collection, error)
}

// ZoteroLibrary 基于 Zotero Web API 的 LibraryProvider
type ZoteroLibrary struct {
	client    *zotero.Client
	itemTypes []string
}

func NewZoteroLibrary(client *zotero.Client, itemTypes []string) *ZoteroLibrary {
	return &ZoteroLibrary{client: client, itemTypes: itemTypes}
}

// ListCollections 返回全部 collection（包括没有可用条目的），条目只保留摘要非空的；
// 一个条目属于多个 collection 时在每个 collection 下各出现一次
func (z *ZoteroLibrary) ListCollections(ctx context.Context) ([]Collection, error) {
	cols, err := z.client.GetCollections(ctx)
	if err != nil {
		return nil, err
	}
	items, err := z.client.GetItems(ctx, z.itemTypes)
	if err != nil {
		return nil, err
	}

	paths := zotero.CollectionPaths(cols)
	byPath := make(map[string]*Collection, len(paths))
	for _, p := range paths {
		if _, ok := byPath[p]; !ok {
			byPath[p] = &Collection{Name: p}
		}
	}

	allowed := make(map[string]bool)
	for _, t := range z.itemTypes {
		allowed[t] = true
	}
	if len(allowed) == 0 {
		for _, t := range zotero.DefaultItemTypes {
			allowed[t] = true
		}
	}

	var skipped int
	for _, it := range items {
		abstract := strings.TrimSpace(it.Data.AbstractNote)
		if !allowed[it.Data.ItemType] || abstract == "" {
			skipped++
			continue
		}
		added, err := zotero.ParseDateAdded(it.Data.DateAdded)
		if err != nil {
			logger.Debug("Zotero 条目 %s 的 dateAdded 无法解析: %q", it.Key, it.Data.DateAdded)
			skipped++
			continue
		}
		li := LibraryItem{Key: it.Key, Title: strings.TrimSpace(it.Data.Title), Abstract: abstract, AddedAt: added}
		for _, key := range it.Data.Collections {
			if c, ok := byPath[paths[key]]; ok {
				c.Items = append(c.Items, li)
			}
		}
	}

	out := make([]Collection, 0, len(byPath))
	for _, c := range byPath {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	logger.Info("Zotero 参考库: %d 个 collection, %d 个条目（跳过 %d 个）", len(out), len(items)-skipped, skipped)
	return out, nil
}

// StaticLibrary 固定内容的 LibraryProvider，测试用
type StaticLibrary struct {
	Collections []Collection
	Err         error
	Calls       int
}

func (s *StaticLibrary) ListCollections(ctx context.Context) ([]Collection, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Collections, nil
}

func itemText(it LibraryItem) string {
	if it.Title == "" {
		return it.Abstract
	}
	return fmt.Sprintf("%s\n\n%s", it.Title, it.Abstract)
}
