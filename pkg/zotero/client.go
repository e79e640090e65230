package zotero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"PaperSieve/internal/models"
	"PaperSieve/pkg/logger"
	"PaperSieve/pkg/retry"
)

// DefaultItemTypes 进入参考语料的条目类型
var DefaultItemTypes = []string{"conferencePaper", "journalArticle", "preprint"}

const pageSize = 100

type Client struct {
	userID      string
	apiKey      string
	libraryType string // user 或 group
	httpClient  *http.Client
	BaseURL     string
	Retry       retry.Config
}

func NewClient(userID, apiKey string) *Client {
	return &Client{
		userID:      userID,
		apiKey:      apiKey,
		libraryType: "user",
		BaseURL:     "https://api.zotero.org",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Retry: retry.Config{
			MaxAttempts:     3,
			InitialDelay:    2 * time.Second,
			MaxDelay:        30 * time.Second,
			Multiplier:      2,
			RetryableErrors: []error{models.ErrTransient},
			Name:            "zotero",
		},
	}
}

// WithHTTPClient 替换底层 http.Client（代理、测试）
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithLibraryType user 或 group
func (c *Client) WithLibraryType(t string) *Client {
	if t != "" {
		c.libraryType = t
	}
	return c
}

func (c *Client) libraryPrefix() string {
	if c.libraryType == "group" {
		return fmt.Sprintf("%s/groups/%s", c.BaseURL, c.userID)
	}
	return fmt.Sprintf("%s/users/%s", c.BaseURL, c.userID)
}

// getPage 单页请求，返回响应体和 Total-Results
func (c *Client) getPage(ctx context.Context, rawURL string) ([]byte, int, error) {
	type page struct {
		body  []byte
		total int
	}
	p, err := retry.DoWithResult(ctx, c.Retry, func() (page, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return page{}, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Zotero-API-Key", c.apiKey)
		req.Header.Set("Zotero-API-Version", "3")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && ctx.Err() == nil {
				return page{}, fmt.Errorf("%w: %v", models.ErrTransient, err)
			}
			return page{}, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return page{}, fmt.Errorf("%w: failed to read response: %v", models.ErrTransient, err)
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return page{}, fmt.Errorf("%w: API returned error %d", models.ErrTransient, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return page{}, fmt.Errorf("API returned error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		total, _ := strconv.Atoi(resp.Header.Get("Total-Results"))
		return page{body: body, total: total}, nil
	})
	return p.body, p.total, err
}

// paginate 按 start/limit 翻页直到取完 Total-Results
func paginate[T any](ctx context.Context, c *Client, base string, params url.Values) ([]T, error) {
	var all []T
	for start := 0; ; start += pageSize {
		params.Set("start", strconv.Itoa(start))
		params.Set("limit", strconv.Itoa(pageSize))
		body, total, err := c.getPage(ctx, base+"?"+params.Encode())
		if err != nil {
			return nil, err
		}
		var batch []T
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		all = append(all, batch...)
		if len(batch) == 0 || len(batch) < pageSize || (total > 0 && len(all) >= total) {
			return all, nil
		}
	}
}

// GetCollections 获取全部 collection（自动翻页）
func (c *Client) GetCollections(ctx context.Context) ([]Collection, error) {
	cols, err := paginate[Collection](ctx, c, c.libraryPrefix()+"/collections", url.Values{})
	if err != nil {
		return nil, fmt.Errorf("获取 Zotero collections 失败: %w", err)
	}
	return cols, nil
}

// GetItems 获取指定类型的全部条目（自动翻页），itemTypes 为空时使用 DefaultItemTypes
func (c *Client) GetItems(ctx context.Context, itemTypes []string) ([]Item, error) {
	if len(itemTypes) == 0 {
		itemTypes = DefaultItemTypes
	}
	params := url.Values{}
	params.Set("itemType", strings.Join(itemTypes, " || "))
	items, err := paginate[Item](ctx, c, c.libraryPrefix()+"/items", params)
	if err != nil {
		return nil, fmt.Errorf("获取 Zotero items 失败: %w", err)
	}
	logger.Debug("Zotero 条目获取完成: %d", len(items))
	return items, nil
}

// CollectionPaths key -> 完整路径 "Parent/Child"
func CollectionPaths(cols []Collection) map[string]string {
	byKey := make(map[string]Collection, len(cols))
	for _, col := range cols {
		byKey[col.Key] = col
	}
	paths := make(map[string]string, len(cols))
	var resolve func(key string, depth int) string
	resolve = func(key string, depth int) string {
		if p, ok := paths[key]; ok {
			return p
		}
		col, ok := byKey[key]
		if !ok {
			return ""
		}
		path := col.Data.Name
		// depth 防止父子关系成环
		if parent := col.Data.ParentCollection.String(); parent != "" && depth < len(cols) {
			if pp := resolve(parent, depth+1); pp != "" {
				path = pp + "/" + path
			}
		}
		paths[key] = path
		return path
	}
	for _, col := range cols {
		resolve(col.Key, 0)
	}
	return paths
}

// ParseDateAdded 解析 dateAdded（ISO8601 UTC）
func ParseDateAdded(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
