package journal

import (
	"fmt"
	"strings"
)

// Placeholder feed URL 模板中 category 的占位符
const Placeholder = "{cat}"

// DefaultFeeds 各出版商 RSS 地址模板
var DefaultFeeds = map[string]string{
	"nature":  "https://www.nature.com/{cat}.rss",
	"science": "https://www.science.org/action/showFeed?type=etoc&feed=rss&jc={cat}",
	"optica":  "https://opg.optica.org/rss/{cat}_feed.xml",
	"aps":     "https://feeds.aps.org/rss/recent/{cat}.xml",
}

type Config struct {
	Name    string `mapstructure:"-" yaml:"-"`
	FeedURL string `mapstructure:"feed_url" yaml:"feed_url"` // 含 {cat} 的模板
	Proxy   string `mapstructure:"proxy" yaml:"proxy"`
	Timeout int    `mapstructure:"timeout" yaml:"timeout"`   // 秒
	DelayMS int    `mapstructure:"delay_ms" yaml:"delay_ms"` // 两个 category 之间的间隔
}

func DefaultConfig(name string) *Config {
	return &Config{
		Name:    name,
		FeedURL: DefaultFeeds[name],
		Timeout: 30,
		DelayMS: 1000,
	}
}

func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("journal name cannot be empty")
	}
	if !strings.Contains(c.FeedURL, Placeholder) {
		return fmt.Errorf("%s: feed_url 必须包含 %s", c.Name, Placeholder)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.Timeout)
	}
	if c.DelayMS < 0 {
		return fmt.Errorf("delay_ms cannot be negative")
	}
	return nil
}

func (c *Config) URLFor(category string) string {
	return strings.ReplaceAll(c.FeedURL, Placeholder, category)
}
