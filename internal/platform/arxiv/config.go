package arxiv

import (
	"fmt"
)

type Config struct {
	Proxy   string `mapstructure:"proxy" yaml:"proxy"`     // 代理地址，如 "http://127.0.0.1:7890"
	Timeout int    `mapstructure:"timeout" yaml:"timeout"` // 超时时间（秒）

	RSSBase string `mapstructure:"rss_base" yaml:"rss_base"` // RSS 基础 URL，后接 cat1+cat2
	APIBase string `mapstructure:"api_base" yaml:"api_base"` // Atom API，用于按 id 补摘要
}

func DefaultConfig() *Config {
	return &Config{
		Timeout: 30,
		RSSBase: "https://rss.arxiv.org/rss/",
		APIBase: "https://export.arxiv.org/api/query",
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.Timeout)
	}
	if c.RSSBase == "" {
		return fmt.Errorf("rss_base cannot be empty")
	}
	if c.APIBase == "" {
		return fmt.Errorf("api_base cannot be empty")
	}
	return nil
}
