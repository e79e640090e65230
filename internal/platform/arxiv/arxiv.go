package arxiv

import (
	"PaperSieve/internal/core"
	"PaperSieve/internal/platform"
)

func New(config *Config) (*Adapter, error) {
	return NewAdapter(config)
}

func fromConfig(cfg platform.Config) (*Adapter, error) {
	c, _ := cfg.(*Config)
	if c == nil {
		c = DefaultConfig()
	}
	return New(c)
}

func init() {
	core.MustRegister(core.Provider{
		Name:          "arxiv",
		New:           func(cfg platform.Config) (platform.Platform, error) { return fromConfig(cfg) },
		DefaultConfig: func() platform.Config { return DefaultConfig() },
	})
	core.MustRegisterLookup(core.LookupProvider{
		Name:          "arxiv",
		New:           func(cfg platform.Config) (platform.NativeLookup, error) { return fromConfig(cfg) },
		DefaultConfig: func() platform.Config { return DefaultConfig() },
	})
}

func PDFUrl(arxivID string) string {
	return "https://arxiv.org/pdf/" + arxivID
}

func AbsUrl(arxivID string) string {
	return "https://arxiv.org/abs/" + arxivID
}
