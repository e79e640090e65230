package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"PaperSieve/internal/core"
	"PaperSieve/internal/corpus"
	emb "PaperSieve/internal/embedding"
	"PaperSieve/internal/enrich"
	"PaperSieve/internal/gate"
	"PaperSieve/internal/platform"
	"PaperSieve/internal/platform/arxiv"
	"PaperSieve/internal/platform/journal"
	"PaperSieve/internal/platform/semantic"
	"PaperSieve/internal/platform/springer"
	"PaperSieve/internal/ranker"
	"PaperSieve/internal/resolver"
	"PaperSieve/internal/websearch"
	"PaperSieve/pkg/logger"
)

// EnvPrefix PSV_LLM_API_KEY -> llm.api_key
const EnvPrefix = "PSV"

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"` // 留空时为 <data_dir>/papersieve.db
}

// JournalConfig nature / science / optica / aps 共用的抓取配置
type JournalConfig struct {
	Proxy   string `mapstructure:"proxy" yaml:"proxy"`
	Timeout int    `mapstructure:"timeout" yaml:"timeout"`
	DelayMS int    `mapstructure:"delay_ms" yaml:"delay_ms"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"` // 留空不写
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Color bool   `mapstructure:"color" yaml:"color"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig 应用总配置
type AppConfig struct {
	Env      string         `mapstructure:"env" yaml:"env"`
	DataDir  string         `mapstructure:"data_dir" yaml:"data_dir"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	Sources []core.SourceSpec `mapstructure:"sources" yaml:"sources"`
	// SourcesSpec 紧凑写法 "arxiv:physics+quant-ph,nature:nature"，非空时覆盖 sources
	SourcesSpec string `mapstructure:"sources_spec" yaml:"sources_spec"`

	Arxiv    arxiv.Config    `mapstructure:"arxiv" yaml:"arxiv"`
	Journal  JournalConfig   `mapstructure:"journal" yaml:"journal"`
	Springer springer.Config `mapstructure:"springer" yaml:"springer"`
	Semantic semantic.Config `mapstructure:"semantic" yaml:"semantic"`

	WebSearch websearch.Config    `mapstructure:"websearch" yaml:"websearch"`
	Resolver  resolver.Config     `mapstructure:"resolver" yaml:"resolver"`
	Embedder  emb.EmbedderConfig  `mapstructure:"embedder" yaml:"embedder"`
	Zotero    core.ZoteroConfig   `mapstructure:"zotero" yaml:"zotero"`
	Corpus    corpus.Config       `mapstructure:"corpus" yaml:"corpus"`
	Ranker    ranker.Config       `mapstructure:"ranker" yaml:"ranker"`
	Gate      gate.Config         `mapstructure:"gate" yaml:"gate"`
	LLM       enrich.LLMConfig    `mapstructure:"llm" yaml:"llm"`
	Pipeline  core.PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Metrics   MetricsConfig       `mapstructure:"metrics" yaml:"metrics"`
	FeiShu    core.FeiShuConfig   `mapstructure:"feishu" yaml:"feishu"`
}

var (
	global     *AppConfig
	once       sync.Once
	globalErr  error
	configPath string // 存储当前使用的配置文件路径
)

func homeDir() string {
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, ".papersieve")
}

// Default 全部默认值，示例配置和 viper 默认值都从这里生成
func Default() *AppConfig {
	return &AppConfig{
		Env:     "prod",
		DataDir: filepath.Join(homeDir(), "data"),
		Log:     LogConfig{Level: "info", Color: true},
		Sources: []core.SourceSpec{
			{Name: "arxiv", Categories: []string{"physics", "quant-ph", "cond-mat", "nlin"}},
			{Name: "nature", Categories: []string{"nature", "nphoton", "ncomms", "nphys", "natrevphys", "lsa", "natmachintell"}},
			{Name: "science", Categories: []string{"science", "sciadv"}},
			{Name: "optica", Categories: []string{"optica"}},
			{Name: "aps", Categories: []string{"prl", "prx", "rmp"}},
		},
		Arxiv:     *arxiv.DefaultConfig(),
		Journal:   JournalConfig{Timeout: 30, DelayMS: 1000},
		Springer:  *springer.DefaultConfig(),
		Semantic:  *semantic.DefaultConfig(),
		WebSearch: websearch.DefaultConfig(),
		Resolver:  resolver.DefaultConfig(),
		Embedder: emb.EmbedderConfig{
			BaseURL:   "https://api.openai.com/v1",
			ModelName: "text-embedding-3-small",
			Dim:       1536,
			BatchSize: 32,
		},
		Zotero: core.ZoteroConfig{
			LibraryType: "user",
			ItemTypes:   []string{"conferencePaper", "journalArticle", "preprint"},
		},
		Corpus:   corpus.DefaultConfig(),
		Ranker:   ranker.DefaultConfig(),
		Gate:     gate.DefaultConfig(),
		LLM:      enrich.DefaultLLMConfig(),
		Pipeline: core.DefaultPipelineConfig(),
	}
}

// durationKeys yaml.v2 把 time.Duration 编码成纳秒整数，这些 key 改写成 "2m0s" 这样的字符串
var durationKeys = []string{
	"resolver.paper_timeout",
	"resolver.call_timeout",
	"resolver.backoff",
	"corpus.validity",
	"pipeline.enrich_timeout",
}

// defaultTree Default() 的 yaml 树
func defaultTree() (yaml.MapSlice, error) {
	raw, err := yaml.Marshal(Default())
	if err != nil {
		return nil, err
	}
	var tree yaml.MapSlice
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	for _, key := range durationKeys {
		section, field, _ := strings.Cut(key, ".")
		for i := range tree {
			if tree[i].Key != section {
				continue
			}
			sub, ok := tree[i].Value.(yaml.MapSlice)
			if !ok {
				continue
			}
			for j := range sub {
				if sub[j].Key == field {
					if ns, ok := sub[j].Value.(int); ok {
						sub[j].Value = time.Duration(ns).String()
					}
				}
			}
		}
	}
	return tree, nil
}

// setDefaults 把 Default() 展开成 viper 的点分 key，环境变量覆盖依赖这些 key
func setDefaults(v *viper.Viper) error {
	tree, err := defaultTree()
	if err != nil {
		return err
	}
	flatten("", tree, v)
	// 列表里的 map 会被解码成 MapSlice，mapstructure 无法还原，直接用结构体
	v.SetDefault("sources", Default().Sources)
	v.SetDefault("database.path", "")
	return nil
}

func flatten(prefix string, node yaml.MapSlice, v *viper.Viper) {
	for _, item := range node {
		key := fmt.Sprint(item.Key)
		if prefix != "" {
			key = prefix + "." + key
		}
		if child, ok := item.Value.(yaml.MapSlice); ok {
			flatten(key, child, v)
			continue
		}
		v.SetDefault(key, item.Value)
	}
}

// 可额外传入目录或具体文件路径
func Init(configPaths ...string) (*AppConfig, error) {
	once.Do(func() {
		global, globalErr = load(configPaths...)
	})
	return global, globalErr
}

func load(configPaths ...string) (*AppConfig, error) {
	configDir := filepath.Join(homeDir(), "config")

	// .env 里的密钥以环境变量的形式生效，不覆盖已存在的环境变量
	for _, f := range []string{".env", filepath.Join(configDir, ".env")} {
		if err := godotenv.Load(f); err == nil {
			logger.Debug("已加载 %s", f)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AddConfigPath(configDir)

	for _, p := range configPaths {
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml") {
			v.SetConfigFile(p)
		} else {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v); err != nil {
		return nil, fmt.Errorf("生成默认配置失败: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在，创建示例配置文件，本次使用默认值 + 环境变量
		if err := CreateExampleConfig(configDir); err != nil {
			return nil, fmt.Errorf("创建示例配置文件失败: %w", err)
		}
	} else {
		configPath = v.ConfigFileUsed()
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("配置解析失败: %w", err)
	}

	if cfg.SourcesSpec != "" {
		sources, err := ParseSources(cfg.SourcesSpec)
		if err != nil {
			return nil, err
		}
		cfg.Sources = sources
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Database.Path = expandHome(cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}

func MustInit(configPaths ...string) *AppConfig {
	cfg, err := Init(configPaths...)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Get() *AppConfig {
	if global == nil {
		_, _ = Init()
	}
	return global
}

func GetConfigPath() string {
	return configPath
}

// ParseSources 解析 "name:cat1+cat2,name2:cat"；没有 categories 的来源会报错
func ParseSources(spec string) ([]core.SourceSpec, error) {
	var out []core.SourceSpec
	seen := make(map[string]bool)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, cats, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("来源格式错误 %q，应为 name:cat1+cat2", part)
		}
		if seen[name] {
			return nil, fmt.Errorf("来源 %s 重复", name)
		}
		seen[name] = true

		src := core.SourceSpec{Name: name}
		for _, c := range strings.Split(cats, "+") {
			if c = strings.TrimSpace(c); c != "" {
				src.Categories = append(src.Categories, c)
			}
		}
		if len(src.Categories) == 0 {
			return nil, fmt.Errorf("来源 %s 没有 category", name)
		}
		out = append(out, src)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("来源列表为空")
	}
	return out, nil
}

// Validate 只检查会导致错误结果的配置；缺少可选的 key 在构造组件时降级
func (c *AppConfig) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("sources 不能为空")
	}
	for _, s := range c.Sources {
		if _, ok := core.Get(s.Name); !ok {
			return fmt.Errorf("未知的来源 %q（可用: %v）", s.Name, core.List())
		}
		if len(s.Categories) == 0 {
			return fmt.Errorf("来源 %s 没有 category", s.Name)
		}
	}
	if err := c.Arxiv.Validate(); err != nil {
		return fmt.Errorf("arxiv 配置不合法: %w", err)
	}
	if err := c.WebSearch.Validate(); err != nil {
		return fmt.Errorf("websearch 配置不合法: %w", err)
	}
	if c.Resolver.FallbackAttempts < 0 {
		return fmt.Errorf("resolver.fallback_attempts 不能为负数")
	}
	if c.Resolver.PaperTimeout <= 0 || c.Resolver.CallTimeout <= 0 {
		return fmt.Errorf("resolver 的超时必须大于 0")
	}
	if c.Corpus.Validity <= 0 {
		return fmt.Errorf("corpus.validity 必须大于 0")
	}
	if err := c.Ranker.Validate(); err != nil {
		return err
	}
	if err := c.Gate.Validate(); err != nil {
		return err
	}
	return c.Pipeline.Validate()
}

// Platforms 每个来源的平台配置
func (c *AppConfig) Platforms() map[string]platform.Config {
	out := map[string]platform.Config{"arxiv": &c.Arxiv}
	for _, s := range c.Sources {
		if _, ok := journal.DefaultFeeds[s.Name]; !ok {
			continue
		}
		jc := journal.DefaultConfig(s.Name)
		jc.Proxy = c.Journal.Proxy
		if c.Journal.Timeout > 0 {
			jc.Timeout = c.Journal.Timeout
		}
		jc.DelayMS = c.Journal.DelayMS
		out[s.Name] = jc
	}
	return out
}

// Lookups 元数据 API 的配置
func (c *AppConfig) Lookups() map[string]platform.Config {
	return map[string]platform.Config{
		"arxiv":    &c.Arxiv,
		"springer": &c.Springer,
		"semantic": &c.Semantic,
	}
}

// Options 转成 core.NewApp 的入参
func (c *AppConfig) Options() core.Options {
	return core.Options{
		DataDir:         c.DataDir,
		DatabasePath:    c.Database.Path,
		Sources:         c.Sources,
		Platforms:       c.Platforms(),
		Lookups:         c.Lookups(),
		WebSearch:       c.WebSearch,
		Resolver:        c.Resolver,
		Embedder:        c.Embedder,
		Zotero:          c.Zotero,
		Corpus:          c.Corpus,
		Ranker:          c.Ranker,
		Gate:            c.Gate,
		LLM:             c.LLM,
		Pipeline:        c.Pipeline,
		FeiShu:          c.FeiShu,
		MetricsTextfile: c.Metrics.Textfile,
	}
}

const exampleHeader = `# PaperSieve 配置文件
# 密钥建议放在 .env 中，例如 PSV_LLM_API_KEY=... PSV_ZOTERO_API_KEY=...
# 生成时间 %s

`

// CreateExampleConfig 在 dir 下写入由默认值生成的 config.yaml，已存在时不覆盖
func CreateExampleConfig(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}
	configFile := filepath.Join(dir, "config.yaml")

	if _, err := os.Stat(configFile); err == nil {
		logger.Warn("home 目录下已存在配置文件，请前往编辑即可: %s", configFile)
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("检查配置文件时出错: %w", err)
	}

	tree, err := defaultTree()
	if err != nil {
		return fmt.Errorf("生成示例配置失败: %w", err)
	}
	body, err := yaml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("生成示例配置失败: %w", err)
	}
	content := fmt.Sprintf(exampleHeader, time.Now().Format(time.DateOnly)) + string(body)
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	logger.Info("已在 %s 中创建示例配置文件，请编辑其中的 API Key 和 Zotero 配置", configFile)
	return nil
}
