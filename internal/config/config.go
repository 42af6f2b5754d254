// Package config loads the knowledge base settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/datadir"
)

// Config represents the knowledge base configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir,omitempty"`
	Store     StoreConfig     `yaml:"store"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Topics    TopicsConfig    `yaml:"topics"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Visual    VisualConfig    `yaml:"visual"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Cache     CacheConfig     `yaml:"cache"`
	Watch     WatchConfig     `yaml:"watch"`
	Log       LogConfig       `yaml:"log"`
}

// StoreConfig locates the vector database. An empty path means
// {data_dir}/data/kb.db.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// ArchiveConfig holds the roots files are relocated under after
// classification. Empty roots default to {data_dir}/papers and
// {data_dir}/images.
type ArchiveConfig struct {
	PapersRoot string `yaml:"papers_root,omitempty"`
	ImagesRoot string `yaml:"images_root,omitempty"`
}

// TopicsConfig holds the default classification labels.
type TopicsConfig struct {
	Papers []string `yaml:"papers"`
	Images []string `yaml:"images"`
}

// GeminiConfig configures the text embedding and generation model.
type GeminiConfig struct {
	APIKey            string        `yaml:"api_key"` // supports ${ENV_VAR}
	ChatModel         string        `yaml:"chat_model"`
	EmbedModel        string        `yaml:"embed_model"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

// VisualConfig points at the CLIP inference server.
type VisualConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxTextLen int           `yaml:"max_text_len"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	MinPageChars   int `yaml:"min_page_chars"`
	ClassifyPrefix int `yaml:"classify_prefix"`
	EmbedWorkers   int `yaml:"embed_workers"`
}

// RetrievalConfig holds query sizes.
type RetrievalConfig struct {
	CandidatePool int `yaml:"candidate_pool"`
	SearchTopK    int `yaml:"search_top_k"`
	ImageTopK     int `yaml:"image_top_k"`
}

// CacheConfig enables the Redis embedding cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// LogConfig sets the default log level. The --verbose flag overrides it.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Topics: TopicsConfig{
			Papers: []string{"Reinforcement_Learning", "Spatio-Temporal_Mining", "Multimodal_Learning"},
			Images: []string{"Photos", "Screenshots", "Diagrams", "Documents"},
		},
		Gemini: GeminiConfig{
			APIKey:            "${GEMINI_API_KEY}",
			ChatModel:         "gemini-2.5-flash",
			EmbedModel:        "text-embedding-004",
			RequestsPerMinute: 60,
			Timeout:           60 * time.Second,
		},
		Visual: VisualConfig{
			Endpoint:   "http://127.0.0.1:8765",
			Timeout:    30 * time.Second,
			MaxTextLen: 77,
		},
		Ingest: IngestConfig{
			MinPageChars:   50,
			ClassifyPrefix: 1000,
			EmbedWorkers:   4,
		},
		Retrieval: RetrievalConfig{
			CandidatePool: 20,
			SearchTopK:    3,
			ImageTopK:     3,
		},
		Cache: CacheConfig{
			Enabled:   false,
			RedisAddr: "localhost:6379",
			TTL:       7 * 24 * time.Hour,
		},
		Watch: DefaultWatchConfig(),
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration at path. A missing file is created with the
// defaults. Fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		log.Info("created default configuration", "path", path)
		return cfg.finish()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg.finish()
}

func (c *Config) finish() (*Config, error) {
	// Tilde first so that both "~/foo" and "${SOME_PATH}" work.
	c.expandTilde()
	c.expandEnvVars()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return c, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyDataDir fills empty storage and archive paths from dd.
func (c *Config) ApplyDataDir(dd *datadir.DataDir) {
	if c.Store.Path == "" {
		c.Store.Path = dd.StorePath()
	}
	if c.Archive.PapersRoot == "" {
		c.Archive.PapersRoot = dd.PapersDir()
	}
	if c.Archive.ImagesRoot == "" {
		c.Archive.ImagesRoot = dd.ImagesDir()
	}
	if c.Watch.Folder == "" {
		c.Watch.Folder = dd.InboxDir()
	}
}

// Validate validates the entire configuration.
func (c *Config) Validate() error {
	if len(c.Topics.Papers) == 0 {
		return fmt.Errorf("topics.papers must not be empty")
	}
	if len(c.Topics.Images) == 0 {
		return fmt.Errorf("topics.images must not be empty")
	}
	if c.Gemini.RequestsPerMinute <= 0 {
		return fmt.Errorf("gemini.requests_per_minute must be greater than 0")
	}
	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("gemini.timeout must be greater than 0")
	}
	if c.Visual.MaxTextLen <= 0 {
		return fmt.Errorf("visual.max_text_len must be greater than 0")
	}
	if c.Ingest.MinPageChars < 0 {
		return fmt.Errorf("ingest.min_page_chars cannot be negative (got %d)", c.Ingest.MinPageChars)
	}
	if c.Ingest.EmbedWorkers <= 0 {
		return fmt.Errorf("ingest.embed_workers must be greater than 0")
	}
	if c.Retrieval.CandidatePool <= 0 || c.Retrieval.SearchTopK <= 0 || c.Retrieval.ImageTopK <= 0 {
		return fmt.Errorf("retrieval sizes must be greater than 0")
	}
	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required when the cache is enabled")
	}
	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
		}
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("invalid watch configuration: %w", err)
	}
	return nil
}

// expandEnvVars expands ${ENV_VAR} placeholders in path and secret fields.
func (c *Config) expandEnvVars() {
	c.DataDir = os.ExpandEnv(c.DataDir)
	c.Store.Path = os.ExpandEnv(c.Store.Path)
	c.Archive.PapersRoot = os.ExpandEnv(c.Archive.PapersRoot)
	c.Archive.ImagesRoot = os.ExpandEnv(c.Archive.ImagesRoot)
	c.Watch.Folder = os.ExpandEnv(c.Watch.Folder)
	c.Gemini.APIKey = os.ExpandEnv(c.Gemini.APIKey)
	c.Visual.Endpoint = os.ExpandEnv(c.Visual.Endpoint)
	c.Cache.RedisAddr = os.ExpandEnv(c.Cache.RedisAddr)
}

// expandTilde replaces a leading "~/" with the user's home directory in
// path-valued fields.
func (c *Config) expandTilde() {
	home, err := os.UserHomeDir()
	if err != nil {
		return // can't expand, leave as-is
	}
	expand := func(p string) string {
		if p == "~" {
			return home
		}
		if strings.HasPrefix(p, "~/") {
			return filepath.Join(home, p[2:])
		}
		return p
	}

	c.DataDir = expand(c.DataDir)
	c.Store.Path = expand(c.Store.Path)
	c.Archive.PapersRoot = expand(c.Archive.PapersRoot)
	c.Archive.ImagesRoot = expand(c.Archive.ImagesRoot)
	c.Watch.Folder = expand(c.Watch.Folder)
}
