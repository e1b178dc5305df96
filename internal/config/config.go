package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aeternum-guides/nwdb/internal/cache"
	"github.com/aeternum-guides/nwdb/internal/nwdb"
	"github.com/aeternum-guides/nwdb/internal/objectives"
	"github.com/aeternum-guides/nwdb/internal/server"
)

// Duration is a time.Duration that reads "90s"/"1h" strings or plain seconds from YAML
type Duration time.Duration

// UnmarshalYAML accepts either a Go duration string or an integer number of seconds
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var seconds int64
	if err := node.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration at line %d: %w", node.Line, err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q at line %d: %w", s, node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a Go duration string
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete runtime configuration
type Config struct {
	NWDB    NWDBConfig   `yaml:"nwdb"`
	Cache   CacheConfig  `yaml:"cache"`
	Server  ServerConfig `yaml:"server"`
	Verbose bool         `yaml:"verbose"`
}

// NWDBConfig configures the upstream database client
type NWDBConfig struct {
	BaseURL   string   `yaml:"base_url"`
	UserAgent string   `yaml:"user_agent"`
	Timeout   Duration `yaml:"timeout"`
	// CatalogPath is the bulk all-entities endpoint used as the search index
	CatalogPath string `yaml:"catalog_path"`
	// Dataset locations are relative to BaseURL unless absolute
	ObjectiveTasksURL string `yaml:"objective_tasks_url"`
	GameModesURL      string `yaml:"gamemodes_url"`
	// MaxConcurrentPages bounds concurrent page fetches; 0 means unbounded
	MaxConcurrentPages int `yaml:"max_concurrent_pages"`
	MaxPages           int `yaml:"max_pages"`
	SearchLimit        int `yaml:"search_limit"`
	RankedSearchLimit  int `yaml:"ranked_search_limit"`
	PerkSearchLimit    int `yaml:"perk_search_limit"`
}

// CacheConfig configures the shared cache and per-domain TTLs
type CacheConfig struct {
	Provider   string   `yaml:"provider"`
	Path       string   `yaml:"path"`
	RedisURL   string   `yaml:"redis_url"`
	KeyPrefix  string   `yaml:"key_prefix"`
	DefaultTTL Duration `yaml:"default_ttl"`
	CatalogTTL Duration `yaml:"catalog_ttl"`
	PagesTTL   Duration `yaml:"pages_ttl"`
	RefTTL     Duration `yaml:"ref_ttl"`
	NegRefTTL  Duration `yaml:"negative_ref_ttl"`
	DatasetTTL Duration `yaml:"dataset_ttl"`
}

// ServerConfig configures the JSON API
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	LogBodies  bool   `yaml:"log_bodies"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		NWDB: NWDBConfig{
			BaseURL:           "https://nwdb.info",
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			Timeout:           Duration(10 * time.Second),
			CatalogPath:       "/db/search.json",
			ObjectiveTasksURL: "/db/data/objectivetasks.json",
			GameModesURL:      "/db/data/gamemodes.json",
			MaxPages:          nwdb.DefaultMaxPages,
			SearchLimit:       25,
			RankedSearchLimit: 50,
			PerkSearchLimit:   50,
		},
		Cache: CacheConfig{
			Provider:   cache.ProviderMemory,
			DefaultTTL: Duration(time.Hour),
			CatalogTTL: Duration(time.Hour),
			PagesTTL:   Duration(30 * time.Minute),
			RefTTL:     Duration(24 * time.Hour),
			NegRefTTL:  Duration(15 * time.Minute),
			DatasetTTL: Duration(24 * time.Hour),
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
	}
}

// Load reads an optional YAML file over the defaults, then applies environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unable to parse config file as YAML: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from NWDB_* environment variables
func (c *Config) ApplyEnv(getenv func(string) string) {
	overrides := map[string]*string{
		"NWDB_BASE_URL":       &c.NWDB.BaseURL,
		"NWDB_CACHE_PROVIDER": &c.Cache.Provider,
		"NWDB_CACHE_PATH":     &c.Cache.Path,
		"NWDB_REDIS_URL":      &c.Cache.RedisURL,
		"NWDB_LISTEN_ADDR":    &c.Server.ListenAddr,
	}
	for key, field := range overrides {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*field = v
		}
	}
}

// Validate checks the configuration for values the services cannot work with
func (c *Config) Validate() error {
	if c.NWDB.BaseURL == "" {
		return fmt.Errorf("nwdb.base_url is required")
	}
	if c.NWDB.Timeout.Std() <= 0 {
		return fmt.Errorf("nwdb.timeout must be positive")
	}
	if c.NWDB.MaxConcurrentPages < 0 {
		return fmt.Errorf("nwdb.max_concurrent_pages must not be negative")
	}
	for name, limit := range map[string]int{
		"nwdb.search_limit":        c.NWDB.SearchLimit,
		"nwdb.ranked_search_limit": c.NWDB.RankedSearchLimit,
		"nwdb.perk_search_limit":   c.NWDB.PerkSearchLimit,
		"nwdb.max_pages":           c.NWDB.MaxPages,
	} {
		if limit <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	switch strings.ToLower(c.Cache.Provider) {
	case cache.ProviderMemory, cache.ProviderRedis:
	case cache.ProviderSQLite:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the sqlite provider")
		}
	default:
		return fmt.Errorf("unsupported cache provider '%s'", c.Cache.Provider)
	}

	return nil
}

// CacheBackend translates the cache section for the cache factory
func (c *Config) CacheBackend() *cache.Config {
	return &cache.Config{
		Provider:   c.Cache.Provider,
		DefaultTTL: c.Cache.DefaultTTL.Std(),
		SQLitePath: c.Cache.Path,
		RedisURL:   c.Cache.RedisURL,
		KeyPrefix:  c.Cache.KeyPrefix,
	}
}

// ClientConfig translates the nwdb and cache sections for the database client
func (c *Config) ClientConfig() *nwdb.Config {
	return &nwdb.Config{
		BaseURL:            c.NWDB.BaseURL,
		UserAgent:          c.NWDB.UserAgent,
		Timeout:            c.NWDB.Timeout.Std(),
		CatalogPath:        c.NWDB.CatalogPath,
		MaxConcurrentPages: c.NWDB.MaxConcurrentPages,
		MaxPages:           c.NWDB.MaxPages,
		SearchLimit:        c.NWDB.SearchLimit,
		RankedSearchLimit:  c.NWDB.RankedSearchLimit,
		PerkSearchLimit:    c.NWDB.PerkSearchLimit,
		CatalogTTL:         c.Cache.CatalogTTL.Std(),
		PagesTTL:           c.Cache.PagesTTL.Std(),
	}
}

// ObjectivesConfig translates the dataset locations and reference TTLs
func (c *Config) ObjectivesConfig() *objectives.Config {
	return &objectives.Config{
		TasksURL:       c.NWDB.ObjectiveTasksURL,
		GameModesURL:   c.NWDB.GameModesURL,
		RefTTL:         c.Cache.RefTTL.Std(),
		NegativeRefTTL: c.Cache.NegRefTTL.Std(),
		DatasetTTL:     c.Cache.DatasetTTL.Std(),
	}
}

// ServerConfig translates the server section
func (c *Config) ServerConfig() *server.Config {
	return &server.Config{
		ListenAddr: c.Server.ListenAddr,
		LogBodies:  c.Server.LogBodies,
	}
}
