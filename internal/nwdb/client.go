package nwdb

import (
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/aeternum-guides/nwdb/internal/cache"
)

// DefaultMaxPages bounds listings far above the largest real NWDB collection
const DefaultMaxPages = 500

// Config holds configuration options for the database client
type Config struct {
	BaseURL     string
	UserAgent   string
	Timeout     time.Duration
	CatalogPath string
	// MaxConcurrentPages bounds concurrent page fetches; 0 means unbounded
	MaxConcurrentPages int
	// MaxPages caps the page count a listing may advertise
	MaxPages          int
	SearchLimit       int
	RankedSearchLimit int
	PerkSearchLimit   int
	CatalogTTL        time.Duration
	PagesTTL          time.Duration
}

// DefaultConfig returns the client defaults against the public host
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://nwdb.info",
		UserAgent:         DefaultUserAgent,
		Timeout:           DefaultTimeout,
		CatalogPath:       "/db/search.json",
		MaxPages:          DefaultMaxPages,
		SearchLimit:       25,
		RankedSearchLimit: 50,
		PerkSearchLimit:   50,
		CatalogTTL:        time.Hour,
		PagesTTL:          30 * time.Minute,
	}
}

// Client exposes entity lookups, search and paginated listings backed by a shared cache
type Client struct {
	gateway *Gateway
	cache   cache.Cache
	config  Config
	logger  *logrus.Logger
	loads   singleflight.Group
}

// NewClient creates a client; zero-valued config fields take DefaultConfig values
func NewClient(config *Config, store cache.Cache, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cfg := mergeDefaults(config)

	gateway := NewGateway(&GatewayConfig{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
	}, logger)

	return &Client{
		gateway: gateway,
		cache:   store,
		config:  cfg,
		logger:  logger,
	}
}

func mergeDefaults(config *Config) Config {
	cfg := *DefaultConfig()
	if config == nil {
		return cfg
	}
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}
	if config.UserAgent != "" {
		cfg.UserAgent = config.UserAgent
	}
	if config.Timeout > 0 {
		cfg.Timeout = config.Timeout
	}
	if config.CatalogPath != "" {
		cfg.CatalogPath = config.CatalogPath
	}
	if config.MaxConcurrentPages > 0 {
		cfg.MaxConcurrentPages = config.MaxConcurrentPages
	}
	if config.MaxPages > 0 {
		cfg.MaxPages = config.MaxPages
	}
	if config.SearchLimit > 0 {
		cfg.SearchLimit = config.SearchLimit
	}
	if config.RankedSearchLimit > 0 {
		cfg.RankedSearchLimit = config.RankedSearchLimit
	}
	if config.PerkSearchLimit > 0 {
		cfg.PerkSearchLimit = config.PerkSearchLimit
	}
	if config.CatalogTTL > 0 {
		cfg.CatalogTTL = config.CatalogTTL
	}
	if config.PagesTTL > 0 {
		cfg.PagesTTL = config.PagesTTL
	}
	return cfg
}

// Gateway exposes the underlying fetch gateway for reference datasets
func (c *Client) Gateway() *Gateway {
	return c.gateway
}

// Cache returns the shared cache
func (c *Client) Cache() cache.Cache {
	return c.cache
}

// Close releases the HTTP client; the cache is owned by the caller
func (c *Client) Close() error {
	return c.gateway.Close()
}
