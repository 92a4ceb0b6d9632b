package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for dealsift.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"    yaml:"engine"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"   yaml:"fetcher"`
	Locator   LocatorConfig   `mapstructure:"locator"   yaml:"locator"`
	Extractor ExtractorConfig `mapstructure:"extractor" yaml:"extractor"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// EngineConfig controls the pagination scrape engine.
type EngineConfig struct {
	Concurrency     int           `mapstructure:"concurrency"      yaml:"concurrency"`
	MaxPages        int           `mapstructure:"max_pages"        yaml:"max_pages"`
	PageParam       string        `mapstructure:"page_param"       yaml:"page_param"`
	EmptyPageLimit  int           `mapstructure:"empty_page_limit" yaml:"empty_page_limit"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  yaml:"request_timeout"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay" yaml:"politeness_delay"`
	MaxRetries      int           `mapstructure:"max_retries"      yaml:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"      yaml:"retry_delay"`
	FlushEvery      int           `mapstructure:"flush_every"      yaml:"flush_every"`
	CheckpointPath  string        `mapstructure:"checkpoint_path"  yaml:"checkpoint_path"`
	UserAgents      []string      `mapstructure:"user_agents"      yaml:"user_agents"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	WaitSelector    string        `mapstructure:"wait_selector"     yaml:"wait_selector"`
}

// LocatorConfig controls listing-container discovery.
type LocatorConfig struct {
	// Selectors are structural CSS markers tried first, in order.
	Selectors []string `mapstructure:"selectors" yaml:"selectors"`

	// XPathSelectors are structural XPath markers tried after the CSS set.
	XPathSelectors []string `mapstructure:"xpath_selectors" yaml:"xpath_selectors"`

	// MinContainers/MaxContainers bound the plausible hit count for a
	// structural strategy; the fallback result is capped at MaxContainers.
	MinContainers int `mapstructure:"min_containers" yaml:"min_containers"`
	MaxContainers int `mapstructure:"max_containers" yaml:"max_containers"`

	// MaxAncestorDepth bounds the price-to-card ancestor walk.
	MaxAncestorDepth int `mapstructure:"max_ancestor_depth" yaml:"max_ancestor_depth"`

	// MinChildElements and MinCardTextLen decide when an ancestor is rich
	// enough to be a full listing card rather than a lone price label.
	MinChildElements int `mapstructure:"min_child_elements" yaml:"min_child_elements"`
	MinCardTextLen   int `mapstructure:"min_card_text_len"  yaml:"min_card_text_len"`

	// MaxPriceTextLen excludes whole-page wrappers from the currency scan.
	MaxPriceTextLen int `mapstructure:"max_price_text_len" yaml:"max_price_text_len"`
}

// ExtractorConfig controls field extraction and acceptance.
type ExtractorConfig struct {
	// MinConfidence is the acceptance threshold out of a max score of 100.
	MinConfidence int `mapstructure:"min_confidence" yaml:"min_confidence"`

	// MaxPrice and MaxMonthlyRecurring reject implausible currency matches.
	MaxPrice            float64 `mapstructure:"max_price"             yaml:"max_price"`
	MaxMonthlyRecurring float64 `mapstructure:"max_monthly_recurring" yaml:"max_monthly_recurring"`

	// MaxMultiple bounds direct and derived valuation multiples.
	MaxMultiple float64 `mapstructure:"max_multiple" yaml:"max_multiple"`

	// GenericAnchorLabels are anchor texts never usable as titles.
	GenericAnchorLabels []string `mapstructure:"generic_anchor_labels" yaml:"generic_anchor_labels"`

	// Categories are recognized business-category labels.
	Categories []string `mapstructure:"categories" yaml:"categories"`

	// Badges are recognized marketplace badge labels.
	Badges []string `mapstructure:"badges" yaml:"badges"`
}

// StorageConfig controls the persistence sink.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"`
	OutputPath      string `mapstructure:"output_path"      yaml:"output_path"`
	BatchSize       int    `mapstructure:"batch_size"       yaml:"batch_size"`
	PostgresDSN     string `mapstructure:"postgres_dsn"     yaml:"postgres_dsn"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
	SQLitePath      string `mapstructure:"sqlite_path"      yaml:"sqlite_path"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Concurrency:     4,
			MaxPages:        200,
			PageParam:       "page",
			EmptyPageLimit:  3,
			RequestTimeout:  30 * time.Second,
			PolitenessDelay: 1 * time.Second,
			MaxRetries:      3,
			RetryDelay:      2 * time.Second,
			FlushEvery:      5,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
		},
		Locator: LocatorConfig{
			Selectors: []string{
				"div[id^='listing-']",
				"[data-listing-id]",
				"div[class*='ListingCard']",
			},
			XPathSelectors: []string{
				"//div[starts-with(@id, 'listing-')]",
			},
			MinContainers:    1,
			MaxContainers:    25,
			MaxAncestorDepth: 6,
			MinChildElements: 2,
			MinCardTextLen:   40,
			MaxPriceTextLen:  600,
		},
		Extractor: ExtractorConfig{
			MinConfidence:       35,
			MaxPrice:            50_000_000,
			MaxMonthlyRecurring: 1_000_000,
			MaxMultiple:         100,
			GenericAnchorLabels: []string{
				"view listing", "view", "watch", "bid now", "buy it now", "read more",
			},
			Categories: []string{
				"SaaS", "Ecommerce", "Content", "App", "Marketplace",
				"Service", "Newsletter", "Plugin", "Domain", "Amazon FBA",
			},
			Badges: []string{
				"Verified", "Sponsored", "Editor's Choice", "Confidential",
				"Broker", "Managed", "Super Seller",
			},
		},
		Storage: StorageConfig{
			Type:            "jsonl",
			OutputPath:      "./output",
			BatchSize:       100,
			MongoDatabase:   "dealsift",
			MongoCollection: "listings",
			SQLitePath:      "./output/listings.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
