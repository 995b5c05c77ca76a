package cfg

import "time"

type Cfg struct {
	// Server configuration
	Port         string
	BaseUrl      string
	CORSOrigins  []string
	APIAccessKey string

	// Digest configuration
	SourcesFile      string
	FetchRetries     int
	FetchBaseDelay   time.Duration
	FetchTimeout     time.Duration
	FetchConcurrency int
	MaxSources       int
	GoogleCeidPolicy string
	UserAgent        string

	// Storage configuration
	Storage  string
	DBPath   string
	RedisURL string

	// Stock quotes
	FinnhubAPIKey string
	StockSymbols  []string
	StockCacheTTL time.Duration
	StockProfiles bool

	// CMS and newsletter
	PayloadAPIURL    string
	CMSCacheTTL      time.Duration
	ButtondownAPIKey string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
