package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Server configuration
	Port         string `long:"port" env:"PORT" default:"3000" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://digest.example.com)"`
	CORSOrigins  string `long:"cors-origins" env:"CORS_ORIGINS" default:"*" description:"Comma-separated list of allowed CORS origins"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for protected endpoints (optional)"`

	// Digest configuration
	SourcesFile      string `long:"sources-file" env:"SOURCES_FILE" default:"./config/sources.yml" description:"YAML file with digest sources and presets"`
	FetchRetries     int    `long:"fetch-retries" env:"FETCH_RETRIES" default:"2" description:"Retries for failed upstream requests"`
	FetchBaseDelayMs int    `long:"fetch-base-delay-ms" env:"FETCH_BASE_DELAY_MS" default:"400" description:"Base backoff delay in milliseconds"`
	FetchTimeout     int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"20" description:"Per-source timeout in seconds"`
	FetchConcurrency int    `long:"fetch-concurrency" env:"FETCH_CONCURRENCY" default:"4" description:"Number of sources fetched in parallel"`
	MaxSources       int    `long:"max-sources" env:"MAX_SOURCES" default:"20" description:"Maximum number of registry sources per request"`
	GoogleCeidPolicy string `long:"google-ceid-policy" env:"GOOGLE_CEID_POLICY" default:"none" choice:"none" choice:"derive" description:"Whether a missing Google News ceid is derived from gl and hl"`
	UserAgent        string `long:"user-agent" env:"USER_AGENT" description:"User agent string for upstream requests"`

	// Storage configuration
	Storage  string `long:"storage" env:"STORAGE" default:"memory" choice:"memory" choice:"sqlite" choice:"redis" description:"Cache storage backend"`
	DBPath   string `long:"db-path" env:"DB_PATH" default:"./data/news-digest.db" description:"SQLite database path"`
	RedisURL string `long:"redis-url" env:"REDIS_URL" default:"redis://localhost:6379/0" description:"Redis connection URL"`

	// Stock quotes
	FinnhubAPIKey string `long:"finnhub-api-key" env:"FINNHUB_API_KEY" description:"Finnhub API key (stock quotes are disabled without it)"`
	StockSymbols  string `long:"stock-symbols" env:"STOCK_SYMBOLS" description:"Comma-separated list of ticker symbols"`
	StockCacheTTL int    `long:"stock-cache-ttl" env:"STOCK_CACHE_TTL" default:"3600" description:"Stock quote cache TTL in seconds"`
	StockProfiles bool   `long:"stock-profiles" env:"STOCK_PROFILES" description:"Enrich quotes with company name and industry"`

	// CMS and newsletter
	PayloadAPIURL    string `long:"payload-api-url" env:"PAYLOAD_API_URL" description:"Payload CMS REST API base URL"`
	CMSCacheTTL      int    `long:"cms-cache-ttl" env:"CMS_CACHE_TTL" default:"14400" description:"CMS listing cache TTL in seconds"`
	ButtondownAPIKey string `long:"buttondown-api-key" env:"BUTTONDOWN_API_KEY" description:"Buttondown API key for newsletter subscriptions"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Berlin)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load reads an optional .env file and then parses flags and environment.
// It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	return parse(os.Args[1:])
}

func parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, err
	}

	cfg := &Cfg{
		Port:             raw.Port,
		BaseUrl:          strings.TrimRight(raw.BaseUrl, "/"),
		CORSOrigins:      splitList(raw.CORSOrigins),
		APIAccessKey:     raw.APIAccessKey,
		SourcesFile:      raw.SourcesFile,
		FetchRetries:     raw.FetchRetries,
		FetchBaseDelay:   time.Duration(raw.FetchBaseDelayMs) * time.Millisecond,
		FetchTimeout:     time.Duration(raw.FetchTimeout) * time.Second,
		FetchConcurrency: raw.FetchConcurrency,
		MaxSources:       raw.MaxSources,
		GoogleCeidPolicy: raw.GoogleCeidPolicy,
		UserAgent:        raw.UserAgent,
		Storage:          raw.Storage,
		DBPath:           raw.DBPath,
		RedisURL:         raw.RedisURL,
		FinnhubAPIKey:    raw.FinnhubAPIKey,
		StockSymbols:     splitSymbols(raw.StockSymbols),
		StockCacheTTL:    time.Duration(raw.StockCacheTTL) * time.Second,
		StockProfiles:    raw.StockProfiles,
		PayloadAPIURL:    raw.PayloadAPIURL,
		CMSCacheTTL:      time.Duration(raw.CMSCacheTTL) * time.Second,
		ButtondownAPIKey: raw.ButtondownAPIKey,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

func validate(raw *rawCfg) error {
	switch {
	case raw.FetchRetries < 0:
		return fmt.Errorf("fetch retries must not be negative, got %d", raw.FetchRetries)
	case raw.FetchBaseDelayMs <= 0:
		return fmt.Errorf("fetch base delay must be positive, got %d", raw.FetchBaseDelayMs)
	case raw.FetchTimeout <= 0:
		return fmt.Errorf("fetch timeout must be positive, got %d", raw.FetchTimeout)
	case raw.FetchConcurrency <= 0:
		return fmt.Errorf("fetch concurrency must be positive, got %d", raw.FetchConcurrency)
	case raw.MaxSources <= 0:
		return fmt.Errorf("max sources must be positive, got %d", raw.MaxSources)
	case raw.StockCacheTTL <= 0:
		return fmt.Errorf("stock cache TTL must be positive, got %d", raw.StockCacheTTL)
	case raw.CMSCacheTTL <= 0:
		return fmt.Errorf("CMS cache TTL must be positive, got %d", raw.CMSCacheTTL)
	}
	return nil
}

func splitList(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func splitSymbols(value string) []string {
	symbols := splitList(value)
	for i, symbol := range symbols {
		symbols[i] = strings.ToUpper(symbol)
	}
	return symbols
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
	}
	return nil
}
