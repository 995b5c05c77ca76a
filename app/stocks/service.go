package stocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lysyi3m/news-digest/app/storage"
)

const (
	CacheKey   = "stocks:ai"
	DefaultTTL = time.Hour

	fillTimeout = 30 * time.Second
)

var DefaultSymbols = []string{"MSFT", "GOOGL", "NVDA", "META", "AMZN", "AAPL", "CRM", "PLTR", "ADBE", "NOW"}

var ErrMissingAPIKey = errors.New("stock API key is not configured")

type Options struct {
	Symbols []string
	TTL     time.Duration
}

// Service serves the configured symbol list from a single cache entry that
// is refreshed at most once per TTL.
type Service struct {
	provider Provider
	store    storage.Storage
	symbols  []string
	ttl      time.Duration
	now      func() time.Time
	group    singleflight.Group
}

func NewService(provider Provider, store storage.Storage, opts Options) *Service {
	if len(opts.Symbols) == 0 {
		opts.Symbols = DefaultSymbols
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	return &Service{
		provider: provider,
		store:    store,
		symbols:  opts.Symbols,
		ttl:      opts.TTL,
		now:      time.Now,
	}
}

func (s *Service) Symbols() []string {
	return s.symbols
}

// Quotes returns one quote per configured symbol. Debug requests always hit
// the provider, keep raw payloads and leave the cache untouched.
func (s *Service) Quotes(ctx context.Context, req Request) ([]Quote, error) {
	if s.provider == nil {
		return nil, ErrMissingAPIKey
	}

	if req.Debug {
		return s.fetchAll(ctx, true), nil
	}

	if req.Refresh {
		if err := s.store.Delete(ctx, CacheKey); err != nil {
			slog.Warn("Failed to evict stock cache", "error", err)
		}
		return s.fetchAndStore(ctx), nil
	}

	if quotes, ok := s.cached(ctx); ok {
		return quotes, nil
	}

	result, _, _ := s.group.Do(CacheKey, func() (any, error) {
		if quotes, ok := s.cached(ctx); ok {
			return quotes, nil
		}
		return s.fetchAndStore(ctx), nil
	})

	return result.([]Quote), nil
}

func (s *Service) cached(ctx context.Context) ([]Quote, bool) {
	data, ok, err := s.store.Get(ctx, CacheKey)
	if err != nil {
		slog.Warn("Failed to read stock cache", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.Warn("Discarding unreadable stock cache entry", "error", err)
		return nil, false
	}

	age := s.now().Sub(time.UnixMilli(entry.Timestamp))
	if age >= s.ttl {
		slog.Debug("Stock cache expired", "age", age.String())
		return nil, false
	}

	slog.Debug("Serving stock quotes from cache", "age", age.String())
	return entry.Data, true
}

// fetchAndStore fills the shared cache entry. The fill outlives the request
// that triggered it, so a client disconnect cannot cache failed quotes.
func (s *Service) fetchAndStore(ctx context.Context) []Quote {
	fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
	defer cancel()

	quotes := s.fetchAll(fillCtx, false)
	if err := fillCtx.Err(); err != nil {
		slog.Warn("Stock cache fill did not complete, skipping cache write", "error", err)
		return quotes
	}

	data, err := json.Marshal(cacheEntry{Data: quotes, Timestamp: s.now().UnixMilli()})
	if err != nil {
		slog.Warn("Failed to encode stock cache entry", "error", err)
		return quotes
	}

	if err := s.store.Set(fillCtx, CacheKey, data, 0); err != nil {
		slog.Warn("Failed to write stock cache", "error", err)
	}

	return quotes
}

// fetchAll queries symbols one at a time to stay within provider rate limits.
func (s *Service) fetchAll(ctx context.Context, includeRaw bool) []Quote {
	quotes := make([]Quote, 0, len(s.symbols))
	failed := 0

	for _, symbol := range s.symbols {
		quote, err := s.provider.Quote(ctx, symbol)
		if err != nil {
			slog.Warn("Failed to fetch stock quote", "symbol", symbol, "error", err)
			failed++
			quote = Quote{Symbol: symbol, Error: fmt.Sprintf("failed to fetch quote: %v", err)}
		}
		if quote.Symbol == "" {
			quote.Symbol = symbol
		}
		if quote.FetchedAt.IsZero() {
			quote.FetchedAt = s.now().UTC()
		}
		if !includeRaw {
			quote.Raw = nil
		}
		quotes = append(quotes, quote)
	}

	slog.Info("Stock quotes fetched", "symbols", len(s.symbols), "failed", failed)

	return quotes
}
