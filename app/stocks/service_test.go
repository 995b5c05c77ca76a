package stocks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/lysyi3m/news-digest/app/storage"
)

type fakeProvider struct {
	calls   atomic.Int32
	price   atomic.Int32
	failing map[string]bool
	delay   time.Duration
}

func (p *fakeProvider) Quote(ctx context.Context, symbol string) (Quote, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	if p.failing[symbol] {
		return Quote{}, errors.New("upstream unavailable")
	}
	price := float64(p.price.Load())
	return Quote{Symbol: symbol, Price: &price, Raw: map[string]any{"c": price}}, nil
}

func newTestService(provider Provider, now *time.Time) *Service {
	service := NewService(provider, storage.NewMemory(), Options{Symbols: []string{"MSFT", "NVDA"}})
	service.now = func() time.Time { return *now }
	return service
}

func TestQuotes_CachedWithinTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{}
	provider.price.Store(100)
	service := newTestService(provider, &now)

	first, err := service.Quotes(context.Background(), Request{})
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(first))
	assert.Equal(t, int32(2), provider.calls.Load())

	provider.price.Store(200)
	now = now.Add(59 * time.Minute)

	second, err := service.Quotes(context.Background(), Request{})
	assert.Equal(t, nil, err)
	assert.Equal(t, int32(2), provider.calls.Load())

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	assert.Equal(t, string(firstJSON), string(secondJSON))
	assert.Equal(t, nil, second[0].Raw)
}

func TestQuotes_ExpiresAfterTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{}
	provider.price.Store(100)
	service := newTestService(provider, &now)

	service.Quotes(context.Background(), Request{})

	provider.price.Store(200)
	now = now.Add(time.Hour)

	quotes, err := service.Quotes(context.Background(), Request{})
	assert.Equal(t, nil, err)
	assert.Equal(t, int32(4), provider.calls.Load())
	assert.Equal(t, 200.0, *quotes[0].Price)
}

func TestQuotes_CanceledRequestDoesNotCacheFailures(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{}
	provider.price.Store(100)
	service := newTestService(provider, &now)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	quotes, err := service.Quotes(ctx, Request{})
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(quotes))
	assert.Equal(t, "", quotes[0].Error)

	now = now.Add(time.Minute)

	quotes, err = service.Quotes(context.Background(), Request{})
	assert.Equal(t, nil, err)
	assert.Equal(t, int32(2), provider.calls.Load())
	for _, quote := range quotes {
		assert.Equal(t, "", quote.Error)
		assert.NotEqual(t, nil, quote.Price)
		assert.Equal(t, 100.0, *quote.Price)
	}
}

func TestQuotes_RefreshAlwaysRefetches(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{}
	provider.price.Store(100)
	service := newTestService(provider, &now)

	service.Quotes(context.Background(), Request{})
	provider.price.Store(150)

	refreshed, err := service.Quotes(context.Background(), Request{Refresh: true})
	assert.Equal(t, nil, err)
	assert.Equal(t, int32(4), provider.calls.Load())
	assert.Equal(t, 150.0, *refreshed[0].Price)

	cached, _ := service.Quotes(context.Background(), Request{})
	assert.Equal(t, int32(4), provider.calls.Load())
	assert.Equal(t, 150.0, *cached[0].Price)
}

func TestQuotes_DebugBypassesCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{}
	provider.price.Store(100)
	service := newTestService(provider, &now)

	debug, err := service.Quotes(context.Background(), Request{Debug: true})
	assert.Equal(t, nil, err)
	assert.NotEqual(t, nil, debug[0].Raw)

	_, ok, _ := service.store.Get(context.Background(), CacheKey)
	assert.Equal(t, false, ok)

	service.Quotes(context.Background(), Request{})
	service.Quotes(context.Background(), Request{Debug: true})
	assert.Equal(t, int32(6), provider.calls.Load())
}

func TestQuotes_PerSymbolFailureDegrades(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{failing: map[string]bool{"NVDA": true}}
	provider.price.Store(100)
	service := newTestService(provider, &now)

	quotes, err := service.Quotes(context.Background(), Request{})
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(quotes))

	assert.Equal(t, "MSFT", quotes[0].Symbol)
	assert.Equal(t, "", quotes[0].Error)

	assert.Equal(t, "NVDA", quotes[1].Symbol)
	assert.Equal(t, true, quotes[1].Price == nil)
	assert.Equal(t, true, quotes[1].Change == nil)
	assert.Equal(t, "failed to fetch quote: upstream unavailable", quotes[1].Error)
	assert.Equal(t, now, quotes[1].FetchedAt)

	_, ok, _ := service.store.Get(context.Background(), CacheKey)
	assert.Equal(t, true, ok)
}

func TestQuotes_MissingProvider(t *testing.T) {
	service := NewService(nil, storage.NewMemory(), Options{})

	_, err := service.Quotes(context.Background(), Request{})
	assert.Equal(t, true, errors.Is(err, ErrMissingAPIKey))
	assert.Equal(t, DefaultSymbols, service.Symbols())
}

func TestQuotes_ColdMissesAreCoalesced(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{delay: 20 * time.Millisecond}
	service := newTestService(provider, &now)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			quotes, err := service.Quotes(context.Background(), Request{})
			if err != nil || len(quotes) != 2 {
				t.Errorf("Expected 2 quotes, got %d (err %v)", len(quotes), err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), provider.calls.Load())
}

func TestQuotes_IgnoresCorruptCacheEntry(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{}
	service := newTestService(provider, &now)

	service.store.Set(context.Background(), CacheKey, []byte("not json"), 0)

	quotes, err := service.Quotes(context.Background(), Request{})
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(quotes))
	assert.Equal(t, int32(2), provider.calls.Load())
}
