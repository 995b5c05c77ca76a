package stocks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
)

type FinnhubProvider struct {
	client   *finnhub.DefaultApiService
	profiles bool
	mu       sync.Mutex
	cache    map[string]finnhub.CompanyProfile2
	now      func() time.Time
}

// NewFinnhubProvider returns a provider for the Finnhub REST API. Company
// profiles are fetched once per symbol when withProfiles is set.
func NewFinnhubProvider(apiKey string, httpClient *http.Client, withProfiles bool) *FinnhubProvider {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	client := finnhub.NewAPIClient(cfg).DefaultApi

	return &FinnhubProvider{
		client:   client,
		profiles: withProfiles,
		cache:    make(map[string]finnhub.CompanyProfile2),
		now:      time.Now,
	}
}

func (p *FinnhubProvider) Quote(ctx context.Context, symbol string) (Quote, error) {
	res, _, err := p.client.Quote(ctx).Symbol(symbol).Execute()
	if err != nil {
		return Quote{}, err
	}

	// Finnhub answers unknown symbols with an all-zero quote.
	if res.C == nil || *res.C == 0 {
		return Quote{}, fmt.Errorf("no quote data for %s", symbol)
	}

	quote := Quote{
		Symbol:        symbol,
		Price:         toFloat(res.C),
		Change:        toFloat(res.D),
		ChangePercent: toFloat(res.Dp),
		Open:          toFloat(res.O),
		DayRange: DayRange{
			Low:  toFloat(res.L),
			High: toFloat(res.H),
		},
		FetchedAt: p.now().UTC(),
	}

	raw := map[string]any{"quote": res}

	if p.profiles {
		profile, err := p.profile(ctx, symbol)
		if err != nil {
			slog.Warn("Failed to fetch company profile", "symbol", symbol, "error", err)
		} else {
			quote.Name = nonEmpty(profile.Name)
			quote.Industry = nonEmpty(profile.FinnhubIndustry)
			raw["profile"] = profile
		}
	}

	quote.Raw = raw
	return quote, nil
}

func (p *FinnhubProvider) profile(ctx context.Context, symbol string) (finnhub.CompanyProfile2, error) {
	p.mu.Lock()
	cached, ok := p.cache[symbol]
	p.mu.Unlock()
	if ok {
		return cached, nil
	}

	profile, _, err := p.client.CompanyProfile2(ctx).Symbol(symbol).Execute()
	if err != nil {
		return finnhub.CompanyProfile2{}, err
	}

	p.mu.Lock()
	p.cache[symbol] = profile
	p.mu.Unlock()

	return profile, nil
}

// toFloat widens a float32 without carrying binary noise into the JSON output.
func toFloat(value *float32) *float64 {
	if value == nil {
		return nil
	}
	widened, err := strconv.ParseFloat(strconv.FormatFloat(float64(*value), 'f', -1, 32), 64)
	if err != nil {
		widened = float64(*value)
	}
	return &widened
}

func nonEmpty(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	return value
}
