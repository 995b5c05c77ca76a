package stocks

import (
	"context"
	"time"
)

type DayRange struct {
	Low  *float64 `json:"low"`
	High *float64 `json:"high"`
}

// Quote is one symbol's market snapshot. Numeric fields are nil when the
// upstream had no data or the fetch for the symbol failed.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         *float64  `json:"price"`
	Change        *float64  `json:"change"`
	ChangePercent *float64  `json:"changePercent"`
	Open          *float64  `json:"open"`
	DayRange      DayRange  `json:"dayRange"`
	Name          *string   `json:"name"`
	Industry      *string   `json:"industry"`
	FetchedAt     time.Time `json:"fetchedAt"`
	Error         string    `json:"error,omitempty"`
	Raw           any       `json:"raw,omitempty"`
}

// Provider fetches a single quote from a market-data API.
type Provider interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// cacheEntry is the persisted form of a full quote list. Timestamp is in
// milliseconds since the epoch.
type cacheEntry struct {
	Data      []Quote `json:"data"`
	Timestamp int64   `json:"timestamp"`
}

type Request struct {
	Refresh bool
	Debug   bool
}
