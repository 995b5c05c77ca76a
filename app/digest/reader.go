package digest

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxFeedSize bounds how much of a feed body is read.
const maxFeedSize = 10 << 20

type Parser interface {
	Run(source SourceConfig, data []byte) ([]NormalizedItem, error)
}

// FeedReader fetches a source and dispatches the body to the parser for its type.
type FeedReader struct {
	fetcher *Fetcher
	parsers map[SourceType]Parser
}

func NewFeedReader(fetcher *Fetcher) *FeedReader {
	return &FeedReader{
		fetcher: fetcher,
		parsers: map[SourceType]Parser{
			SourceTypeRSS:  NewRSSParser(),
			SourceTypeJSON: NewJSONParser(),
		},
	}
}

func (r *FeedReader) Read(ctx context.Context, source SourceConfig) ([]NormalizedItem, error) {
	parser, ok := r.parsers[source.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported source type: %s", source.Type)
	}

	var header http.Header
	if source.Type == SourceTypeJSON {
		header = http.Header{"Accept": []string{"application/feed+json, application/json, */*"}}
	}

	resp, err := r.fetcher.Get(ctx, source.URL, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return parser.Run(source, data)
}
