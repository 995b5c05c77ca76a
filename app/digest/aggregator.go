package digest

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxSources = 20

	// Items with at least this many characters of text count as rich.
	RichContentLength = 600
)

type AggregatorOptions struct {
	MaxSources  int
	CeidPolicy  CeidPolicy
	Concurrency int
	Timeout     time.Duration
}

// Aggregator resolves sources for a request, reads them concurrently and
// turns the merged items into a windowed, de-duplicated, sorted digest.
type Aggregator struct {
	registry   *Registry
	pool       *Pool
	filterer   *Filterer
	extractor  *ContentExtractor
	maxSources int
	ceidPolicy CeidPolicy
	extractors int
	now        func() time.Time
	newID      func() string
}

func NewAggregator(registry *Registry, reader SourceReader, extractor *ContentExtractor, opts AggregatorOptions) *Aggregator {
	if opts.MaxSources <= 0 {
		opts.MaxSources = DefaultMaxSources
	}
	if opts.CeidPolicy == "" {
		opts.CeidPolicy = CeidPolicyNone
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	return &Aggregator{
		registry:   registry,
		pool:       NewPool(reader, opts.Concurrency, opts.Timeout),
		filterer:   NewFilterer(),
		extractor:  extractor,
		maxSources: opts.MaxSources,
		ceidPolicy: opts.CeidPolicy,
		extractors: opts.Concurrency,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Run never fails for upstream problems. Per-source failures end up in Meta.Errors.
func (a *Aggregator) Run(ctx context.Context, req Request) AggregationResult {
	if req.WindowHours <= 0 {
		req.WindowHours = DefaultWindowHours
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}

	meta := Meta{
		RequestID:   a.newID(),
		WindowHours: req.WindowHours,
		Limit:       req.Limit,
		Errors:      []SourceError{},
		Presets:     a.registry.GetPresets(),
	}

	sources := a.resolveSources(req, &meta)
	meta.SourcesRequested = len(sources)

	filtersBySource := make(map[string][]SourceFilter)
	for _, source := range sources {
		if len(source.Filters) > 0 {
			filtersBySource[source.ID] = source.Filters
		}
	}

	var fetched []NormalizedItem
	for i, result := range a.pool.Run(ctx, sources) {
		if result.err != nil {
			meta.Errors = append(meta.Errors, SourceError{SourceID: sources[i].ID, Message: result.err.Error()})
			continue
		}
		meta.SourcesSucceeded++
		fetched = append(fetched, result.items...)
	}
	meta.ItemsTotal = len(fetched)

	now := a.now()
	cutoff := now.Add(-time.Duration(req.WindowHours * float64(time.Hour)))
	recent := make([]NormalizedItem, 0, len(fetched))
	for _, item := range fetched {
		if !item.PublishedAt.Before(cutoff) {
			recent = append(recent, item)
		}
	}

	unique, duplicates := dedupe(recent)
	meta.ItemsDuplicate = duplicates

	clean, excluded := a.filterer.Run(unique, filtersBySource)
	meta.ItemsExcluded = excluded

	for i := range clean {
		annotate(&clean[i])
	}

	slices.SortStableFunc(clean, func(x, y NormalizedItem) int {
		return y.PublishedAt.Compare(x.PublishedAt)
	})

	items := clean[:min(len(clean), req.Limit)]

	if req.Extract && a.extractor != nil {
		a.extract(ctx, items)
	}

	if !req.IncludeRaw {
		for i := range items {
			items[i].Raw = nil
		}
	}

	meta.ItemsReturned = len(items)
	meta.GeneratedAt = normalizeTime(a.now())

	slog.Info("Digest aggregated",
		"request_id", meta.RequestID,
		"sources", meta.SourcesRequested,
		"succeeded", meta.SourcesSucceeded,
		"items", meta.ItemsReturned,
		"errors", len(meta.Errors))

	return AggregationResult{Meta: meta, Items: items}
}

func (a *Aggregator) resolveSources(req Request, meta *Meta) []SourceConfig {
	var sources []SourceConfig

	if !req.GoogleOnly {
		if len(req.SourceIDs) > 0 {
			for _, id := range req.SourceIDs {
				source, ok := a.registry.GetSource(id)
				if !ok {
					meta.Errors = append(meta.Errors, SourceError{SourceID: id, Message: "unknown source"})
					continue
				}
				sources = append(sources, source)
			}
		} else {
			sources = a.registry.GetSources()
		}

		if len(sources) > a.maxSources {
			slog.Debug("Source selection capped", "requested", len(sources), "max", a.maxSources)
			sources = sources[:a.maxSources]
		}
	}

	if req.GoogleEnabled() {
		if source, err := a.googleSource(req); err != nil {
			meta.Errors = append(meta.Errors, *err)
		} else {
			sources = append(sources, source)
		}
	}

	return sources
}

func (a *Aggregator) googleSource(req Request) (SourceConfig, *SourceError) {
	googleReq := req.GoogleNews
	if req.PresetID != "" {
		preset, ok := a.registry.GetPreset(req.PresetID)
		if !ok {
			return SourceConfig{}, &SourceError{SourceID: req.PresetID, Message: fmt.Sprintf("unknown preset: %s", req.PresetID)}
		}
		googleReq.Preset = preset
	}

	params := ResolveGoogleParams(googleReq, a.ceidPolicy)
	feedURL, ok := BuildGoogleNewsURL(params)
	if !ok {
		sourceID := GoogleCustomSourceID
		if googleReq.Preset != nil {
			sourceID = googleReq.Preset.ID
		}
		return SourceConfig{}, &SourceError{SourceID: sourceID, Message: ErrInvalidGoogleQuery.Error()}
	}

	return GoogleSource(googleReq.Preset, params, feedURL), nil
}

func (a *Aggregator) extract(ctx context.Context, items []NormalizedItem) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.extractors)

	for i := range items {
		g.Go(func() error {
			enriched, err := a.extractor.Enrich(gctx, items[i])
			if err != nil {
				slog.Warn("Content extraction failed", "source", items[i].SourceID, "url", items[i].URL, "error", err)
				return nil
			}
			annotate(&enriched)
			items[i] = enriched
			return nil
		})
	}

	_ = g.Wait()
}

// dedupe keeps the first occurrence of every item id within a source.
func dedupe(items []NormalizedItem) ([]NormalizedItem, int) {
	seen := make(map[string]bool, len(items))
	unique := make([]NormalizedItem, 0, len(items))
	for _, item := range items {
		key := item.SourceID + "\x00" + item.ID
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, item)
	}
	return unique, len(items) - len(unique)
}

func annotate(item *NormalizedItem) {
	item.HasRichContent = item.ContentKind == ContentKindContent || item.ContentLength >= RichContentLength
}
