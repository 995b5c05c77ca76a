package digest

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"
)

type RSSParser struct {
	now func() time.Time
}

func NewRSSParser() *RSSParser {
	return &RSSParser{now: time.Now}
}

// Run normalizes an RSS 2.0 or Atom document. Documents that are neither
// yield no items rather than an error.
func (p *RSSParser) Run(source SourceConfig, data []byte) ([]NormalizedItem, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeRSS:
		feed, err := (&rss.Parser{}).Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
		}
		items := make([]NormalizedItem, 0, len(feed.Items))
		for _, item := range feed.Items {
			if item != nil {
				items = append(items, p.normalizeRSSItem(source, item))
			}
		}
		return items, nil

	case gofeed.FeedTypeAtom:
		feed, err := (&atom.Parser{}).Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse Atom feed: %w", err)
		}
		items := make([]NormalizedItem, 0, len(feed.Entries))
		for _, entry := range feed.Entries {
			if entry != nil {
				items = append(items, p.normalizeAtomEntry(source, entry))
			}
		}
		return items, nil

	default:
		return []NormalizedItem{}, nil
	}
}

func (p *RSSParser) normalizeRSSItem(source SourceConfig, item *rss.Item) NormalizedItem {
	dates := []dateCandidate{
		{value: item.PubDateParsed, source: DateSourcePublished},
		{value: parseDate(item.Custom["published"]), source: DateSourcePublished},
		{value: parseDate(extensionValue(item.Extensions, "published")), source: DateSourcePublished},
		{value: parseDate(item.Custom["updated"]), source: DateSourceUpdated},
		{value: parseDate(extensionValue(item.Extensions, "updated")), source: DateSourceUpdated},
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Date) > 0 {
		dates = append(dates, dateCandidate{value: parseDate(item.DublinCoreExt.Date[0]), source: DateSourceDate})
	}
	publishedAt, dateSource := pickDate(dates, p.now())

	excerpt, kind := pickContent([]contentCandidate{
		{value: item.Content, kind: ContentKindContent},
		{value: extensionValue(item.Extensions, "encoded"), kind: ContentKindContent},
		{value: item.Custom["content"], kind: ContentKindContent},
		{value: extensionValue(item.Extensions, "content"), kind: ContentKindContent},
		{value: item.Custom["summary"], kind: ContentKindSummary},
		{value: extensionValue(item.Extensions, "summary"), kind: ContentKindSummary},
		{value: item.Description, kind: ContentKindDescription},
	})

	normalized := newItem(source, item.Title, item.Link, publishedAt, dateSource, excerpt, kind)
	normalized.Raw = item
	return normalized
}

func (p *RSSParser) normalizeAtomEntry(source SourceConfig, entry *atom.Entry) NormalizedItem {
	publishedAt, dateSource := pickDate([]dateCandidate{
		{value: entry.PublishedParsed, source: DateSourcePublished},
		{value: entry.UpdatedParsed, source: DateSourceUpdated},
	}, p.now())

	var content string
	if entry.Content != nil {
		content = entry.Content.Value
	}
	excerpt, kind := pickContent([]contentCandidate{
		{value: content, kind: ContentKindContent},
		{value: entry.Summary, kind: ContentKindSummary},
	})

	normalized := newItem(source, entry.Title, atomLink(entry), publishedAt, dateSource, excerpt, kind)
	normalized.Raw = entry
	return normalized
}

// atomLink prefers the first link that is an alternate or has no rel.
func atomLink(entry *atom.Entry) string {
	for _, link := range entry.Links {
		if link == nil || link.Href == "" {
			continue
		}
		if link.Rel == "" || link.Rel == "alternate" {
			return link.Href
		}
	}
	return ""
}

// extensionValue looks up a namespaced child element (e.g. atom:updated) by local name.
func extensionValue(extensions ext.Extensions, name string) string {
	for _, elements := range extensions {
		for _, extension := range elements[name] {
			if extension.Value != "" {
				return extension.Value
			}
		}
	}
	return ""
}
