package digest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var utf8BOM = []byte("\xef\xbb\xbf")

type JSONParser struct {
	now func() time.Time
}

func NewJSONParser() *JSONParser {
	return &JSONParser{now: time.Now}
}

// Run normalizes a JSON feed. The body is decoded regardless of the
// Content-Type the server sent.
func (p *JSONParser) Run(source SourceConfig, data []byte) ([]NormalizedItem, error) {
	decoder := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	decoder.UseNumber()

	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse JSON feed: %w", err)
	}

	var rawItems []any
	switch value := payload.(type) {
	case []any:
		rawItems = value
	case map[string]any:
		rawItems = asArray(firstPresent(value, "items", "entries", "data"))
	}

	items := make([]NormalizedItem, 0, len(rawItems))
	for _, raw := range rawItems {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, p.normalizeEntry(source, entry))
	}

	return items, nil
}

func (p *JSONParser) normalizeEntry(source SourceConfig, entry map[string]any) NormalizedItem {
	title := stringValue(firstPresent(entry, "title", "headline"))
	url := stringValue(firstPresent(entry, "url", "external_url", "link"))

	publishedAt, dateSource := pickDate([]dateCandidate{
		{value: parseDate(stringValue(entry["date_published"])), source: DateSourcePublished},
		{value: parseDate(stringValue(entry["published"])), source: DateSourcePublished},
		{value: parseDate(stringValue(entry["updated"])), source: DateSourceUpdated},
		{value: parseDate(stringValue(entry["pubDate"])), source: DateSourcePublished},
		{value: parseDate(stringValue(entry["date"])), source: DateSourceDate},
	}, p.now())

	excerpt, kind := pickContent([]contentCandidate{
		{value: stringValue(entry["content_text"]), kind: ContentKindContent},
		{value: stringValue(entry["content_html"]), kind: ContentKindContent},
		{value: stringValue(entry["summary"]), kind: ContentKindSummary},
		{value: stringValue(entry["description"]), kind: ContentKindDescription},
	})

	item := newItem(source, title, url, publishedAt, dateSource, excerpt, kind)
	if upstreamID := stringValue(entry["id"]); upstreamID != "" {
		item.ID = upstreamID
	}
	item.Raw = entry
	return item
}

// firstPresent returns the first key whose value is not null.
func firstPresent(object map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := object[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

func asArray(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}

func stringValue(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return ""
	}
}
