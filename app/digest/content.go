package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// Same layout as JavaScript's Date.toISOString, which the item id is derived from.
const isoLayout = "2006-01-02T15:04:05.000Z"

type contentCandidate struct {
	value string
	kind  ContentKind
}

type dateCandidate struct {
	value  *time.Time
	source DateSource
}

// pickContent returns the first candidate whose stripped text is non-empty.
func pickContent(candidates []contentCandidate) (string, ContentKind) {
	for _, candidate := range candidates {
		if text := stripHTML(candidate.value); text != "" {
			return text, candidate.kind
		}
	}
	return "", ""
}

// pickDate returns the first usable candidate, or now when none parsed.
func pickDate(candidates []dateCandidate, now time.Time) (time.Time, DateSource) {
	for _, candidate := range candidates {
		if candidate.value != nil && !candidate.value.IsZero() {
			return normalizeTime(*candidate.value), candidate.source
		}
	}
	return normalizeTime(now), DateSourceNow
}

func stripHTML(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	text := input
	if strings.Contains(input, "<") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
		if err == nil {
			text = doc.Text()
		}
	}

	return strings.Join(strings.Fields(text), " ")
}

func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	parsed, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return nil
	}
	return &parsed
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func formatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// CreateID derives a stable item id from the fields that identify an entry.
func CreateID(sourceID, url, title string, publishedAt time.Time) string {
	key := fmt.Sprintf("%s:%s:%s:%s", sourceID, url, title, formatISO(publishedAt))
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

func newItem(source SourceConfig, title, url string, publishedAt time.Time, dateSource DateSource, excerpt string, kind ContentKind) NormalizedItem {
	topics := source.Topics
	if topics == nil {
		topics = []string{}
	}

	return NormalizedItem{
		ID:            CreateID(source.ID, url, title, publishedAt),
		SourceID:      source.ID,
		SourceName:    source.Name,
		Language:      source.Language,
		Title:         title,
		URL:           url,
		PublishedAt:   publishedAt,
		DateSource:    dateSource,
		Excerpt:       excerpt,
		ContentKind:   kind,
		ContentLength: len([]rune(excerpt)),
		Topics:        topics,
	}
}
