package digest

import (
	"testing"
	"time"
)

func TestCreateID_Idempotent(t *testing.T) {
	publishedAt := time.Date(2024, 1, 2, 3, 4, 5, 678000000, time.UTC)

	first := CreateID("src", "https://example.com/a", "Title", publishedAt)
	second := CreateID("src", "https://example.com/a", "Title", publishedAt)

	if first != second {
		t.Errorf("Expected identical ids, got %s and %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("Expected 64 character hex id, got %d characters", len(first))
	}

	if other := CreateID("other", "https://example.com/a", "Title", publishedAt); other == first {
		t.Error("Expected different source ids to produce different ids")
	}
	if local := CreateID("src", "https://example.com/a", "Title", publishedAt.In(time.FixedZone("CET", 3600))); local != first {
		t.Error("Expected id to be independent of the time zone")
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"   ", ""},
		{"plain text", "plain text"},
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"<div>\n  line one\n\n  line two </div>", "line one line two"},
		{"<img src=\"x.png\">", ""},
	}

	for _, test := range tests {
		if got := stripHTML(test.input); got != test.expected {
			t.Errorf("stripHTML(%q): expected %q, got %q", test.input, test.expected, got)
		}
	}
}

func TestPickContent_FirstNonEmptyWins(t *testing.T) {
	text, kind := pickContent([]contentCandidate{
		{value: "<p> </p>", kind: ContentKindContent},
		{value: "Summary text", kind: ContentKindSummary},
		{value: "Description", kind: ContentKindDescription},
	})

	if text != "Summary text" || kind != ContentKindSummary {
		t.Errorf("Expected summary to win, got %q (%s)", text, kind)
	}

	if text, kind := pickContent(nil); text != "" || kind != "" {
		t.Errorf("Expected empty result, got %q (%s)", text, kind)
	}
}

func TestPickDate_RecordsProvenance(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2023, 12, 31, 10, 0, 0, 0, time.FixedZone("CET", 3600))

	value, source := pickDate([]dateCandidate{
		{value: nil, source: DateSourcePublished},
		{value: &time.Time{}, source: DateSourcePublished},
		{value: &updated, source: DateSourceUpdated},
	}, now)

	if source != DateSourceUpdated {
		t.Errorf("Expected date source 'updated', got: %s", source)
	}
	if value.Location() != time.UTC || !value.Equal(updated) {
		t.Errorf("Expected %v in UTC, got %v", updated, value)
	}

	value, source = pickDate(nil, now)
	if source != DateSourceNow || !value.Equal(now) {
		t.Errorf("Expected fallback to now, got %v (%s)", value, source)
	}
}

func TestParseDate(t *testing.T) {
	for _, input := range []string{
		"Mon, 03 Jul 2023 10:00:00 GMT",
		"2023-07-03T10:00:00Z",
		"2023-07-03T12:00:00+02:00",
	} {
		parsed := parseDate(input)
		if parsed == nil {
			t.Errorf("Expected %q to parse", input)
			continue
		}
		if !parsed.Equal(time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)) {
			t.Errorf("Expected %q to equal 2023-07-03T10:00:00Z, got %v", input, parsed)
		}
	}

	if parseDate("") != nil || parseDate("yesterday-ish") != nil {
		t.Error("Expected unparsable dates to return nil")
	}
}
