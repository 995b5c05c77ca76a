package digest

import (
	"time"
)

// Source definition types

type SourceType string

const (
	SourceTypeRSS  SourceType = "rss"
	SourceTypeJSON SourceType = "json"
)

type SourceConfig struct {
	ID       string         `yaml:"id" json:"id"`
	Name     string         `yaml:"name" json:"name"`
	Type     SourceType     `yaml:"type" json:"type"`
	URL      string         `yaml:"url" json:"url"`
	Language string         `yaml:"language" json:"language"`
	Topics   []string       `yaml:"topics" json:"topics"`
	Weight   float64        `yaml:"weight" json:"weight"`
	Filters  []SourceFilter `yaml:"filters" json:"filters,omitempty"`
}

type SourceFilter struct {
	Field    string   `yaml:"field" json:"field"`
	Includes []string `yaml:"includes" json:"includes,omitempty"`
	Excludes []string `yaml:"excludes" json:"excludes,omitempty"`
}

type GoogleMode string

const (
	GoogleModeTop          GoogleMode = "top"
	GoogleModeSearch       GoogleMode = "search"
	GoogleModeTopic        GoogleMode = "topic"
	GoogleModeTopicSection GoogleMode = "topic-section"
)

type SourcePreset struct {
	ID              string     `yaml:"id" json:"id"`
	Name            string     `yaml:"name" json:"name"`
	GoogleMode      GoogleMode `yaml:"google_mode" json:"googleMode"`
	GoogleQuery     string     `yaml:"google_query" json:"googleQuery,omitempty"`
	GoogleTopicID   string     `yaml:"google_topic_id" json:"googleTopicId,omitempty"`
	GoogleSectionID string     `yaml:"google_section_id" json:"googleSectionId,omitempty"`
	GoogleHl        string     `yaml:"google_hl" json:"googleHl,omitempty"`
	GoogleGl        string     `yaml:"google_gl" json:"googleGl,omitempty"`
	GoogleCeid      string     `yaml:"google_ceid" json:"googleCeid,omitempty"`
	Language        string     `yaml:"language" json:"language"`
	Topics          []string   `yaml:"topics" json:"topics"`
	Weight          float64    `yaml:"weight" json:"-"`
}

// Normalized item types

type ContentKind string

const (
	ContentKindContent     ContentKind = "content"
	ContentKindSummary     ContentKind = "summary"
	ContentKindDescription ContentKind = "description"
)

// DateSource records which upstream field produced PublishedAt.
type DateSource string

const (
	DateSourcePublished DateSource = "published"
	DateSourceUpdated   DateSource = "updated"
	DateSourceDate      DateSource = "date"
	DateSourceNow       DateSource = "now"
)

type NormalizedItem struct {
	ID             string      `json:"id"`
	SourceID       string      `json:"sourceId"`
	SourceName     string      `json:"sourceName"`
	Language       string      `json:"language"`
	Title          string      `json:"title"`
	URL            string      `json:"url"`
	PublishedAt    time.Time   `json:"publishedAt"`
	DateSource     DateSource  `json:"dateSource"`
	Excerpt        string      `json:"excerpt,omitempty"`
	ContentKind    ContentKind `json:"contentKind,omitempty"`
	ContentLength  int         `json:"contentLength"`
	Topics         []string    `json:"topics"`
	HasRichContent bool        `json:"hasRichContent"`
	Raw            any         `json:"raw,omitempty"` // upstream object, never part of identity
}

// Aggregation result types

type SourceError struct {
	SourceID string `json:"sourceId"`
	Message  string `json:"message"`
}

type Meta struct {
	RequestID        string         `json:"requestId"`
	GeneratedAt      time.Time      `json:"generatedAt"`
	WindowHours      float64        `json:"windowHours"`
	Limit            int            `json:"limit"`
	SourcesRequested int            `json:"sourcesRequested"`
	SourcesSucceeded int            `json:"sourcesSucceeded"`
	ItemsTotal       int            `json:"itemsTotal"`
	ItemsReturned    int            `json:"itemsReturned"`
	ItemsExcluded    int            `json:"itemsExcluded"`
	ItemsDuplicate   int            `json:"itemsDuplicate"`
	Errors           []SourceError  `json:"errors"`
	Presets          []SourcePreset `json:"presets"`
}

type AggregationResult struct {
	Meta  Meta             `json:"meta"`
	Items []NormalizedItem `json:"items"`
}
