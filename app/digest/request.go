package digest

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultWindowHours = 24
	MaxWindowHours     = 72
	DefaultLimit       = 120
	MaxLimit           = 200
)

// Request describes one aggregation run.
type Request struct {
	WindowHours float64
	Limit       int
	SourceIDs   []string
	Google      bool
	GoogleOnly  bool
	PresetID    string
	GoogleNews  GoogleNewsRequest
	Extract     bool
	IncludeRaw  bool
}

// GoogleEnabled reports whether the request asks for the Google News overlay.
func (r Request) GoogleEnabled() bool {
	g := r.GoogleNews
	return r.Google || r.GoogleOnly || r.PresetID != "" ||
		g.Mode != "" || g.Query != "" || g.TopicID != "" || g.SectionID != "" ||
		g.Hl != "" || g.Gl != "" || g.Ceid != ""
}

func ParseRequest(query url.Values) Request {
	return Request{
		WindowHours: ParseWindowHours(query.Get("windowHours")),
		Limit:       ParseLimit(query.Get("limit")),
		SourceIDs:   parseList(query.Get("sources")),
		Google:      parseBool(query.Get("google")),
		GoogleOnly:  parseBool(query.Get("googleOnly")),
		PresetID:    strings.TrimSpace(query.Get("presetId")),
		GoogleNews: GoogleNewsRequest{
			Mode:      GoogleMode(strings.TrimSpace(query.Get("googleMode"))),
			Query:     strings.TrimSpace(query.Get("googleQuery")),
			TopicID:   strings.TrimSpace(query.Get("googleTopicId")),
			SectionID: strings.TrimSpace(query.Get("googleSectionId")),
			Hl:        strings.TrimSpace(query.Get("googleHl")),
			Gl:        strings.TrimSpace(query.Get("googleGl")),
			Ceid:      strings.TrimSpace(query.Get("googleCeid")),
		},
		Extract:    parseBool(query.Get("extract")),
		IncludeRaw: parseBool(query.Get("raw")),
	}
}

// ParseWindowHours falls back to the default for missing, non-numeric or
// non-positive values and caps the result at MaxWindowHours.
func ParseWindowHours(value string) float64 {
	num, ok := parsePositive(value)
	if !ok {
		return DefaultWindowHours
	}
	return math.Min(num, MaxWindowHours)
}

// ParseLimit falls back to the default for missing, non-numeric or
// non-positive values and caps the result at MaxLimit.
func ParseLimit(value string) int {
	num, ok := parsePositive(value)
	if !ok || num < 1 {
		return DefaultLimit
	}
	return int(math.Min(num, MaxLimit))
}

func parsePositive(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	num, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(num) || math.IsInf(num, 0) || num <= 0 {
		return 0, false
	}
	return num, true
}

func parseBool(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

func parseList(value string) []string {
	var list []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list
}
