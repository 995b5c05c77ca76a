package digest

import (
	"cmp"
	"errors"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

const (
	googleNewsBase = "https://news.google.com/rss"

	GoogleCustomSourceID = "google-custom"

	defaultGoogleHl = "de-DE"
	defaultGoogleGl = "DE"
)

var ErrInvalidGoogleQuery = errors.New("invalid Google News query")

// CeidPolicy controls whether a missing ceid is derived from gl and hl.
type CeidPolicy string

const (
	CeidPolicyNone   CeidPolicy = "none"
	CeidPolicyDerive CeidPolicy = "derive"
)

type GoogleNewsParams struct {
	Mode      GoogleMode
	Query     string
	TopicID   string
	SectionID string
	Hl        string
	Gl        string
	Ceid      string
}

// GoogleNewsRequest carries per-request overrides on top of an optional preset.
type GoogleNewsRequest struct {
	Preset    *SourcePreset
	Mode      GoogleMode
	Query     string
	TopicID   string
	SectionID string
	Hl        string
	Gl        string
	Ceid      string
}

// BuildGoogleNewsURL returns false when the mode's required parameters are missing.
func BuildGoogleNewsURL(params GoogleNewsParams) (string, bool) {
	var path string

	switch params.Mode {
	case GoogleModeSearch:
		if params.Query == "" {
			return "", false
		}
		path = "/search?q=" + encodeComponent(params.Query)
	case GoogleModeTopic:
		if params.TopicID == "" {
			return "", false
		}
		path = "/topics/" + encodeComponent(params.TopicID)
	case GoogleModeTopicSection:
		if params.TopicID == "" || params.SectionID == "" {
			return "", false
		}
		path = "/topics/" + encodeComponent(params.TopicID) + "/sections/" + encodeComponent(params.SectionID)
	}

	var query []string
	if params.Hl != "" {
		query = append(query, "hl="+encodeComponent(params.Hl))
	}
	if params.Gl != "" {
		query = append(query, "gl="+encodeComponent(params.Gl))
	}
	if params.Ceid != "" {
		query = append(query, "ceid="+encodeComponent(params.Ceid))
	}

	if len(query) == 0 {
		return googleNewsBase + path, true
	}

	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return googleNewsBase + path + separator + strings.Join(query, "&"), true
}

// ResolveGoogleParams merges request overrides over the preset and applies defaults.
func ResolveGoogleParams(req GoogleNewsRequest, policy CeidPolicy) GoogleNewsParams {
	var preset SourcePreset
	if req.Preset != nil {
		preset = *req.Preset
	}

	params := GoogleNewsParams{
		Mode:      cmp.Or(req.Mode, preset.GoogleMode, GoogleModeSearch),
		Query:     cmp.Or(req.Query, preset.GoogleQuery),
		TopicID:   cmp.Or(req.TopicID, preset.GoogleTopicID),
		SectionID: cmp.Or(req.SectionID, preset.GoogleSectionID),
		Hl:        cmp.Or(req.Hl, preset.GoogleHl, defaultGoogleHl),
		Gl:        cmp.Or(req.Gl, preset.GoogleGl, defaultGoogleGl),
		Ceid:      cmp.Or(req.Ceid, preset.GoogleCeid),
	}

	if params.Ceid == "" && policy == CeidPolicyDerive {
		params.Ceid = DeriveCeid(params.Gl, params.Hl)
	}

	return params
}

// DeriveCeid builds "<gl>:<primary language of hl>", e.g. "DE:de".
func DeriveCeid(gl, hl string) string {
	if gl == "" || hl == "" {
		return ""
	}
	primary := primaryLanguage(hl)
	if primary == "" {
		return ""
	}
	return gl + ":" + primary
}

// GoogleSource materializes the runtime source for a resolved Google News URL.
func GoogleSource(preset *SourcePreset, params GoogleNewsParams, feedURL string) SourceConfig {
	source := SourceConfig{
		ID:       GoogleCustomSourceID,
		Name:     "Google News",
		Type:     SourceTypeRSS,
		URL:      feedURL,
		Language: "en",
		Topics:   []string{"tech", "news"},
		Weight:   0.8,
	}
	if primaryLanguage(params.Hl) == "de" {
		source.Language = "de"
	}

	if preset != nil {
		source.ID = cmp.Or(preset.ID, source.ID)
		source.Name = cmp.Or(preset.Name, source.Name)
		source.Language = cmp.Or(preset.Language, source.Language)
		if len(preset.Topics) > 0 {
			source.Topics = preset.Topics
		}
		if preset.Weight > 0 {
			source.Weight = preset.Weight
		}
	}

	return source
}

func primaryLanguage(hl string) string {
	tag, err := language.Parse(hl)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}

// encodeComponent matches JavaScript's encodeURIComponent for the characters Google uses.
func encodeComponent(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}
