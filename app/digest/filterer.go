package digest

import (
	"fmt"
	"strings"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run splits items into kept and excluded according to each item's source filters.
// Items from sources without filters are always kept.
func (f *Filterer) Run(items []NormalizedItem, filtersBySource map[string][]SourceFilter) ([]NormalizedItem, int) {
	if len(filtersBySource) == 0 {
		return items, 0
	}

	kept := make([]NormalizedItem, 0, len(items))
	excluded := 0
	for _, item := range items {
		if isExcluded, _ := f.ShouldExclude(item, filtersBySource[item.SourceID]); isExcluded {
			excluded++
			continue
		}
		kept = append(kept, item)
	}

	return kept, excluded
}

func (f *Filterer) ShouldExclude(item NormalizedItem, filters []SourceFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(item, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(item NormalizedItem, field string) string {
	switch field {
	case "title":
		return item.Title
	case "excerpt":
		return item.Excerpt
	case "url":
		return item.URL
	case "topics":
		return strings.Join(item.Topics, " ")
	default:
		return ""
	}
}
