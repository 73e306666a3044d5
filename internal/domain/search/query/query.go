// Package query turns free-text search input into residual search text plus
// structured filters. Extraction is a fixed pipeline of pure stages; each stage
// records its filter and strips the text it consumed so later stages see less.
package query

import (
	"strings"
	"time"

	"github.com/kailas-cloud/tracksearch/internal/domain/search/filter"
)

// ParsedQuery is the parser output.
type ParsedQuery struct {
	SearchText string         `json:"search_text"`
	Filters    filter.Filters `json:"filters"`
}

// State is what flows between stages.
type State struct {
	Text    string
	Filters filter.Filters
}

// Stage is one extraction pass.
type Stage struct {
	Name  string
	Apply func(State) State
}

// stopwords are dropped from the residual text.
var stopwords = map[string]struct{}{
	"in": {}, "the": {}, "for": {}, "with": {}, "from": {}, "about": {},
}

// Parse extracts filters from text relative to the current time. It never fails.
func Parse(text string) ParsedQuery {
	return ParseAt(text, time.Now())
}

// ParseAt is Parse with an explicit clock for relative date expressions.
func ParseAt(text string, now time.Time) ParsedQuery {
	st := State{Text: text}
	for _, stage := range Stages(now) {
		st = stage.Apply(st)
	}
	return ParsedQuery{SearchText: Finalize(st.Text), Filters: st.Filters}
}

// Stages returns the extraction pipeline in execution order.
// Draft runs after source type and item type so it can overwrite their inference.
func Stages(now time.Time) []Stage {
	return []Stage{
		{Name: "source_type", Apply: extractSourceType},
		{Name: "priority", Apply: extractPriority},
		{Name: "item_type", Apply: extractItemType},
		{Name: "status", Apply: extractStatus},
		{Name: "date_range", Apply: func(s State) State { return extractDateRange(s, now) }},
		{Name: "draft", Apply: extractDraft},
		{Name: "project", Apply: extractProject},
	}
}

// Finalize splits the residual text on whitespace, drops stopwords and joins with single spaces.
func Finalize(text string) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, f := range fields {
		if _, stop := stopwords[strings.ToLower(f)]; stop {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}
