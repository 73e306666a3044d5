package query

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/tracksearch/internal/domain/document"
)

var (
	prPattern       = regexp.MustCompile(`(?i)\b(?:pull\s+requests?|prs?)\b`)
	workItemPattern = regexp.MustCompile(`(?i)\b(?:work\s*items?|tickets?)\b`)

	priorityLongPattern  = regexp.MustCompile(`(?i)\bpriority\s*([1-9])\b`)
	priorityShortPattern = regexp.MustCompile(`(?i)\bp([1-4])\b`)

	bugPattern   = regexp.MustCompile(`(?i)\bbugs?\b`)
	taskPattern  = regexp.MustCompile(`(?i)\btasks?\b`)
	storyPattern = regexp.MustCompile(`(?i)\b(?:user\s+)?stor(?:y|ies)\b`)

	statusPattern = regexp.MustCompile(`(?i)\b(active|completed|closed|resolved|abandoned|new|open)\b`)

	datePattern = regexp.MustCompile(
		`(?i)\b(?:last|past)\s+(?:(\d+)\s+(days?|weeks?|months?)|(week|month|year))\b`)

	draftPattern = regexp.MustCompile(`(?i)\bdrafts?\b`)
)

// Synonym maps a spoken project alias to its canonical name.
type Synonym struct {
	Pattern *regexp.Regexp
	Project string
}

// ProjectSynonyms is the fixed alias table, checked in order.
var ProjectSynonyms = []Synonym{
	{Pattern: regexp.MustCompile(`(?i)\blerums?(?:\s+djursjukhus)?\b`), Project: "Lerums Djursjukhus"},
}

var statusAliases = map[string]string{
	"closed":   "completed",
	"resolved": "completed",
	"open":     "active",
}

var itemTypes = []struct {
	pattern *regexp.Regexp
	name    string
}{
	{bugPattern, "Bug"},
	{taskPattern, "Task"},
	{storyPattern, "User Story"},
}

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day

	maxRelativeDays = 100 * 365
)

func strip(re *regexp.Regexp, text string) string {
	return re.ReplaceAllString(text, " ")
}

// extractSourceType checks PR keywords before work-item keywords; the first hit wins.
func extractSourceType(s State) State {
	for _, c := range []struct {
		re *regexp.Regexp
		t  document.SourceType
	}{
		{prPattern, document.SourcePR},
		{workItemPattern, document.SourceWorkItem},
	} {
		if c.re.MatchString(s.Text) {
			t := c.t
			s.Filters.SourceType = &t
			s.Text = strip(c.re, s.Text)
			return s
		}
	}
	return s
}

// extractPriority accepts "priority N" for N in 1..4 and the short form "pN".
func extractPriority(s State) State {
	var found []int
	for _, m := range priorityLongPattern.FindAllStringSubmatch(s.Text, -1) {
		if n, _ := strconv.Atoi(m[1]); n >= 1 && n <= 4 {
			found = append(found, n)
		}
	}
	s.Text = strip(priorityLongPattern, s.Text)

	for _, m := range priorityShortPattern.FindAllStringSubmatch(s.Text, -1) {
		n, _ := strconv.Atoi(m[1])
		found = append(found, n)
	}
	s.Text = strip(priorityShortPattern, s.Text)

	if len(found) == 0 {
		return s
	}
	slices.Sort(found)
	s.Filters.Priority = slices.Compact(found)
	return s
}

// extractItemType defaults the source type to work item unless a keyword already set it.
func extractItemType(s State) State {
	var found []string
	for _, it := range itemTypes {
		if it.pattern.MatchString(s.Text) {
			found = append(found, it.name)
			s.Text = strip(it.pattern, s.Text)
		}
	}
	if len(found) == 0 {
		return s
	}
	s.Filters.ItemType = found
	if s.Filters.SourceType == nil {
		wi := document.SourceWorkItem
		s.Filters.SourceType = &wi
	}
	return s
}

func extractStatus(s State) State {
	var found []string
	for _, m := range statusPattern.FindAllStringSubmatch(s.Text, -1) {
		status := strings.ToLower(m[1])
		if alias, ok := statusAliases[status]; ok {
			status = alias
		}
		if !slices.Contains(found, status) {
			found = append(found, status)
		}
	}
	if len(found) == 0 {
		return s
	}
	s.Filters.Status = found
	s.Text = strip(statusPattern, s.Text)
	return s
}

// extractDateRange uses the first relative expression; all of them are stripped.
func extractDateRange(s State, now time.Time) State {
	m := datePattern.FindStringSubmatch(s.Text)
	if m == nil {
		return s
	}
	s.Text = strip(datePattern, s.Text)

	d, ok := relativeDuration(m[1], m[2], m[3])
	if !ok {
		return s
	}
	after := now.Add(-d)
	s.Filters.UpdatedAfter = &after
	return s
}

func relativeDuration(count, unit, single string) (time.Duration, bool) {
	switch strings.ToLower(single) {
	case "week":
		return week, true
	case "month":
		return month, true
	case "year":
		return year, true
	}

	n, err := strconv.Atoi(count)
	if err != nil || n <= 0 {
		return 0, false
	}
	n = min(n, maxRelativeDays)
	var days int
	switch u := strings.ToLower(unit); {
	case strings.HasPrefix(u, "day"):
		days = n
	case strings.HasPrefix(u, "week"):
		days = n * 7
	case strings.HasPrefix(u, "month"):
		days = n * 30
	default:
		return 0, false
	}
	days = min(days, maxRelativeDays)
	return time.Duration(days) * day, true
}

// extractDraft always forces the PR source type.
func extractDraft(s State) State {
	if !draftPattern.MatchString(s.Text) {
		return s
	}
	draft := true
	pr := document.SourcePR
	s.Filters.IsDraft = &draft
	s.Filters.SourceType = &pr
	s.Text = strip(draftPattern, s.Text)
	return s
}

func extractProject(s State) State {
	for _, syn := range ProjectSynonyms {
		if syn.Pattern.MatchString(s.Text) {
			project := syn.Project
			s.Filters.Project = &project
			s.Text = strip(syn.Pattern, s.Text)
			return s
		}
	}
	return s
}
