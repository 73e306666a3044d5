package filter

import (
	"strings"
	"time"

	"github.com/kailas-cloud/tracksearch/internal/domain/document"
)

// Filters are the structured constraints extracted from a query.
// A nil or empty field is unconstrained. List fields match any of their values;
// fields are combined with AND.
type Filters struct {
	SourceType   *document.SourceType `json:"source_type,omitempty"`
	Priority     []int                `json:"priority,omitempty"`
	ItemType     []string             `json:"item_type,omitempty"`
	Status       []string             `json:"status,omitempty"`
	Project      *string              `json:"project,omitempty"`
	Organization *string              `json:"organization,omitempty"`
	IsDraft      *bool                `json:"is_draft,omitempty"`
	UpdatedAfter *time.Time           `json:"updated_after,omitempty"`
}

// IsEmpty reports whether no field is constrained.
func (f *Filters) IsEmpty() bool {
	return f.SourceType == nil &&
		len(f.Priority) == 0 &&
		len(f.ItemType) == 0 &&
		len(f.Status) == 0 &&
		f.Project == nil &&
		f.Organization == nil &&
		f.IsDraft == nil &&
		f.UpdatedAfter == nil
}

// Matches is the filter predicate shared by every store backend.
// String comparisons ignore case, the same way RediSearch TAG fields do.
func (f *Filters) Matches(d *document.SearchDocument) bool {
	if f.SourceType != nil && d.SourceType != *f.SourceType {
		return false
	}
	if f.Organization != nil && !strings.EqualFold(d.Organization, *f.Organization) {
		return false
	}
	if f.Project != nil && !strings.EqualFold(d.Project, *f.Project) {
		return false
	}
	if len(f.Status) > 0 && !containsFold(f.Status, d.Status) {
		return false
	}
	if len(f.Priority) > 0 && (d.Priority == nil || !containsInt(f.Priority, *d.Priority)) {
		return false
	}
	if len(f.ItemType) > 0 && (d.ItemType == nil || !containsFold(f.ItemType, *d.ItemType)) {
		return false
	}
	if f.IsDraft != nil && d.IsDraft != *f.IsDraft {
		return false
	}
	if f.UpdatedAfter != nil && d.UpdatedAt.Before(*f.UpdatedAfter) {
		return false
	}
	return true
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
