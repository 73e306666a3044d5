package document

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// SourceType identifies the tracker entity a document was built from.
type SourceType string

const (
	// SourcePR is a pull request.
	SourcePR SourceType = "pr"
	// SourceWorkItem is a work item (bug, task, user story).
	SourceWorkItem SourceType = "work_item"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	return t == SourcePR || t == SourceWorkItem
}

// ParseSourceType accepts the canonical names plus common aliases.
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pr", "prs", "pull_request", "pullrequest":
		return SourcePR, nil
	case "work_item", "workitem", "wi":
		return SourceWorkItem, nil
	default:
		return "", fmt.Errorf("unknown source type %q", s)
	}
}

// MaxTextSize caps the embedding input built from a document.
const MaxTextSize = 32 * 1024

// SearchDocument is one indexed PR or work item.
// (SourceType, SourceID) is the unique key; every write is an upsert on it.
type SearchDocument struct {
	SourceType      SourceType `json:"source_type"`
	SourceID        string     `json:"source_id"`
	ExternalID      int64      `json:"external_id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description,omitempty"`
	Content         *string    `json:"content,omitempty"`
	Organization    string     `json:"organization"`
	Project         string     `json:"project"`
	RepoName        *string    `json:"repo_name,omitempty"`
	Status          string     `json:"status"`
	AuthorID        *string    `json:"author_id,omitempty"`
	AuthorName      *string    `json:"author_name,omitempty"`
	AssignedToID    *string    `json:"assigned_to_id,omitempty"`
	AssignedToName  *string    `json:"assigned_to_name,omitempty"`
	Priority        *int       `json:"priority,omitempty"`
	ItemType        *string    `json:"item_type,omitempty"`
	IsDraft         bool       `json:"is_draft"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	URL             string     `json:"url"`
	ParentID        *int64     `json:"parent_id,omitempty"`
	LinkedWorkItems []int64    `json:"linked_work_items"`
	Embedding       []float32  `json:"-"`
	IndexedAt       time.Time  `json:"indexed_at"`
}

// Key renders the unique document key, "<source_type>:<source_id>".
// It doubles as the document id for deterministic tie-breaking.
func (d *SearchDocument) Key() string {
	return Key(d.SourceType, d.SourceID)
}

// Key builds a document key from its parts.
func Key(t SourceType, sourceID string) string {
	return string(t) + ":" + sourceID
}

// ParseKey splits a document key into its parts.
func ParseKey(key string) (SourceType, string, error) {
	t, id, ok := strings.Cut(key, ":")
	if !ok || id == "" {
		return "", "", fmt.Errorf("malformed document key %q", key)
	}
	st := SourceType(t)
	if !st.Valid() {
		return "", "", fmt.Errorf("malformed document key %q: unknown source type", key)
	}
	return st, id, nil
}

// Validate checks the fields the store relies on.
func (d *SearchDocument) Validate() error {
	if !d.SourceType.Valid() {
		return fmt.Errorf("unknown source type %q", d.SourceType)
	}
	if d.SourceID == "" {
		return fmt.Errorf("source id is required")
	}
	if d.Title == "" {
		return fmt.Errorf("title is required")
	}
	if d.Organization == "" || d.Project == "" {
		return fmt.Errorf("organization and project are required")
	}
	return nil
}

// EmbeddingText joins title, description and content with blank lines, skipping empty parts.
func (d *SearchDocument) EmbeddingText() string {
	return EmbeddingText(d.Title, deref(d.Description), deref(d.Content))
}

// EmbeddingText builds the embedding input from the textual parts of a record.
func EmbeddingText(title, description, content string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{title, description, content} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	text := strings.Join(parts, "\n\n")
	if len(text) > MaxTextSize {
		cut := MaxTextSize
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

// WithoutEmbedding returns a shallow copy with the vector dropped.
func (d SearchDocument) WithoutEmbedding() SearchDocument {
	d.Embedding = nil
	return d
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
