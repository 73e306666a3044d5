// Package source defines the pre-normalised tracker records the indexer pulls.
package source

import (
	"strconv"
	"time"

	"github.com/kailas-cloud/tracksearch/internal/domain/document"
)

// Person is a tracker identity.
type Person struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// PullRequest is one pull request as delivered by a source.
type PullRequest struct {
	ID           int64      `yaml:"id" json:"id"`
	Repository   string     `yaml:"repository" json:"repository"`
	Title        string     `yaml:"title" json:"title"`
	Description  string     `yaml:"description" json:"description"`
	ExtraContent string     `yaml:"extra_content" json:"extra_content"` // comments, commit messages
	Status       string     `yaml:"status" json:"status"`
	IsDraft      bool       `yaml:"is_draft" json:"is_draft"`
	Author       *Person    `yaml:"author" json:"author,omitempty"`
	Reviewer     *Person    `yaml:"reviewer" json:"reviewer,omitempty"`
	CreatedAt    time.Time  `yaml:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `yaml:"updated_at" json:"updated_at"`
	ClosedAt     *time.Time `yaml:"closed_at" json:"closed_at,omitempty"`
	URL          string     `yaml:"url" json:"url"`
	WorkItems    []int64    `yaml:"work_items" json:"work_items"`
}

// WorkItem is one work item as delivered by a source.
type WorkItem struct {
	ID           int64      `yaml:"id" json:"id"`
	Title        string     `yaml:"title" json:"title"`
	Description  string     `yaml:"description" json:"description"`
	ExtraContent string     `yaml:"extra_content" json:"extra_content"`
	Type         string     `yaml:"type" json:"type"`
	State        string     `yaml:"state" json:"state"`
	Priority     *int       `yaml:"priority" json:"priority,omitempty"`
	CreatedBy    *Person    `yaml:"created_by" json:"created_by,omitempty"`
	AssignedTo   *Person    `yaml:"assigned_to" json:"assigned_to,omitempty"`
	CreatedAt    time.Time  `yaml:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `yaml:"updated_at" json:"updated_at"`
	ClosedAt     *time.Time `yaml:"closed_at" json:"closed_at,omitempty"`
	URL          string     `yaml:"url" json:"url"`
	ParentID     *int64     `yaml:"parent_id" json:"parent_id,omitempty"`
	Related      []int64    `yaml:"related" json:"related"`
}

// SourceID keys a PR by repository since PR numbers are per repository.
func (p *PullRequest) SourceID() string {
	return p.Repository + "/" + strconv.FormatInt(p.ID, 10)
}

// EmbeddingText is the text the indexer embeds for this PR.
func (p *PullRequest) EmbeddingText() string {
	return document.EmbeddingText(p.Title, p.Description, p.ExtraContent)
}

// ToDocument converts the PR into a search document for org/project.
func (p *PullRequest) ToDocument(org, project string, embedding []float32) document.SearchDocument {
	d := document.SearchDocument{
		SourceType:      document.SourcePR,
		SourceID:        p.SourceID(),
		ExternalID:      p.ID,
		Title:           p.Title,
		Description:     optional(p.Description),
		Content:         optional(p.ExtraContent),
		Organization:    org,
		Project:         project,
		RepoName:        optional(p.Repository),
		Status:          p.Status,
		IsDraft:         p.IsDraft,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		ClosedAt:        p.ClosedAt,
		URL:             p.URL,
		LinkedWorkItems: p.WorkItems,
		Embedding:       embedding,
	}
	if p.Author != nil {
		d.AuthorID, d.AuthorName = optional(p.Author.ID), optional(p.Author.Name)
	}
	if p.Reviewer != nil {
		d.AssignedToID, d.AssignedToName = optional(p.Reviewer.ID), optional(p.Reviewer.Name)
	}
	return d
}

// SourceID keys a work item by its numeric id.
func (w *WorkItem) SourceID() string {
	return strconv.FormatInt(w.ID, 10)
}

// EmbeddingText is the text the indexer embeds for this work item.
func (w *WorkItem) EmbeddingText() string {
	return document.EmbeddingText(w.Title, w.Description, w.ExtraContent)
}

// ToDocument converts the work item into a search document for org/project.
func (w *WorkItem) ToDocument(org, project string, embedding []float32) document.SearchDocument {
	d := document.SearchDocument{
		SourceType:      document.SourceWorkItem,
		SourceID:        w.SourceID(),
		ExternalID:      w.ID,
		Title:           w.Title,
		Description:     optional(w.Description),
		Content:         optional(w.ExtraContent),
		Organization:    org,
		Project:         project,
		Status:          w.State,
		Priority:        w.Priority,
		ItemType:        optional(w.Type),
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
		ClosedAt:        w.ClosedAt,
		URL:             w.URL,
		ParentID:        w.ParentID,
		LinkedWorkItems: w.Related,
		Embedding:       embedding,
	}
	if w.CreatedBy != nil {
		d.AuthorID, d.AuthorName = optional(w.CreatedBy.ID), optional(w.CreatedBy.Name)
	}
	if w.AssignedTo != nil {
		d.AssignedToID, d.AssignedToName = optional(w.AssignedTo.ID), optional(w.AssignedTo.Name)
	}
	return d
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
