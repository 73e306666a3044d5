package document

import (
	"strconv"
	"time"

	domdoc "github.com/kailas-cloud/tracksearch/internal/domain/document"
)

// jsonDoc is the RedisJSON layout. Timestamps are unix milliseconds so that
// NUMERIC range filters work; is_draft is a TAG and therefore a string.
type jsonDoc struct {
	DocKey          string    `json:"doc_key"`
	SourceType      string    `json:"source_type"`
	SourceID        string    `json:"source_id"`
	ExternalID      int64     `json:"external_id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description,omitempty"`
	Content         *string   `json:"content,omitempty"`
	Organization    string    `json:"organization"`
	Project         string    `json:"project"`
	RepoName        *string   `json:"repo_name,omitempty"`
	Status          string    `json:"status"`
	AuthorID        *string   `json:"author_id,omitempty"`
	AuthorName      *string   `json:"author_name,omitempty"`
	AssignedToID    *string   `json:"assigned_to_id,omitempty"`
	AssignedToName  *string   `json:"assigned_to_name,omitempty"`
	Priority        *int      `json:"priority,omitempty"`
	ItemType        *string   `json:"item_type,omitempty"`
	IsDraft         string    `json:"is_draft"`
	CreatedAt       int64     `json:"created_at"`
	UpdatedAt       int64     `json:"updated_at"`
	ClosedAt        *int64    `json:"closed_at,omitempty"`
	URL             string    `json:"url"`
	ParentID        *int64    `json:"parent_id,omitempty"`
	LinkedWorkItems []int64   `json:"linked_work_items"`
	Embedding       []float32 `json:"embedding,omitempty"`
	IndexedAt       int64     `json:"indexed_at"`
}

func toJSONDoc(d *domdoc.SearchDocument, indexedAt time.Time) jsonDoc {
	linked := d.LinkedWorkItems
	if linked == nil {
		linked = []int64{}
	}
	var closed *int64
	if d.ClosedAt != nil {
		ms := d.ClosedAt.UnixMilli()
		closed = &ms
	}
	return jsonDoc{
		DocKey:          d.Key(),
		SourceType:      string(d.SourceType),
		SourceID:        d.SourceID,
		ExternalID:      d.ExternalID,
		Title:           d.Title,
		Description:     d.Description,
		Content:         d.Content,
		Organization:    d.Organization,
		Project:         d.Project,
		RepoName:        d.RepoName,
		Status:          d.Status,
		AuthorID:        d.AuthorID,
		AuthorName:      d.AuthorName,
		AssignedToID:    d.AssignedToID,
		AssignedToName:  d.AssignedToName,
		Priority:        d.Priority,
		ItemType:        d.ItemType,
		IsDraft:         strconv.FormatBool(d.IsDraft),
		CreatedAt:       d.CreatedAt.UnixMilli(),
		UpdatedAt:       d.UpdatedAt.UnixMilli(),
		ClosedAt:        closed,
		URL:             d.URL,
		ParentID:        d.ParentID,
		LinkedWorkItems: linked,
		Embedding:       d.Embedding,
		IndexedAt:       indexedAt.UnixMilli(),
	}
}

func (j *jsonDoc) toDomain() domdoc.SearchDocument {
	var closed *time.Time
	if j.ClosedAt != nil {
		t := time.UnixMilli(*j.ClosedAt).UTC()
		closed = &t
	}
	draft, _ := strconv.ParseBool(j.IsDraft)
	return domdoc.SearchDocument{
		SourceType:      domdoc.SourceType(j.SourceType),
		SourceID:        j.SourceID,
		ExternalID:      j.ExternalID,
		Title:           j.Title,
		Description:     j.Description,
		Content:         j.Content,
		Organization:    j.Organization,
		Project:         j.Project,
		RepoName:        j.RepoName,
		Status:          j.Status,
		AuthorID:        j.AuthorID,
		AuthorName:      j.AuthorName,
		AssignedToID:    j.AssignedToID,
		AssignedToName:  j.AssignedToName,
		Priority:        j.Priority,
		ItemType:        j.ItemType,
		IsDraft:         draft,
		CreatedAt:       time.UnixMilli(j.CreatedAt).UTC(),
		UpdatedAt:       time.UnixMilli(j.UpdatedAt).UTC(),
		ClosedAt:        closed,
		URL:             j.URL,
		ParentID:        j.ParentID,
		LinkedWorkItems: j.LinkedWorkItems,
		Embedding:       j.Embedding,
		IndexedAt:       time.UnixMilli(j.IndexedAt).UTC(),
	}
}
