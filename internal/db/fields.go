package db

// Attribute names of the document index. Filters translate to these.
const (
	FieldSourceType   = "source_type"
	FieldOrganization = "organization"
	FieldProject      = "project"
	FieldStatus       = "status"
	FieldPriority     = "priority"
	FieldItemType     = "item_type"
	FieldIsDraft      = "is_draft"
	FieldUpdatedAt    = "updated_at"
	FieldIndexedAt    = "indexed_at"
	FieldDocKey       = "doc_key"
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldContent      = "content"
	FieldEmbedding    = "embedding"
)

// TextFields are the attributes scored by BM25.
var TextFields = []string{FieldTitle, FieldDescription, FieldContent}
