package document

import "github.com/kailas-cloud/tracksearch/internal/db"

// buildIndex describes the FT index over document JSON keys.
// Every filterable attribute is aliased to its bare name so filters stay backend-neutral.
func buildIndex(name, prefix string, vectorDim int) (*db.IndexDefinition, error) {
	b := db.NewIndex(name).OnJSON().Prefix(prefix)

	for _, f := range []string{
		db.FieldSourceType, db.FieldOrganization, db.FieldProject,
		db.FieldStatus, db.FieldItemType, db.FieldIsDraft,
	} {
		b.Tag(db.JSONPath(f)).As(f)
	}
	b.Tag(db.JSONPath(db.FieldDocKey)).As(db.FieldDocKey).Sortable()

	b.Numeric(db.JSONPath(db.FieldPriority)).As(db.FieldPriority)
	b.Numeric(db.JSONPath(db.FieldUpdatedAt)).As(db.FieldUpdatedAt)
	b.Numeric(db.JSONPath(db.FieldIndexedAt)).As(db.FieldIndexedAt)

	for _, f := range db.TextFields {
		b.Text(db.JSONPath(f)).As(f)
	}

	if vectorDim > 0 {
		b.VectorFlat(db.JSONPath(db.FieldEmbedding), vectorDim, db.DistanceCosine).As(db.FieldEmbedding)
	}

	return b.Build() //nolint:wrapcheck // validation message is self-describing
}
