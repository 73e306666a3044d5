package result

import "github.com/kailas-cloud/tracksearch/internal/domain/document"

// Result is a ranked search hit: the document without its embedding plus a score.
type Result struct {
	document.SearchDocument
	Score float64 `json:"score"`
}

// New projects a document into a result, dropping the embedding.
func New(doc document.SearchDocument, score float64) Result {
	return Result{SearchDocument: doc.WithoutEmbedding(), Score: score}
}
