package retrieval

import (
	"fmt"
	"sort"

	"dormguide/internal/domain"
	"dormguide/internal/embedding/tfidf"
	"dormguide/internal/index"
)

// DefaultTopK is used when a caller passes a non-positive k.
const DefaultTopK = 3

// Source provides the current index blob.
type Source interface {
	Snapshot() (*index.Blob, error)
}

// Retriever ranks indexed documents against a query by cosine similarity.
type Retriever struct {
	source Source
}

// NewRetriever creates a Retriever reading from source.
func NewRetriever(source Source) *Retriever {
	return &Retriever{source: source}
}

// Retrieve returns at most k hits ordered by descending score, ties in document order.
// It fails with domain.ErrIndexNotFound when no index has been built.
func (r *Retriever) Retrieve(query string, k int) ([]domain.Hit, error) {
	blob, err := r.source.Snapshot()
	if err != nil {
		return nil, err
	}
	return Search(blob, query, k)
}

// Search ranks the documents of blob against query.
func Search(blob *index.Blob, query string, k int) ([]domain.Hit, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if blob.Len() == 0 {
		return []domain.Hit{}, nil
	}
	qv, err := tfidf.FromState(blob.Model).Transform(query)
	if err != nil {
		return nil, fmt.Errorf("project query: %w", err)
	}
	// rows and the query are L2-normalized, so the inner product is the cosine
	scores := make([]float64, len(blob.Matrix))
	for i, row := range blob.Matrix {
		scores[i] = row.Dot(qv)
	}
	idxs := argsortDesc(scores)
	if k > len(idxs) {
		k = len(idxs)
	}
	hits := make([]domain.Hit, 0, k)
	for _, j := range idxs[:k] {
		hits = append(hits, domain.Hit{
			Score: scores[j],
			Text:  blob.Documents[j],
			Meta:  blob.Metadata[j],
		})
	}
	return hits, nil
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return vals[idxs[a]] > vals[idxs[b]] })
	return idxs
}
