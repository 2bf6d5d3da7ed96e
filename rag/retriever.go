package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"legaldraft-backend/embedding"
	"legaldraft-backend/models"
)

// overfetchFactor compensates for candidates discarded by metadata
// post-filtering: the index has no native filter, so the retriever asks it
// for more results than requested and filters afterward.
const overfetchFactor = 4

// Retriever turns a retrieval query into a ranked, filtered set of clauses.
type Retriever struct {
	provider embedding.Provider
	index    *VectorIndex
}

// NewRetriever creates a retriever over the given provider and index.
func NewRetriever(provider embedding.Provider, index *VectorIndex) *Retriever {
	return &Retriever{provider: provider, index: index}
}

// buildQueryText folds the metadata filters into the embedded query text so
// that document type and jurisdiction influence similarity the same way
// they do on the clause side.
func buildQueryText(q models.RetrievalQuery) string {
	var b strings.Builder
	b.WriteString("Legal document drafting query: ")
	b.WriteString(q.Text)
	if q.DocumentType != "" {
		fmt.Fprintf(&b, "\nDocument Type: %s", q.DocumentType)
	}
	if q.Jurisdiction != "" {
		fmt.Fprintf(&b, "\nJurisdiction: %s", q.Jurisdiction)
	}
	return b.String()
}

// Retrieve embeds the query text, searches the index with over-fetch, then
// post-filters by jurisdiction, document type and minimum score. Fewer than
// top-k matches after filtering is a valid outcome, not an error. Provider
// failures surface as ErrRetrieval (or ErrUpstreamTimeout on deadline);
// they are not retried here.
func (r *Retriever) Retrieve(ctx context.Context, query models.RetrievalQuery) (*models.RetrievalResult, error) {
	if query.TopK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidArgument, query.TopK)
	}
	if strings.TrimSpace(query.Text) == "" {
		return nil, fmt.Errorf("%w: query text is empty", ErrInvalidArgument)
	}

	vec, err := r.provider.Embed(ctx, buildQueryText(query))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: embedding query: %v", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: embedding query: %v", ErrRetrieval, err)
	}

	candidates, err := r.index.Search(vec, query.TopK*overfetchFactor)
	if err != nil {
		return nil, err
	}

	result := &models.RetrievalResult{}
	seen := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		if len(result.Clauses) == query.TopK {
			break
		}
		if seen[cand.Clause.ID] {
			continue
		}
		if !cand.Clause.Jurisdiction.Matches(query.Jurisdiction) {
			continue
		}
		if !cand.Clause.DocumentType.Matches(query.DocumentType) {
			continue
		}
		if query.MinScore != 0 && cand.Score < query.MinScore {
			continue
		}
		seen[cand.Clause.ID] = true
		result.Clauses = append(result.Clauses, cand)
	}

	return result, nil
}
