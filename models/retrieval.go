package models

// RetrievalQuery describes a single clause retrieval request.
// Queries are ephemeral; one is built per drafting request.
type RetrievalQuery struct {
	Text         string       `json:"text"`
	DocumentType DocumentType `json:"document_type,omitempty"`
	Jurisdiction Jurisdiction `json:"jurisdiction,omitempty"`
	TopK         int          `json:"top_k"`
	MinScore     float64      `json:"min_score,omitempty"`
}

// ScoredClause pairs a retrieved clause with its similarity score.
// Scores are cosine similarities in [-1, 1].
type ScoredClause struct {
	Clause Clause  `json:"clause"`
	Score  float64 `json:"score"`
}

// RetrievalResult is an ordered set of scored clauses, descending by score.
// Entries never share a clause ID and the length never exceeds the
// requested top-k.
type RetrievalResult struct {
	Clauses []ScoredClause `json:"clauses"`
}
