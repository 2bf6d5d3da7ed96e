package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"legaldraft-backend/embedding"
	"legaldraft-backend/models"
)

// indexEntry pairs a clause with its embedding. Entries are owned by the
// index and never escape it; the text hash lets a rebuild detect changed
// clause text and skip re-embedding the rest.
type indexEntry struct {
	clause   models.Clause
	textHash string
	vector   []float64
}

// indexGeneration is one immutable build of the index. A build constructs a
// complete generation before publishing it, so readers either see the
// previous generation or the new one, never a half-built state.
type indexGeneration struct {
	providerID string
	dimension  int
	builtAt    time.Time
	entries    []indexEntry
}

// VectorIndex is a brute-force cosine similarity index over clause
// embeddings. The active generation is held behind an atomic pointer;
// Search is lock-free and Build/Refresh replace the generation wholesale.
type VectorIndex struct {
	provider embedding.Provider
	current  atomic.Pointer[indexGeneration]
}

// NewVectorIndex creates an index that embeds clauses with the given provider.
func NewVectorIndex(provider embedding.Provider) *VectorIndex {
	return &VectorIndex{provider: provider}
}

// ProviderID returns the identifier of the embedding provider in use.
func (ix *VectorIndex) ProviderID() string { return ix.provider.ID() }

// Size returns the number of indexed clauses, or 0 if no index is built.
func (ix *VectorIndex) Size() int {
	gen := ix.current.Load()
	if gen == nil {
		return 0
	}
	return len(gen.entries)
}

// Clauses returns a copy of the clause snapshot backing the active
// generation, or nil if no index is built.
func (ix *VectorIndex) Clauses() []models.Clause {
	gen := ix.current.Load()
	if gen == nil {
		return nil
	}
	clauses := make([]models.Clause, 0, len(gen.entries))
	for _, e := range gen.entries {
		clauses = append(clauses, e.clause)
	}
	return clauses
}

// embedText composes the text that gets embedded for a clause. Metadata is
// folded in so that document type and jurisdiction influence similarity.
func embedText(c models.Clause) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document Type: %s\n", c.DocumentType)
	fmt.Fprintf(&b, "Clause Title: %s\n", c.Title)
	fmt.Fprintf(&b, "Content: %s\n", c.Text)
	fmt.Fprintf(&b, "Jurisdiction: %s\n", c.Jurisdiction)
	if len(c.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(c.Keywords, ", "))
	}
	return b.String()
}

func hashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Build consumes a full clause store snapshot and atomically replaces the
// active index. Embeddings are recomputed only for clauses that are new or
// whose text changed since the previous generation; unchanged vectors are
// carried forward. On failure the previous generation is retained.
func (ix *VectorIndex) Build(ctx context.Context, clauses []models.Clause) error {
	if len(clauses) == 0 {
		return fmt.Errorf("%w: clause store snapshot is empty", ErrIndexBuild)
	}

	prev := make(map[string]indexEntry)
	if gen := ix.current.Load(); gen != nil && gen.providerID == ix.provider.ID() {
		for _, e := range gen.entries {
			prev[e.clause.ID] = e
		}
	}

	entries := make([]indexEntry, 0, len(clauses))
	seen := make(map[string]bool, len(clauses))
	for _, clause := range clauses {
		if clause.ID == "" {
			return fmt.Errorf("%w: clause with empty identifier", ErrIndexBuild)
		}
		if seen[clause.ID] {
			return fmt.Errorf("%w: duplicate clause identifier %q", ErrIndexBuild, clause.ID)
		}
		seen[clause.ID] = true

		text := embedText(clause)
		hash := hashText(text)
		if old, ok := prev[clause.ID]; ok && old.textHash == hash {
			entries = append(entries, indexEntry{clause: clause, textHash: hash, vector: old.vector})
			continue
		}

		vec, err := ix.provider.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("%w: embedding clause %s: %v", ErrIndexBuild, clause.ID, err)
		}
		if len(vec) == 0 {
			return fmt.Errorf("%w: empty embedding for clause %s", ErrIndexBuild, clause.ID)
		}
		if len(vec) != ix.provider.Dimension() {
			return fmt.Errorf("%w: clause %s embedding has dimension %d, expected %d",
				ErrIndexBuild, clause.ID, len(vec), ix.provider.Dimension())
		}
		entries = append(entries, indexEntry{clause: clause, textHash: hash, vector: vec})
	}

	if len(entries) != len(clauses) {
		return fmt.Errorf("%w: embedded %d of %d clauses", ErrIndexBuild, len(entries), len(clauses))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].clause.ID < entries[j].clause.ID })

	ix.current.Store(&indexGeneration{
		providerID: ix.provider.ID(),
		dimension:  ix.provider.Dimension(),
		builtAt:    time.Now().UTC(),
		entries:    entries,
	})
	return nil
}

// Search returns up to topK entries nearest to the query vector, descending
// by cosine similarity. Equal scores break by clause identifier ascending.
func (ix *VectorIndex) Search(vector []float64, topK int) ([]models.ScoredClause, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidArgument, topK)
	}
	gen := ix.current.Load()
	if gen == nil {
		return nil, ErrEmptyIndex
	}
	if len(vector) != gen.dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, index has %d",
			ErrInvalidArgument, len(vector), gen.dimension)
	}

	scored := make([]models.ScoredClause, 0, len(gen.entries))
	for _, e := range gen.entries {
		scored = append(scored, models.ScoredClause{Clause: e.clause, Score: dot(e.vector, vector)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Clause.ID < scored[j].Clause.ID
	})
	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

// dot computes a dot product; vectors are L2-normalized at embed time, so
// this is the cosine similarity.
func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
