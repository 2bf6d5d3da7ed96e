package rag

import (
	"fmt"
	"sort"
	"strings"

	"legaldraft-backend/models"
)

// Diagnostics describes how an assembled context was put together.
type Diagnostics struct {
	ClausesConsidered int  `json:"clauses_considered"`
	ClausesIncluded   int  `json:"clauses_included"`
	Truncated         bool `json:"truncated"`
	Degraded          bool `json:"degraded"`
}

// AssembledContext is the bounded-length context block handed to the
// generation boundary. Segments are ordered: the variable summary first,
// then clause segments by descending relevance.
type AssembledContext struct {
	Segments    []string    `json:"segments"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Text joins the segments into the prompt payload.
func (c *AssembledContext) Text() string {
	return strings.Join(c.Segments, "\n\n")
}

// Assembler selects and orders retrieved clauses plus user variables into a
// context block that stays within a length budget.
type Assembler struct{}

// NewAssembler creates a context assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// renderVariables serializes the user-supplied variables as a summary
// segment. Keys are sorted so identical inputs produce identical output.
func renderVariables(variables map[string]string) string {
	var b strings.Builder
	b.WriteString("DOCUMENT VARIABLES:\n")
	if len(variables) == 0 {
		b.WriteString("(none provided)")
		return b.String()
	}
	keys := make([]string, 0, len(variables))
	for k := range variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s: %s", k, variables[k])
	}
	return b.String()
}

// renderClause serializes one retrieved clause as a labeled segment.
func renderClause(n int, sc models.ScoredClause) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CLAUSE %d:\n", n)
	fmt.Fprintf(&b, "Title: %s\n", sc.Clause.Title)
	fmt.Fprintf(&b, "Document Type: %s\n", sc.Clause.DocumentType)
	fmt.Fprintf(&b, "Jurisdiction: %s\n", sc.Clause.Jurisdiction)
	fmt.Fprintf(&b, "Content:\n%s", sc.Clause.Text)
	return b.String()
}

// Assemble orders the retrieved clauses by descending relevance and greedily
// appends them after the variable summary while the cumulative clause length
// stays within maxLength. A clause is either wholly included or wholly
// dropped. The variable summary is always included and does not consume the
// budget: clauses are dropped before variables, and a context holding only
// the summary is a valid outcome. maxLength <= 0 means unbounded.
func (a *Assembler) Assemble(result *models.RetrievalResult, variables map[string]string, maxLength int) *AssembledContext {
	out := &AssembledContext{}

	summary := renderVariables(variables)
	out.Segments = append(out.Segments, summary)
	running := 0

	if result == nil {
		return out
	}

	clauses := make([]models.ScoredClause, len(result.Clauses))
	copy(clauses, result.Clauses)
	sort.SliceStable(clauses, func(i, j int) bool {
		if clauses[i].Score != clauses[j].Score {
			return clauses[i].Score > clauses[j].Score
		}
		return clauses[i].Clause.ID < clauses[j].Clause.ID
	})

	out.Diagnostics.ClausesConsidered = len(clauses)
	for _, sc := range clauses {
		segment := renderClause(out.Diagnostics.ClausesIncluded+1, sc)
		if maxLength > 0 && running+len(segment) > maxLength {
			out.Diagnostics.Truncated = true
			break
		}
		out.Segments = append(out.Segments, segment)
		running += len(segment)
		out.Diagnostics.ClausesIncluded++
	}

	return out
}
