package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentSection is one section of a generated document
type DocumentSection struct {
	Type    string `json:"type"` // "heading", "clause", "paragraph", "list"
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
	Level   int    `json:"level,omitempty"`
}

// Party represents a party to a generated document
type Party struct {
	Name    string `json:"name"`
	Role    string `json:"role,omitempty"`
	Address string `json:"address,omitempty"`
}

// GeneratedDocument is the structured output of a drafting request
type GeneratedDocument struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Type        DocumentType      `json:"document_type"`
	Sections    []DocumentSection `json:"sections"`
	Parties     []Party           `json:"parties,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`

	// Retrieval diagnostics. A degraded document was generated without
	// grounding context and must never be presented as fully grounded.
	ClausesRetrieved int  `json:"clauses_retrieved"`
	ClausesIncluded  int  `json:"clauses_included"`
	Truncated        bool `json:"truncated"`
	Degraded         bool `json:"degraded"`
}

// DocumentTypeInfo describes a supported document type to API clients
type DocumentTypeInfo struct {
	TypeID         DocumentType `json:"type_id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	RequiredFields []string     `json:"required_fields"`
}
