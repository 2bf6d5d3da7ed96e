package models

import (
	"time"
)

// Jurisdiction is the legal jurisdiction a clause applies to
type Jurisdiction string

const (
	JurisdictionIN  Jurisdiction = "IN"
	JurisdictionUS  Jurisdiction = "US"
	JurisdictionUK  Jurisdiction = "UK"
	JurisdictionCA  Jurisdiction = "CA"
	JurisdictionAU  Jurisdiction = "AU"
	JurisdictionAny Jurisdiction = "any"
)

// Matches reports whether a clause tagged with j is usable under the
// requested jurisdiction. "any" on either side matches everything.
func (j Jurisdiction) Matches(requested Jurisdiction) bool {
	if j == JurisdictionAny || requested == JurisdictionAny || requested == "" {
		return true
	}
	return j == requested
}

// DocumentType represents a supported legal document type
type DocumentType string

const (
	DocTypeLoanAgreement      DocumentType = "loan_agreement"
	DocTypeRentalAgreement    DocumentType = "rental_agreement"
	DocTypeServiceAgreement   DocumentType = "service_agreement"
	DocTypeNDA                DocumentType = "nda"
	DocTypeEmploymentContract DocumentType = "employment_contract"
	DocTypePartnershipDeed    DocumentType = "partnership_deed"
	DocTypeAffidavit          DocumentType = "affidavit"
	DocTypeOther              DocumentType = "other"
)

// Matches reports whether a clause tagged with d is usable for the requested
// document type. Untagged clauses and "other" requests match everything.
func (d DocumentType) Matches(requested DocumentType) bool {
	if d == "" || d == DocTypeOther || requested == "" || requested == DocTypeOther {
		return true
	}
	return d == requested
}

// Clause represents a legal clause from the knowledge base
type Clause struct {
	ID           string       `json:"id"`
	Title        string       `json:"clause_title"`
	Text         string       `json:"clause_content"`
	DocumentType DocumentType `json:"document_type"`
	Jurisdiction Jurisdiction `json:"jurisdiction"`
	Category     string       `json:"category,omitempty"`
	Keywords     []string     `json:"keywords,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at,omitempty"`
}
