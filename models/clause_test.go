package models

import "testing"

func TestJurisdictionMatches(t *testing.T) {
	tests := []struct {
		clause    Jurisdiction
		requested Jurisdiction
		want      bool
	}{
		{JurisdictionIN, JurisdictionIN, true},
		{JurisdictionIN, JurisdictionUS, false},
		{JurisdictionAny, JurisdictionUS, true},
		{JurisdictionIN, JurisdictionAny, true},
		{JurisdictionIN, "", true},
		{JurisdictionAny, JurisdictionAny, true},
	}
	for _, tt := range tests {
		if got := tt.clause.Matches(tt.requested); got != tt.want {
			t.Errorf("%s.Matches(%s) = %v, want %v", tt.clause, tt.requested, got, tt.want)
		}
	}
}

func TestDocumentTypeMatches(t *testing.T) {
	tests := []struct {
		clause    DocumentType
		requested DocumentType
		want      bool
	}{
		{DocTypeLoanAgreement, DocTypeLoanAgreement, true},
		{DocTypeLoanAgreement, DocTypeRentalAgreement, false},
		{"", DocTypeLoanAgreement, true},
		{DocTypeOther, DocTypeLoanAgreement, true},
		{DocTypeLoanAgreement, "", true},
		{DocTypeLoanAgreement, DocTypeOther, true},
	}
	for _, tt := range tests {
		if got := tt.clause.Matches(tt.requested); got != tt.want {
			t.Errorf("%q.Matches(%q) = %v, want %v", tt.clause, tt.requested, got, tt.want)
		}
	}
}
