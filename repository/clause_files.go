package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"legaldraft-backend/models"
)

// ClauseFileStore reads legal clauses from JSON files in a directory. Each
// .json file holds either a single clause object or an array of clauses.
// It backs the pipeline when no database is configured and feeds the
// corpus-ingest command.
type ClauseFileStore struct {
	dir string
}

// NewClauseFileStore creates a file-backed clause store over the given
// directory. The directory does not have to exist; a missing directory
// yields the built-in default clause set.
func NewClauseFileStore(dir string) *ClauseFileStore {
	return &ClauseFileStore{dir: dir}
}

// ListAll loads every clause from the directory. Files that fail to parse
// are skipped with a warning. If the directory is missing or holds no
// clauses, the built-in defaults are returned so the system stays usable
// without a curated corpus.
func (s *ClauseFileStore) ListAll(ctx context.Context) ([]models.Clause, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Warning: clause directory not found: %s, using default clauses", s.dir)
			return DefaultClauses(), nil
		}
		return nil, fmt.Errorf("failed to read clause directory: %w", err)
	}

	var clauses []models.Clause
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		fileClauses, err := loadClauseFile(path)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", entry.Name(), err)
			continue
		}
		clauses = append(clauses, fileClauses...)
	}

	if len(clauses) == 0 {
		log.Printf("Warning: no clauses loaded from %s, using default clauses", s.dir)
		return DefaultClauses(), nil
	}
	return clauses, nil
}

// ListChangedSince returns clauses from files modified after the given time.
func (s *ClauseFileStore) ListChangedSince(ctx context.Context, since time.Time) ([]models.Clause, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read clause directory: %w", err)
	}

	var clauses []models.Clause
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().After(since) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		fileClauses, err := loadClauseFile(path)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", entry.Name(), err)
			continue
		}
		clauses = append(clauses, fileClauses...)
	}
	return clauses, nil
}

func loadClauseFile(path string) ([]models.Clause, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	modTime := info.ModTime()

	var clauses []models.Clause
	if err := json.Unmarshal(data, &clauses); err != nil {
		// A file may also hold a single clause object
		var single models.Clause
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("invalid clause JSON: %w", err)
		}
		clauses = []models.Clause{single}
	}
	for i := range clauses {
		if clauses[i].UpdatedAt.IsZero() {
			clauses[i].UpdatedAt = modTime
		}
	}
	return clauses, nil
}

// DefaultClauses returns the built-in clause set used when no corpus has
// been loaded yet.
func DefaultClauses() []models.Clause {
	return []models.Clause{
		{
			ID:           "loan_interest_1",
			Title:        "Interest Calculation",
			Text:         "Interest on the Loan Amount shall be calculated on a monthly basis at the rate specified in Clause [X] and shall be payable along with the principal repayment.",
			DocumentType: models.DocTypeLoanAgreement,
			Jurisdiction: models.JurisdictionIN,
			Category:     "interest",
			Keywords:     []string{"interest", "calculation", "monthly"},
		},
		{
			ID:           "loan_repayment_1",
			Title:        "Repayment Schedule",
			Text:         "The Borrower shall repay the Loan Amount in [NUMBER] equal monthly installments of [AMOUNT] each, commencing from [DATE], and on the same date of each succeeding month.",
			DocumentType: models.DocTypeLoanAgreement,
			Jurisdiction: models.JurisdictionIN,
			Category:     "repayment",
			Keywords:     []string{"repayment", "installments", "schedule"},
		},
		{
			ID:           "rental_deposit_1",
			Title:        "Security Deposit",
			Text:         "The Tenant has deposited a sum of [AMOUNT] as security deposit, which shall be refundable at the termination of this agreement, subject to deduction for any damages or outstanding dues.",
			DocumentType: models.DocTypeRentalAgreement,
			Jurisdiction: models.JurisdictionIN,
			Category:     "deposit",
			Keywords:     []string{"security", "deposit", "refundable"},
		},
		{
			ID:           "termination_1",
			Title:        "Termination Clause",
			Text:         "Either party may terminate this agreement by giving [NUMBER] days' written notice to the other party. In case of material breach, the non-breaching party may terminate immediately upon written notice.",
			DocumentType: models.DocTypeOther,
			Jurisdiction: models.JurisdictionAny,
			Category:     "termination",
			Keywords:     []string{"termination", "notice", "breach"},
		},
		{
			ID:           "governing_law_1",
			Title:        "Governing Law and Jurisdiction",
			Text:         "This agreement shall be governed by and construed in accordance with the laws of [JURISDICTION]. Any disputes arising under this agreement shall be subject to the exclusive jurisdiction of the courts in [CITY/STATE].",
			DocumentType: models.DocTypeOther,
			Jurisdiction: models.JurisdictionAny,
			Category:     "governing_law",
			Keywords:     []string{"governing", "law", "jurisdiction"},
		},
	}
}
