package repository

import (
	"context"
	"fmt"
	"time"

	"legaldraft-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClauseRepository handles database operations for legal clauses
type ClauseRepository struct {
	db *pgxpool.Pool
}

// NewClauseRepository creates a new clause repository
func NewClauseRepository(db *pgxpool.Pool) *ClauseRepository {
	return &ClauseRepository{db: db}
}

const clauseColumns = `id, clause_title, clause_content, document_type, jurisdiction, category, keywords, updated_at`

func scanClauses(rows pgx.Rows) ([]models.Clause, error) {
	var clauses []models.Clause
	for rows.Next() {
		var c models.Clause
		err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.Text,
			&c.DocumentType,
			&c.Jurisdiction,
			&c.Category,
			&c.Keywords,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clause: %w", err)
		}
		clauses = append(clauses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clauses: %w", err)
	}
	return clauses, nil
}

// ListAll returns the full clause corpus, ordered by identifier.
func (r *ClauseRepository) ListAll(ctx context.Context) ([]models.Clause, error) {
	query := fmt.Sprintf(`SELECT %s FROM legal_clauses ORDER BY id`, clauseColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query clauses: %w", err)
	}
	defer rows.Close()
	return scanClauses(rows)
}

// ListChangedSince returns clauses added or modified after the given time.
func (r *ClauseRepository) ListChangedSince(ctx context.Context, since time.Time) ([]models.Clause, error) {
	query := fmt.Sprintf(`SELECT %s FROM legal_clauses WHERE updated_at > $1 ORDER BY id`, clauseColumns)
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query changed clauses: %w", err)
	}
	defer rows.Close()
	return scanClauses(rows)
}

// Upsert inserts or replaces a clause, bumping updated_at so the change is
// picked up by the next index refresh.
func (r *ClauseRepository) Upsert(ctx context.Context, clause *models.Clause) error {
	query := `
		INSERT INTO legal_clauses (
			id, clause_title, clause_content, document_type, jurisdiction, category, keywords, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			clause_title = EXCLUDED.clause_title,
			clause_content = EXCLUDED.clause_content,
			document_type = EXCLUDED.document_type,
			jurisdiction = EXCLUDED.jurisdiction,
			category = EXCLUDED.category,
			keywords = EXCLUDED.keywords,
			updated_at = NOW()
		RETURNING updated_at`

	err := r.db.QueryRow(
		ctx, query,
		clause.ID,
		clause.Title,
		clause.Text,
		clause.DocumentType,
		clause.Jurisdiction,
		clause.Category,
		clause.Keywords,
	).Scan(&clause.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert clause %s: %w", clause.ID, err)
	}
	return nil
}

// Count returns the number of clauses in the store.
func (r *ClauseRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM legal_clauses`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count clauses: %w", err)
	}
	return count, nil
}
