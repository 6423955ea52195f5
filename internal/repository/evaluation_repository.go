package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// EvaluationRepository answers the single question this service has about
// evaluations: whether any exist for a rotation. Scoring lives elsewhere.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs repository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// ExistsForRotation reports whether the rotation has evaluations recorded.
func (r *EvaluationRepository) ExistsForRotation(ctx context.Context, rotationID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM evaluations WHERE rotation_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, rotationID); err != nil {
		return false, fmt.Errorf("check rotation evaluations: %w", err)
	}
	return exists, nil
}
