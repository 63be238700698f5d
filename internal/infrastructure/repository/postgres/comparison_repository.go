package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/policyscope/policyscope/internal/core/domain"
)

type ComparisonRepository struct {
	db *sql.DB
}

func NewComparisonRepository(db *sql.DB) *ComparisonRepository {
	return &ComparisonRepository{db: db}
}

func (r *ComparisonRepository) Save(ctx context.Context, result *domain.ComparisonResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal comparison: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO comparisons (id, policy_a_id, policy_b_id, result, created_at)
VALUES ($1,$2,$3,$4,$5)
`, result.ID, result.PolicyAID, result.PolicyBID, payload, result.ComparedAt)
	if err != nil {
		return fmt.Errorf("insert comparison: %w", err)
	}
	return nil
}

func (r *ComparisonRepository) GetByID(ctx context.Context, id string) (*domain.ComparisonResult, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `
SELECT result FROM comparisons WHERE id = $1
`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrComparisonNotFound, "get comparison", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("get comparison: %w", err)
	}

	var result domain.ComparisonResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal comparison: %w", err)
	}
	return &result, nil
}
