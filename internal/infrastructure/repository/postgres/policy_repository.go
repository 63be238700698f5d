package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/policyscope/policyscope/internal/core/domain"
)

type PolicyRepository struct {
	db *sql.DB
}

func NewPolicyRepository(db *sql.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *PolicyRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026052801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS policies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	insurer TEXT,
	policy_number TEXT,
	valid_from TEXT,
	valid_to TEXT,
	chapters JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_policies_status ON policies(status);
CREATE INDEX IF NOT EXISTS idx_policies_created_at ON policies(created_at DESC);

CREATE TABLE IF NOT EXISTS comparisons (
	id TEXT PRIMARY KEY,
	policy_a_id TEXT NOT NULL REFERENCES policies(id),
	policy_b_id TEXT NOT NULL REFERENCES policies(id),
	result JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_comparisons_created_at ON comparisons(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *PolicyRepository) Create(ctx context.Context, policy *domain.Policy) error {
	chaptersJSON, err := json.Marshal(policy.Chapters)
	if err != nil {
		return fmt.Errorf("marshal chapters: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO policies (
	id, name, filename, mime_type, storage_path, insurer, policy_number, valid_from, valid_to, chapters, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		policy.ID, policy.Name, policy.Filename, policy.MimeType, policy.StoragePath,
		policy.Metadata.Insurer, policy.Metadata.PolicyNumber, policy.Metadata.ValidFrom, policy.Metadata.ValidTo,
		chaptersJSON, string(policy.Status), policy.Error, policy.CreatedAt, policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

func (r *PolicyRepository) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, filename, mime_type, storage_path, insurer, policy_number, valid_from, valid_to, chapters, status, error_message, created_at, updated_at
FROM policies
WHERE id = $1
`, id)

	policy, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrPolicyNotFound, "get policy", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return policy, nil
}

func (r *PolicyRepository) List(ctx context.Context) ([]domain.Policy, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, filename, mime_type, storage_path, insurer, policy_number, valid_from, valid_to, chapters, status, error_message, created_at, updated_at
FROM policies
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var policies []domain.Policy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *policy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	return policies, nil
}

func (r *PolicyRepository) UpdateStatus(ctx context.Context, id string, status domain.PolicyStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE policies
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update policy status: %w", err)
	}
	return checkAffected(result, "update policy status", id)
}

func (r *PolicyRepository) SaveStructure(ctx context.Context, id string, meta domain.PolicyMetadata, chapters []domain.Chapter) error {
	chaptersJSON, err := json.Marshal(chapters)
	if err != nil {
		return fmt.Errorf("marshal chapters: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE policies
SET insurer = $2, policy_number = $3, valid_from = $4, valid_to = $5, chapters = $6, updated_at = $7
WHERE id = $1
`, id, meta.Insurer, meta.PolicyNumber, meta.ValidFrom, meta.ValidTo, chaptersJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save policy structure: %w", err)
	}
	return checkAffected(result, "save policy structure", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*domain.Policy, error) {
	var policy domain.Policy
	var chaptersRaw []byte
	var status string

	err := row.Scan(
		&policy.ID, &policy.Name, &policy.Filename, &policy.MimeType, &policy.StoragePath,
		&policy.Metadata.Insurer, &policy.Metadata.PolicyNumber, &policy.Metadata.ValidFrom, &policy.Metadata.ValidTo,
		&chaptersRaw, &status, &policy.Error, &policy.CreatedAt, &policy.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(chaptersRaw, &policy.Chapters); err != nil {
		return nil, fmt.Errorf("unmarshal chapters: %w", err)
	}
	policy.Status = domain.PolicyStatus(status)
	return &policy, nil
}

func checkAffected(result sql.Result, operation, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrPolicyNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}
