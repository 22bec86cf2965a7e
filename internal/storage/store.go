// Package storage records revision runs.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/code-reviser/internal/core"
)

const defaultListLimit = 20

// Store defines the interface for all database operations.
//
//go:generate mockgen -destination=../../mocks/mock_store.go -package=mocks . Store
type Store interface {
	SaveRun(ctx context.Context, run *core.RevisionRun) error
	ListRuns(ctx context.Context, repoFullName string, prNumber int, limit int) ([]core.RevisionRun, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a Postgres-backed Store.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

// SaveRun inserts a run and fills in its ID and creation time.
func (s *postgresStore) SaveRun(ctx context.Context, run *core.RevisionRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO revision_runs
			(repo_full_name, pr_number, branch, base_sha, commit_sha, status, files_applied, blocks_skipped, error, created_at)
		VALUES
			(:repo_full_name, :pr_number, :branch, :base_sha, :commit_sha, :status, :files_applied, :blocks_skipped, :error, :created_at)
		RETURNING id`

	rows, err := sqlx.NamedQueryContext(ctx, s.db, query, run)
	if err != nil {
		return fmt.Errorf("failed to insert revision run: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&run.ID); err != nil {
			return fmt.Errorf("failed to read revision run id: %w", err)
		}
	}
	return rows.Err()
}

// ListRuns returns the newest runs for a pull request. A prNumber of 0 lists
// runs across the whole repository.
func (s *postgresStore) ListRuns(ctx context.Context, repoFullName string, prNumber int, limit int) ([]core.RevisionRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT id, repo_full_name, pr_number, branch, base_sha, commit_sha, status, files_applied, blocks_skipped, error, created_at
		FROM revision_runs
		WHERE repo_full_name = $1 AND ($2 = 0 OR pr_number = $2)
		ORDER BY created_at DESC
		LIMIT $3`

	var runs []core.RevisionRun
	if err := s.db.SelectContext(ctx, &runs, query, repoFullName, prNumber, limit); err != nil {
		return nil, fmt.Errorf("failed to list revision runs: %w", err)
	}
	return runs, nil
}

type nopStore struct{}

// NewNopStore returns a Store that discards runs. It is used when no database is configured.
func NewNopStore() Store {
	return nopStore{}
}

func (nopStore) SaveRun(context.Context, *core.RevisionRun) error { return nil }

func (nopStore) ListRuns(context.Context, string, int, int) ([]core.RevisionRun, error) {
	return nil, nil
}
