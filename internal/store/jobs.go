package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ivlev/composer/internal/manifest"
)

type JobRepository interface {
	// Create stores a render-job manifest
	Create(ctx context.Context, m *manifest.Manifest) error
	// GetByID retrieves a manifest by job id
	GetByID(ctx context.Context, jobID string) (*manifest.Manifest, error)
	// ListByComposition returns the jobs of one composition, newest first
	ListByComposition(ctx context.Context, compositionID string) ([]*manifest.Manifest, error)
}

// SQLiteJobRepository stores manifests as their JSON encoding.
type SQLiteJobRepository struct {
	db *sql.DB
}

func NewSQLiteJobRepository(db *sql.DB) (*SQLiteJobRepository, error) {
	repo := &SQLiteJobRepository{db: db}
	if err := repo.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return repo, nil
}

func (r *SQLiteJobRepository) createTables() error {
	_, err := r.db.Exec(`
	CREATE TABLE IF NOT EXISTS jobs (
		job_id TEXT PRIMARY KEY,
		composition_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		manifest TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_composition ON jobs(composition_id, created_at);`)
	return err
}

func (r *SQLiteJobRepository) Create(ctx context.Context, m *manifest.Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := manifest.Marshal(m, "json")
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO jobs (job_id, composition_id, created_at, manifest) VALUES (?, ?, ?, ?)`,
		m.JobID, m.Composition.ID(), timeToString(m.CreatedAt), string(data))
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *SQLiteJobRepository) GetByID(ctx context.Context, jobID string) (*manifest.Manifest, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT manifest FROM jobs WHERE job_id = ?`, jobID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get job by ID: %w", err)
	}
	return manifest.Unmarshal([]byte(data), "json")
}

func (r *SQLiteJobRepository) ListByComposition(ctx context.Context, compositionID string) ([]*manifest.Manifest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT manifest FROM jobs WHERE composition_id = ? ORDER BY created_at DESC, job_id`, compositionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var out []*manifest.Manifest
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		m, err := manifest.Unmarshal([]byte(data), "json")
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
