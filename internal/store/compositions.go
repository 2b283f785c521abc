package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ivlev/composer/internal/composition"
)

type CompositionRepository interface {
	// GetByID retrieves a composition by its id
	GetByID(ctx context.Context, id string) (composition.Descriptor, error)
	// GetAll retrieves every composition ordered by id
	GetAll(ctx context.Context) ([]composition.Descriptor, error)
	// Create adds a new composition; the id must not exist yet
	Create(ctx context.Context, d composition.Descriptor) error
	// Upsert creates or replaces a composition
	Upsert(ctx context.Context, d composition.Descriptor) error
	// Delete removes a composition
	Delete(ctx context.Context, id string) error
}

var ErrDuplicateID = errors.New("composition id already stored")

// SQLiteCompositionRepository stores each descriptor as its JSON document.
type SQLiteCompositionRepository struct {
	db *sql.DB
}

// NewSQLiteCompositionRepository creates the repository and its table.
func NewSQLiteCompositionRepository(db *sql.DB) (*SQLiteCompositionRepository, error) {
	repo := &SQLiteCompositionRepository{db: db}
	if err := repo.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return repo, nil
}

func (r *SQLiteCompositionRepository) createTables() error {
	_, err := r.db.Exec(`
	CREATE TABLE IF NOT EXISTS compositions (
		id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

func (r *SQLiteCompositionRepository) GetByID(ctx context.Context, id string) (composition.Descriptor, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, `SELECT document FROM compositions WHERE id = ?`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return composition.Descriptor{}, fmt.Errorf("%w: composition %s", ErrNotFound, id)
		}
		return composition.Descriptor{}, fmt.Errorf("failed to get composition by ID: %w", err)
	}

	d, err := composition.DecodeJSON([]byte(doc))
	if err != nil {
		return composition.Descriptor{}, fmt.Errorf("failed to decode composition %s: %w", id, err)
	}
	return d, nil
}

func (r *SQLiteCompositionRepository) GetAll(ctx context.Context) ([]composition.Descriptor, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, document FROM compositions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query compositions: %w", err)
	}
	defer rows.Close()

	var out []composition.Descriptor
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan composition: %w", err)
		}
		d, err := composition.DecodeJSON([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("failed to decode composition %s: %w", id, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLiteCompositionRepository) Create(ctx context.Context, d composition.Descriptor) error {
	doc, err := composition.EncodeJSON(d)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO compositions (id, document, updated_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		d.ID(), string(doc), timeToString(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to create composition: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID())
	}
	return nil
}

func (r *SQLiteCompositionRepository) Upsert(ctx context.Context, d composition.Descriptor) error {
	doc, err := composition.EncodeJSON(d)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
	INSERT INTO compositions (id, document, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		d.ID(), string(doc), timeToString(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to upsert composition: %w", err)
	}
	return nil
}

func (r *SQLiteCompositionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM compositions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete composition: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: composition %s", ErrNotFound, id)
	}
	return nil
}
