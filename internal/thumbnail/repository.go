// Package thumbnail manages uploaded thumbnail images and their metadata.
package thumbnail

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Thumbnail is one persisted metadata record. file_key is the natural key and
// equals the uploaded filename.
type Thumbnail struct {
	ID        int64     `json:"id"`
	FileKey   string    `json:"file_key"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UploadedFile is one file of an ingestion batch. Content is read exactly once
// and is not resumable.
type UploadedFile struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Repository handles all thumbnail database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Begin opens a transaction on a pooled connection. The returned Tx must be
// finished with Commit or Rollback, which returns the connection to the pool.
func (r *Repository) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &pgxTx{tx: tx}, nil
}

// List returns up to limit records ordered by creation time, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Thumbnail, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, file_key, url, created_at, updated_at
		 FROM thumbnails
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list thumbnails: %w", err)
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Thumbnail])
	if err != nil {
		return nil, fmt.Errorf("scan thumbnails: %w", err)
	}
	return records, nil
}

// pgxTx adapts a pgx transaction to the Tx interface used by the coordinator.
type pgxTx struct {
	tx pgx.Tx
}

// Upsert inserts a record for fileKey or, when the key already exists, updates
// its url and updated_at. Row count per key stays at one.
func (t *pgxTx) Upsert(ctx context.Context, fileKey, url string) (*Thumbnail, error) {
	rec := &Thumbnail{}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO thumbnails (file_key, url)
		 VALUES ($1, $2)
		 ON CONFLICT (file_key) DO UPDATE SET url = EXCLUDED.url, updated_at = NOW()
		 RETURNING id, file_key, url, created_at, updated_at`,
		fileKey, url,
	).Scan(&rec.ID, &rec.FileKey, &rec.URL, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert thumbnail %q: %w", fileKey, err)
	}
	return rec, nil
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
