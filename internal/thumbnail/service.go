package thumbnail

import (
	"context"
	"fmt"

	"github.com/thumbr/service/internal/storage"
)

// DefaultListLimit caps reads when the client does not ask for a limit.
const DefaultListLimit = 100

// Records is the metadata-store surface the coordinator needs.
type Records interface {
	Begin(ctx context.Context) (Tx, error)
	List(ctx context.Context, limit int) ([]Thumbnail, error)
}

// Tx is one open metadata transaction, bound to one pooled connection until
// Commit or Rollback releases it.
type Tx interface {
	Upsert(ctx context.Context, fileKey, url string) (*Thumbnail, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// StoreWriteError reports a failed object-store write for one file.
type StoreWriteError struct {
	Key string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("object store write for %q: %v", e.Key, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// DatabaseError reports a failed metadata-store operation.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// Service coordinates ingestion across the object store and the metadata
// store.
type Service struct {
	records Records
	store   storage.Storage
}

// NewService creates a new thumbnail Service.
func NewService(records Records, store storage.Storage) *Service {
	return &Service{records: records, store: store}
}

// Ingest validates batch, writes each file's bytes to the object store under
// its filename, and upserts the metadata row for each file, all on one
// transaction. Files are processed strictly in arrival order. A validation
// failure rejects the batch before anything is written. Any later failure
// rolls back every row of the batch and returns a StoreWriteError or
// DatabaseError wrapping the cause.
//
// Object-store writes are not part of the transaction: objects uploaded
// before a mid-batch failure are left behind with no matching row. This
// orphan case is an accepted limitation; there is no compensating delete.
func (s *Service) Ingest(ctx context.Context, batch []UploadedFile) ([]Thumbnail, error) {
	if err := ValidateBatch(batch); err != nil {
		return nil, err
	}

	tx, err := s.records.Begin(ctx)
	if err != nil {
		return nil, &DatabaseError{Op: "begin", Err: err}
	}
	// No-op after a successful commit; on every other exit path this rolls
	// back the batch and releases the connection.
	defer tx.Rollback(context.WithoutCancel(ctx))

	records := make([]Thumbnail, 0, len(batch))
	for _, f := range batch {
		if err := s.store.Upload(ctx, f.Filename, f.Content, f.Size, f.ContentType); err != nil {
			return nil, &StoreWriteError{Key: f.Filename, Err: err}
		}
		rec, err := tx.Upsert(ctx, f.Filename, s.store.PublicURL(f.Filename))
		if err != nil {
			return nil, &DatabaseError{Op: "upsert", Err: err}
		}
		records = append(records, *rec)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &DatabaseError{Op: "commit", Err: err}
	}
	return records, nil
}

// List returns the most recently created records, newest first. limit values
// below 1 fall back to DefaultListLimit.
func (s *Service) List(ctx context.Context, limit int) ([]Thumbnail, error) {
	if limit < 1 {
		limit = DefaultListLimit
	}
	records, err := s.records.List(ctx, limit)
	if err != nil {
		return nil, &DatabaseError{Op: "list", Err: err}
	}
	return records, nil
}
