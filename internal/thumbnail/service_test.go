package thumbnail

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

// fakeStore records uploads and can be told to fail on a specific key.
type fakeStore struct {
	uploads []string
	failOn  string
}

func (f *fakeStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if key == f.failOn {
		return errors.New("connection reset")
	}
	f.uploads = append(f.uploads, key)
	return nil
}

func (f *fakeStore) PublicURL(key string) string {
	return "http://localhost:9000/thumbnails/" + key
}

// fakeTx records upserts and the transaction outcome.
type fakeTx struct {
	upserts    []string
	failOn     string
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Upsert(ctx context.Context, fileKey, url string) (*Thumbnail, error) {
	if fileKey == t.failOn {
		return nil, errors.New("deadlock detected")
	}
	t.upserts = append(t.upserts, fileKey)
	now := time.Now()
	return &Thumbnail{
		ID:        int64(len(t.upserts)),
		FileKey:   fileKey,
		URL:       url,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeRecords struct {
	tx         *fakeTx
	beginErr   error
	beginCalls int
	listRows   []Thumbnail
	listErr    error
	lastLimit  int
}

func (f *fakeRecords) Begin(ctx context.Context) (Tx, error) {
	f.beginCalls++
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.tx, nil
}

func (f *fakeRecords) List(ctx context.Context, limit int) ([]Thumbnail, error) {
	f.lastLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit < len(f.listRows) {
		return f.listRows[:limit], nil
	}
	return f.listRows, nil
}

func newTestService() (*Service, *fakeRecords, *fakeStore) {
	records := &fakeRecords{tx: &fakeTx{}}
	store := &fakeStore{}
	return NewService(records, store), records, store
}

func TestIngestRejectsWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name  string
		batch []UploadedFile
	}{
		{name: "empty batch", batch: nil},
		{
			name:  "unsupported type",
			batch: []UploadedFile{{Filename: "doc.pdf", ContentType: "application/pdf", Size: 100}},
		},
		{
			name:  "oversized file",
			batch: []UploadedFile{{Filename: "big.png", ContentType: "image/png", Size: MaxFileSize + 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, records, store := newTestService()

			_, err := svc.Ingest(context.Background(), tt.batch)
			if err == nil {
				t.Fatal("Ingest() = nil, want validation error")
			}
			if !IsValidationError(err) {
				t.Fatalf("Ingest() error = %v, want validation error", err)
			}
			if len(store.uploads) != 0 {
				t.Errorf("object store received %d writes, want 0", len(store.uploads))
			}
			if records.beginCalls != 0 {
				t.Errorf("database transactions begun: %d, want 0", records.beginCalls)
			}
		})
	}
}

func TestIngestSuccessCommitsAllFiles(t *testing.T) {
	svc, records, store := newTestService()
	batch := []UploadedFile{
		validFile("a.png"),
		validFile("b.png"),
		validFile("c.png"),
	}

	got, err := svc.Ingest(context.Background(), batch)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("Ingest() returned %d records, want 3", len(got))
	}
	for i, name := range []string{"a.png", "b.png", "c.png"} {
		if got[i].FileKey != name {
			t.Errorf("record %d key = %q, want %q", i, got[i].FileKey, name)
		}
		wantURL := "http://localhost:9000/thumbnails/" + name
		if got[i].URL != wantURL {
			t.Errorf("record %d url = %q, want %q", i, got[i].URL, wantURL)
		}
	}
	if len(store.uploads) != 3 {
		t.Errorf("object store writes = %d, want 3", len(store.uploads))
	}
	if !records.tx.committed {
		t.Error("transaction was not committed")
	}
	if records.tx.rolledBack {
		t.Error("transaction was rolled back after commit")
	}
}

func TestIngestRowsWrittenInArrivalOrder(t *testing.T) {
	svc, records, _ := newTestService()
	batch := []UploadedFile{validFile("z.png"), validFile("a.png"), validFile("m.png")}

	if _, err := svc.Ingest(context.Background(), batch); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	want := []string{"z.png", "a.png", "m.png"}
	for i, key := range want {
		if records.tx.upserts[i] != key {
			t.Fatalf("upsert order = %v, want %v", records.tx.upserts, want)
		}
	}
}

func TestIngestStoreFailureRollsBackLeavesOrphans(t *testing.T) {
	svc, records, store := newTestService()
	store.failOn = "c.png"
	batch := []UploadedFile{
		validFile("a.png"),
		validFile("b.png"),
		validFile("c.png"),
		validFile("d.png"),
	}

	_, err := svc.Ingest(context.Background(), batch)

	var storeErr *StoreWriteError
	if !errors.As(err, &storeErr) {
		t.Fatalf("Ingest() error = %v, want StoreWriteError", err)
	}
	if storeErr.Key != "c.png" {
		t.Errorf("StoreWriteError.Key = %q, want %q", storeErr.Key, "c.png")
	}
	if records.tx.committed {
		t.Error("transaction committed despite store failure")
	}
	if !records.tx.rolledBack {
		t.Error("transaction was not rolled back")
	}
	// Earlier objects stay behind: the documented orphan case.
	if len(store.uploads) != 2 {
		t.Errorf("objects present after abort = %d, want 2", len(store.uploads))
	}
	// d.png was never attempted.
	for _, key := range store.uploads {
		if key == "d.png" {
			t.Error("upload attempted after the batch aborted")
		}
	}
}

func TestIngestUpsertFailureRollsBack(t *testing.T) {
	svc, records, store := newTestService()
	records.tx.failOn = "b.png"
	batch := []UploadedFile{validFile("a.png"), validFile("b.png")}

	_, err := svc.Ingest(context.Background(), batch)

	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("Ingest() error = %v, want DatabaseError", err)
	}
	if dbErr.Op != "upsert" {
		t.Errorf("DatabaseError.Op = %q, want %q", dbErr.Op, "upsert")
	}
	if records.tx.committed {
		t.Error("transaction committed despite upsert failure")
	}
	if !records.tx.rolledBack {
		t.Error("transaction was not rolled back")
	}
	// Both objects were written before the row failure.
	if len(store.uploads) != 2 {
		t.Errorf("object store writes = %d, want 2", len(store.uploads))
	}
}

func TestIngestBeginFailure(t *testing.T) {
	svc, records, store := newTestService()
	records.beginErr = errors.New("pool exhausted")

	_, err := svc.Ingest(context.Background(), []UploadedFile{validFile("a.png")})

	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("Ingest() error = %v, want DatabaseError", err)
	}
	if dbErr.Op != "begin" {
		t.Errorf("DatabaseError.Op = %q, want %q", dbErr.Op, "begin")
	}
	if len(store.uploads) != 0 {
		t.Errorf("object store writes = %d, want 0", len(store.uploads))
	}
}

func TestIngestCommitFailure(t *testing.T) {
	svc, records, _ := newTestService()
	records.tx.commitErr = errors.New("connection lost")

	_, err := svc.Ingest(context.Background(), []UploadedFile{validFile("a.png")})

	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("Ingest() error = %v, want DatabaseError", err)
	}
	if dbErr.Op != "commit" {
		t.Errorf("DatabaseError.Op = %q, want %q", dbErr.Op, "commit")
	}
	if !records.tx.rolledBack {
		t.Error("transaction not rolled back after failed commit")
	}
}

func TestListDefaultsAndPassesLimit(t *testing.T) {
	svc, records, _ := newTestService()
	records.listRows = []Thumbnail{
		{ID: 5, FileKey: "e.png"},
		{ID: 4, FileKey: "d.png"},
		{ID: 3, FileKey: "c.png"},
		{ID: 2, FileKey: "b.png"},
		{ID: 1, FileKey: "a.png"},
	}

	got, err := svc.List(context.Background(), 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List(2) returned %d rows, want 2", len(got))
	}
	if got[0].FileKey != "e.png" || got[1].FileKey != "d.png" {
		t.Errorf("List(2) = [%s %s], want newest first [e.png d.png]", got[0].FileKey, got[1].FileKey)
	}

	if _, err := svc.List(context.Background(), 0); err != nil {
		t.Fatalf("List(0) error = %v", err)
	}
	if records.lastLimit != DefaultListLimit {
		t.Errorf("limit passed to store = %d, want default %d", records.lastLimit, DefaultListLimit)
	}
}

func TestListStoreFailure(t *testing.T) {
	svc, records, _ := newTestService()
	records.listErr = errors.New("relation does not exist")

	_, err := svc.List(context.Background(), 10)
	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("List() error = %v, want DatabaseError", err)
	}
}
