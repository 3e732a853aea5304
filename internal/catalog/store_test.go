package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/reelhouse/reelhouse/internal/content"
)

const testContentID = "6f1c2a9e-3b7d-4c55-9a21-0d8e4f7b1c32"

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mock.Close() })
	return NewStore(mock), mock
}

func TestParseID(t *testing.T) {
	if _, err := ParseID("not-a-uuid"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
	got, err := ParseID("6F1C2A9E-3B7D-4C55-9A21-0D8E4F7B1C32")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != testContentID {
		t.Errorf("expected canonical lowercase id, got %q", got)
	}
}

func TestStoreGet_ReturnsDecodedPayload(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT payload, created_at, updated_at FROM contents`).
		WithArgs(testContentID).
		WillReturnRows(pgxmock.NewRows([]string{"payload", "created_at", "updated_at"}).
			AddRow([]byte(`{"content_type":"Movie","title":"Heat","movie":{"video_url":"https://cdn.example.com/heat.mp4"}}`), created, created))

	entry, err := store.Get(context.Background(), testContentID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID != testContentID {
		t.Errorf("expected id %q, got %q", testContentID, entry.ID)
	}
	if got := content.Normalize(entry.Payload).VideoURL; got != "https://cdn.example.com/heat.mp4" {
		t.Errorf("unexpected video URL %q", got)
	}
	if !entry.CreatedAt.Equal(created) {
		t.Errorf("unexpected created_at %v", entry.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStoreGet_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT payload, created_at, updated_at FROM contents`).
		WithArgs(testContentID).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), testContentID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreGet_InvalidIDSkipsQuery(t *testing.T) {
	store, mock := newMockStore(t)

	_, err := store.Get(context.Background(), "../etc")
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected query: %v", err)
	}
}

func TestStoreList(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, payload, created_at, updated_at FROM contents`).
		WithArgs(10, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload", "created_at", "updated_at"}).
			AddRow(testContentID, []byte(`{"title":"A"}`), now, now).
			AddRow("11111111-2222-3333-4444-555555555555", []byte(`{"title":"B"}`), now, now))

	entries, err := store.List(context.Background(), 10, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if title, _ := entries[1].Payload.String("title"); title != "B" {
		t.Errorf("expected second title B, got %q", title)
	}
}

func TestStoreCreate(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO contents`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	entry, err := store.Create(context.Background(), content.Payload{"title": "New"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseID(entry.ID); err != nil {
		t.Errorf("expected generated UUID, got %q", entry.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStoreReplace_ReturnsOldPayload(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`UPDATE contents c SET payload`).
		WithArgs(testContentID, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"payload", "created_at", "updated_at"}).
			AddRow([]byte(`{"image":"s3://old.jpg"}`), now, now))

	_, old, err := store.Replace(context.Background(), testContentID, content.Payload{"title": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img, _ := old.String("image"); img != "s3://old.jpg" {
		t.Errorf("expected old payload image, got %q", img)
	}
}

func TestStoreReplace_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE contents c SET payload`).
		WithArgs(testContentID, pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	if _, _, err := store.Replace(context.Background(), testContentID, content.Payload{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`DELETE FROM contents`).
		WithArgs(testContentID).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow([]byte(`{"videoUrl":"s3://a.mp4"}`)))

	payload, err := store.Delete(context.Background(), testContentID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u, _ := payload.String("videoUrl"); u != "s3://a.mp4" {
		t.Errorf("expected deleted payload, got %q", u)
	}
}

func TestStoreDelete_DatabaseError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`DELETE FROM contents`).
		WithArgs(testContentID).
		WillReturnError(errors.New("connection reset"))

	_, err := store.Delete(context.Background(), testContentID)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected wrapped database error, got %v", err)
	}
}
