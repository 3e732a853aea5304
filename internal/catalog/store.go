package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/reelhouse/reelhouse/internal/content"
	"github.com/reelhouse/reelhouse/internal/database"
)

var (
	ErrNotFound  = errors.New("content not found")
	ErrInvalidID = errors.New("invalid content id")
)

// Entry is one catalog record. The payload is stored exactly as submitted.
type Entry struct {
	ID        string          `json:"id"`
	Payload   content.Payload `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type Store struct {
	db database.DBTX
}

func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

// ParseID normalises a content id, rejecting anything that is not a UUID.
func ParseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return parsed.String(), nil
}

func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	id, err := ParseID(id)
	if err != nil {
		return Entry{}, err
	}

	var raw []byte
	entry := Entry{ID: id}
	err = s.db.QueryRow(ctx,
		`SELECT payload, created_at, updated_at FROM contents WHERE id = $1`, id,
	).Scan(&raw, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("get content %s: %w", id, err)
	}

	entry.Payload, err = content.DecodePayload(raw)
	if err != nil {
		return Entry{}, fmt.Errorf("get content %s: %w", id, err)
	}
	return entry, nil
}

// Payload satisfies the player's content source.
func (s *Store) Payload(ctx context.Context, id string) (content.Payload, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return entry.Payload, nil
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, payload, created_at, updated_at FROM contents
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var raw []byte
		if err := rows.Scan(&e.ID, &raw, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		if e.Payload, err = content.DecodePayload(raw); err != nil {
			return nil, fmt.Errorf("decode content %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	return entries, nil
}

func (s *Store) Create(ctx context.Context, payload content.Payload) (Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("encode payload: %w", err)
	}

	entry := Entry{ID: uuid.NewString(), Payload: payload}
	err = s.db.QueryRow(ctx,
		`INSERT INTO contents (id, payload) VALUES ($1, $2)
		 RETURNING created_at, updated_at`,
		entry.ID, raw,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("insert content: %w", err)
	}
	return entry, nil
}

// Replace swaps the stored payload and also returns the payload it replaced.
func (s *Store) Replace(ctx context.Context, id string, payload content.Payload) (Entry, content.Payload, error) {
	id, err := ParseID(id)
	if err != nil {
		return Entry{}, nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("encode payload: %w", err)
	}

	var oldRaw []byte
	entry := Entry{ID: id, Payload: payload}
	err = s.db.QueryRow(ctx,
		`UPDATE contents c SET payload = $2, updated_at = now()
		 FROM (SELECT payload FROM contents WHERE id = $1 FOR UPDATE) old
		 WHERE c.id = $1
		 RETURNING old.payload, c.created_at, c.updated_at`,
		id, raw,
	).Scan(&oldRaw, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, nil, ErrNotFound
		}
		return Entry{}, nil, fmt.Errorf("update content %s: %w", id, err)
	}

	old, err := content.DecodePayload(oldRaw)
	if err != nil {
		old = content.Payload{}
	}
	return entry, old, nil
}

// Delete removes an entry and returns the payload it held.
func (s *Store) Delete(ctx context.Context, id string) (content.Payload, error) {
	id, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = s.db.QueryRow(ctx,
		`DELETE FROM contents WHERE id = $1 RETURNING payload`, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete content %s: %w", id, err)
	}

	payload, err := content.DecodePayload(raw)
	if err != nil {
		return content.Payload{}, nil
	}
	return payload, nil
}
