// Package auth guards the catalog write API with bearer API keys.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/reelhouse/reelhouse/internal/database"
	"github.com/reelhouse/reelhouse/internal/httputil"
	"github.com/reelhouse/reelhouse/internal/validate"
)

const (
	apiKeyPrefix    = "rh_"
	apiKeyRandBytes = 32
	maxAPIKeys      = 50
)

type contextKey int

const keyIDKey contextKey = iota

var (
	ErrAPIKeyNotFound = errors.New("API key not found")
	ErrMalformedKey   = errors.New("API key must be rh_ followed by 64 hex characters")
)

type generateAPIKeyRequest struct {
	Name string `json:"name"`
}

type generateAPIKeyResponse struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

type apiKeyItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	CreatedAt  string  `json:"createdAt"`
	LastUsedAt *string `json:"lastUsedAt"`
}

func generateAPIKeyString() (string, error) {
	b := make([]byte, apiKeyRandBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// ValidKeyFormat reports whether key has the shape of a generated key.
func ValidKeyFormat(key string) bool {
	rest, ok := strings.CutPrefix(key, apiKeyPrefix)
	if !ok || len(rest) != apiKeyRandBytes*2 {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}

func GenerateAPIKey(db database.DBTX) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateAPIKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			httputil.WriteError(w, http.StatusBadRequest, "name is required")
			return
		}
		if msg := validate.KeyName(req.Name); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}

		var count int
		if err := db.QueryRow(r.Context(), "SELECT COUNT(*) FROM api_keys").Scan(&count); err != nil {
			slog.Error("auth: count API keys failed", "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to check key count")
			return
		}
		if count >= maxAPIKeys {
			httputil.WriteError(w, http.StatusBadRequest, "maximum number of API keys reached")
			return
		}

		plaintext, err := generateAPIKeyString()
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to generate API key")
			return
		}

		id := uuid.NewString()
		var createdAt time.Time
		err = db.QueryRow(r.Context(),
			"INSERT INTO api_keys (id, name, key_hash) VALUES ($1, $2, $3) RETURNING created_at",
			id, req.Name, HashAPIKey(plaintext),
		).Scan(&createdAt)
		if err != nil {
			slog.Error("auth: insert API key failed", "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to create API key")
			return
		}

		slog.Info("auth: API key created", "key_id", id, "created_by", KeyIDFromContext(r.Context()))
		httputil.WriteJSON(w, http.StatusCreated, generateAPIKeyResponse{
			ID:        id,
			Key:       plaintext,
			Name:      req.Name,
			CreatedAt: createdAt.Format(time.RFC3339),
		})
	}
}

func ListAPIKeys(db database.DBTX) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := db.Query(r.Context(),
			"SELECT id, name, created_at, last_used_at FROM api_keys ORDER BY created_at DESC",
		)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to list API keys")
			return
		}
		defer rows.Close()

		items := make([]apiKeyItem, 0)
		for rows.Next() {
			var item apiKeyItem
			var createdAt time.Time
			var lastUsedAt *time.Time
			if err := rows.Scan(&item.ID, &item.Name, &createdAt, &lastUsedAt); err != nil {
				httputil.WriteError(w, http.StatusInternalServerError, "failed to scan API key")
				return
			}
			item.CreatedAt = createdAt.Format(time.RFC3339)
			if lastUsedAt != nil {
				formatted := lastUsedAt.Format(time.RFC3339)
				item.LastUsedAt = &formatted
			}
			items = append(items, item)
		}

		httputil.WriteJSON(w, http.StatusOK, items)
	}
}

// DeleteAPIKey revokes a key. A caller cannot revoke the key it is using.
func DeleteAPIKey(db database.DBTX) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyID := chi.URLParam(r, "id")
		if _, err := uuid.Parse(keyID); err != nil {
			httputil.WriteError(w, http.StatusNotFound, "API key not found")
			return
		}
		if keyID == KeyIDFromContext(r.Context()) {
			httputil.WriteError(w, http.StatusBadRequest, "cannot revoke the key used for this request")
			return
		}

		result, err := db.Exec(r.Context(), "DELETE FROM api_keys WHERE id = $1", keyID)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to delete API key")
			return
		}
		if result.RowsAffected() == 0 {
			httputil.WriteError(w, http.StatusNotFound, "API key not found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// LookupAPIKey returns the id of the key matching token.
func LookupAPIKey(ctx context.Context, db database.DBTX, token string) (string, error) {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return "", ErrAPIKeyNotFound
	}

	keyHash := HashAPIKey(token)

	var keyID string
	err := db.QueryRow(ctx,
		"SELECT id FROM api_keys WHERE key_hash = $1", keyHash,
	).Scan(&keyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrAPIKeyNotFound
		}
		return "", fmt.Errorf("lookup API key: %w", err)
	}

	go func() {
		if _, err := db.Exec(context.Background(),
			"UPDATE api_keys SET last_used_at = now() WHERE key_hash = $1", keyHash,
		); err != nil {
			slog.Error("auth: update API key last_used_at failed", "error", err)
		}
	}()

	return keyID, nil
}

// EnsureAPIKey registers key under name if it is not stored yet. It seeds
// the first key from the environment.
func EnsureAPIKey(ctx context.Context, db database.DBTX, name, key string) error {
	if !ValidKeyFormat(key) {
		return ErrMalformedKey
	}
	_, err := db.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash) VALUES ($1, $2, $3)
		 ON CONFLICT (key_hash) DO NOTHING`,
		uuid.NewString(), name, HashAPIKey(key),
	)
	if err != nil {
		return fmt.Errorf("seed API key: %w", err)
	}
	return nil
}

// Middleware rejects requests without a known bearer key.
func Middleware(db database.DBTX) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteError(w, http.StatusUnauthorized, "authorization header required")
				return
			}

			token, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found {
				httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			keyID, err := LookupAPIKey(r.Context(), db, token)
			if err != nil {
				if !errors.Is(err, ErrAPIKeyNotFound) {
					slog.Error("auth: API key lookup failed", "error", err)
				}
				httputil.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithKeyID(r.Context(), keyID)))
		})
	}
}

func ContextWithKeyID(ctx context.Context, keyID string) context.Context {
	return context.WithValue(ctx, keyIDKey, keyID)
}

func KeyIDFromContext(ctx context.Context) string {
	keyID, _ := ctx.Value(keyIDKey).(string)
	return keyID
}
