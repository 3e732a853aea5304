package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reelhouse/reelhouse/internal/content"
	"github.com/reelhouse/reelhouse/internal/httputil"
	"github.com/reelhouse/reelhouse/internal/storage"
	"github.com/reelhouse/reelhouse/internal/validate"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	uploadURLExpiry = 15 * time.Minute
	deleteAttempts  = 3
)

type ObjectStorage interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string, contentLength int64, expiry time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

type Handler struct {
	store   *Store
	storage ObjectStorage
	baseURL string
}

func NewHandler(store *Store, s ObjectStorage, baseURL string) *Handler {
	return &Handler{store: store, storage: s, baseURL: baseURL}
}

type entryResponse struct {
	Entry
	WatchURL string `json:"watchUrl"`
}

type uploadRequest struct {
	Filename      string `json:"filename"`
	ContentType   string `json:"contentType"`
	ContentLength int64  `json:"contentLength"`
}

type uploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	Ref       string `json:"ref"`
	ExpiresAt string `json:"expiresAt"`
}

func (h *Handler) respond(e Entry) entryResponse {
	return entryResponse{Entry: e, WatchURL: h.baseURL + "/watch/" + e.ID}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("catalog: list failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not list contents")
		return
	}

	items := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, h.respond(e))
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.respond(entry))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}

	entry, err := h.store.Create(r.Context(), payload)
	if err != nil {
		slog.Error("catalog: create failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not create content")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, h.respond(entry))
}

func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}

	entry, old, err := h.store.Replace(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	kept := make(map[string]struct{})
	for _, key := range storage.CollectRefs(map[string]any(payload)) {
		kept[key] = struct{}{}
	}
	var orphaned []string
	for _, key := range storage.CollectRefs(map[string]any(old)) {
		if _, ok := kept[key]; !ok {
			orphaned = append(orphaned, key)
		}
	}
	h.deleteObjects(entry.ID, orphaned)

	httputil.WriteJSON(w, http.StatusOK, h.respond(entry))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	payload, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.deleteObjects(id, storage.CollectRefs(map[string]any(payload)))
	w.WriteHeader(http.StatusNoContent)
}

// Upload presigns a PUT for a media file belonging to an entry. The returned
// ref goes into the payload wherever a URL is expected.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "storage not configured")
		return
	}

	entry, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validate.Filename(req.Filename); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if !strings.HasPrefix(req.ContentType, "video/") && !strings.HasPrefix(req.ContentType, "image/") {
		httputil.WriteError(w, http.StatusBadRequest, "contentType must be a video or image type")
		return
	}

	key := objectPrefix(entry.ID) + uuid.NewString()[:8] + "-" + req.Filename
	uploadURL, err := h.storage.GenerateUploadURL(r.Context(), key, req.ContentType, req.ContentLength, uploadURLExpiry)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		slog.Error("catalog: presign upload failed", "content_id", entry.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not generate upload URL")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, uploadResponse{
		UploadURL: uploadURL,
		Ref:       storage.Ref(key),
		ExpiresAt: time.Now().Add(uploadURLExpiry).UTC().Format(time.RFC3339),
	})
}

// objectPrefix is where uploads for an entry are stored. Only keys under it
// belong to the entry.
func objectPrefix(contentID string) string {
	return "contents/" + contentID + "/"
}

// deleteObjects removes the entry's own media. Refs to other entries' uploads
// or to objects outside contents/ are shared and left in place.
func (h *Handler) deleteObjects(contentID string, refs []string) {
	prefix := objectPrefix(contentID)
	var keys []string
	for _, key := range refs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	if h.storage == nil || len(keys) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		for _, key := range keys {
			if err := storage.DeleteWithRetry(ctx, h.storage, key, deleteAttempts); err != nil {
				slog.Error("catalog: media cleanup failed", "content_id", contentID, "key", key, "error", err)
			}
		}
	}()
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "content not found")
	default:
		slog.Error("catalog: store failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

func readPayload(w http.ResponseWriter, r *http.Request) (content.Payload, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validate.MaxPayloadBytes))
	if err != nil {
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return nil, false
	}
	payload, err := content.DecodePayload(body)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "payload must be a JSON object")
		return nil, false
	}
	if msg := validate.Payload(payload); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return nil, false
	}
	return payload, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
