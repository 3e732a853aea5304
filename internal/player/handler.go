package player

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/reelhouse/reelhouse/internal/catalog"
	"github.com/reelhouse/reelhouse/internal/content"
	"github.com/reelhouse/reelhouse/internal/embed"
	"github.com/reelhouse/reelhouse/internal/httputil"
	"github.com/reelhouse/reelhouse/internal/metrics"
	"github.com/reelhouse/reelhouse/internal/navstate"
	"github.com/reelhouse/reelhouse/internal/storage"
	"github.com/reelhouse/reelhouse/internal/validate"
	"github.com/reelhouse/reelhouse/internal/views"
)

const (
	downloadURLExpiry = 1 * time.Hour
	viewRecordTimeout = 30 * time.Second
	oEmbedWidth       = 640
	oEmbedHeight      = 360
)

// ContentSource loads the payload of a catalog entry.
type ContentSource interface {
	Payload(ctx context.Context, id string) (content.Payload, error)
}

type ObjectStorage interface {
	GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type ViewRecorder interface {
	Record(ctx context.Context, v views.Visit) error
}

type Config struct {
	BaseURL     string
	AppName     string
	StateSecret string
	StateTTL    time.Duration
	ShowAds     bool
}

type Handler struct {
	contents ContentSource
	storage  ObjectStorage
	recorder ViewRecorder
	cfg      Config
}

// NewHandler wires the player routes. storage and recorder may be nil:
// s3:// media then counts as missing and views go unrecorded.
func NewHandler(contents ContentSource, s ObjectStorage, recorder ViewRecorder, cfg Config) *Handler {
	if cfg.AppName == "" {
		cfg.AppName = "Reelhouse"
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = navstate.DefaultTTL
	}
	return &Handler{contents: contents, storage: s, recorder: recorder, cfg: cfg}
}

type displayResponse struct {
	content.DisplayModel
	State string `json:"state"`
}

type stateResponse struct {
	Token     string `json:"token"`
	PlayerURL string `json:"playerUrl"`
	ExpiresAt string `json:"expiresAt"`
}

type oEmbedResponse struct {
	Type         string `json:"type"`
	Version      string `json:"version"`
	Title        string `json:"title"`
	ProviderName string `json:"provider_name"`
	ProviderURL  string `json:"provider_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	HTML         string `json:"html"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

// WatchPage renders the full player page for a catalog entry.
func (h *Handler) WatchPage(w http.ResponseWriter, r *http.Request) {
	id, p, ok := h.loadPage(w, r)
	if !ok {
		return
	}
	v := h.view(r, p)
	h.recordView(r, id, v.State())
	allowFrame(w, v)
	httputil.WriteHTML(w, http.StatusOK, pageTemplate, h.pageData(r, v, h.cfg.BaseURL+"/watch/"+id))
}

// StatePage renders a payload handed over in a signed state token. A
// missing or unreadable token renders the empty player.
func (h *Handler) StatePage(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("state")
	p, err := navstate.Decode(h.cfg.StateSecret, token)
	if err != nil {
		if token != "" {
			slog.Info("player: rejected navigation state", "error", err)
		}
		p = content.Payload{}
	}
	v := h.view(r, p)
	allowFrame(w, v)
	httputil.WriteHTML(w, http.StatusOK, pageTemplate, h.pageData(r, v, ""))
}

// EmbedPage renders the player box alone for third-party frames.
func (h *Handler) EmbedPage(w http.ResponseWriter, r *http.Request) {
	id, p, ok := h.loadPage(w, r)
	if !ok {
		return
	}
	v := h.view(r, p)
	h.recordView(r, id, v.State())
	allowFrame(w, v)
	httputil.WriteHTML(w, http.StatusOK, embedPageTemplate, h.pageData(r, v, h.cfg.BaseURL+"/watch/"+id))
}

func (h *Handler) OEmbed(w http.ResponseWriter, r *http.Request) {
	id, p, err := h.load(r)
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	m := h.model(r.Context(), p)

	embedURL := h.cfg.BaseURL + "/embed/" + id
	iframeHTML := `<iframe src="` + embedURL + `" width="640" height="360" frameborder="0" allowfullscreen></iframe>`

	httputil.WriteJSON(w, http.StatusOK, oEmbedResponse{
		Type:         "video",
		Version:      "1.0",
		Title:        m.FrameTitle(),
		ProviderName: h.cfg.AppName,
		ProviderURL:  h.cfg.BaseURL,
		ThumbnailURL: m.PosterURL,
		HTML:         iframeHTML,
		Width:        oEmbedWidth,
		Height:       oEmbedHeight,
	})
}

// Display returns the display model and render state of a catalog entry.
func (h *Handler) Display(w http.ResponseWriter, r *http.Request) {
	_, p, err := h.load(r)
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	v := h.view(r, p)
	httputil.WriteJSON(w, http.StatusOK, displayResponse{DisplayModel: v.Model, State: v.State().String()})
}

// Resolve normalises a payload posted in the body without storing it.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	p, ok := readPayload(w, r)
	if !ok {
		return
	}
	v := h.view(r, p)
	httputil.WriteJSON(w, http.StatusOK, displayResponse{DisplayModel: v.Model, State: v.State().String()})
}

// CreateState signs a payload into a token for /player?state=.
func (h *Handler) CreateState(w http.ResponseWriter, r *http.Request) {
	p, ok := readPayload(w, r)
	if !ok {
		return
	}
	if msg := validate.Payload(p); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	token, err := navstate.Encode(h.cfg.StateSecret, p, h.cfg.StateTTL)
	if err != nil {
		slog.Error("player: encode state failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not create player state")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, stateResponse{
		Token:     token,
		PlayerURL: h.cfg.BaseURL + "/player?state=" + url.QueryEscape(token),
		ExpiresAt: time.Now().Add(h.cfg.StateTTL).UTC().Format(time.RFC3339),
	})
}

func (h *Handler) load(r *http.Request) (string, content.Payload, error) {
	id, err := catalog.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		return "", nil, err
	}
	p, err := h.contents.Payload(r.Context(), id)
	if err != nil {
		return "", nil, err
	}
	return id, p, nil
}

func (h *Handler) loadPage(w http.ResponseWriter, r *http.Request) (string, content.Payload, bool) {
	id, p, err := h.load(r)
	if err == nil {
		return id, p, true
	}

	status := http.StatusNotFound
	if !isNotFound(err) {
		slog.Error("player: load content failed", "id", chi.URLParam(r, "id"), "error", err)
		status = http.StatusInternalServerError
	}
	httputil.WriteHTML(w, status, notFoundPageTemplate, notFoundPageData{
		Nonce:   httputil.Nonce(r.Context()),
		AppName: h.cfg.AppName,
	})
	return "", nil, false
}

func (h *Handler) writeLoadError(w http.ResponseWriter, err error) {
	if isNotFound(err) {
		httputil.WriteError(w, http.StatusNotFound, "content not found")
		return
	}
	slog.Error("player: load content failed", "error", err)
	httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
}

func isNotFound(err error) bool {
	return errors.Is(err, catalog.ErrNotFound) || errors.Is(err, catalog.ErrInvalidID)
}

// view builds the per-request View and applies the trailer toggle from the
// query string.
func (h *Handler) view(r *http.Request, p content.Payload) *View {
	v := NewView(h.model(r.Context(), p))
	if wantsTrailer(r) {
		v.ToggleTrailer()
	}
	metrics.RecordRenderDecision(v.State().String(), v.Model.KindSlug)
	recordResolutions(v.Model)
	return v
}

// recordResolutions counts the final classification of each playable URL
// once, after storage references have been signed.
func recordResolutions(m content.DisplayModel) {
	if m.VideoURL != "" {
		metrics.RecordEmbedResolution(string(m.Embed.Provider))
	}
	if m.TrailerURL != "" {
		metrics.RecordEmbedResolution(string(m.TrailerEmbed.Provider))
	}
}

func (h *Handler) model(ctx context.Context, p content.Payload) content.DisplayModel {
	m := content.Normalize(p)
	if hasRef(m.VideoURL, m.TrailerURL, m.PosterURL) {
		m.SetMedia(h.sign(ctx, m.VideoURL), h.sign(ctx, m.TrailerURL), h.sign(ctx, m.PosterURL))
	}
	return m
}

// sign swaps an s3:// reference for a presigned download URL. A reference
// that cannot be signed becomes "", which the player treats as absent.
func (h *Handler) sign(ctx context.Context, u string) string {
	key, ok := storage.ParseRef(u)
	if !ok {
		return u
	}
	if h.storage == nil {
		slog.Warn("player: storage reference without storage configured", "key", key)
		return ""
	}
	signed, err := h.storage.GenerateDownloadURL(ctx, key, downloadURLExpiry)
	if err != nil {
		slog.Error("player: presign download failed", "key", key, "error", err)
		return ""
	}
	return signed
}

func hasRef(urls ...string) bool {
	for _, u := range urls {
		if _, ok := storage.ParseRef(u); ok {
			return true
		}
	}
	return false
}

func (h *Handler) pageData(r *http.Request, v *View, watchURL string) pageData {
	state := v.State()
	data := pageData{
		Nonce:    httputil.Nonce(r.Context()),
		AppName:  h.cfg.AppName,
		Model:    v.Model,
		State:    state.String(),
		WatchURL: watchURL,
		ShowAds:  h.cfg.ShowAds,
	}
	if state == StateShowNativeMain {
		data.Sources = embed.NativeSources(v.Model.VideoURL)
	}

	q := r.URL.Query()
	q.Del("trailer")
	data.ContentHref = pathWithQuery(r.URL.Path, q)
	if v.Model.TrailerURL != "" && !v.TrailerShown() {
		q.Set("trailer", "1")
		data.TrailerHref = pathWithQuery(r.URL.Path, q)
	}
	return data
}

func (h *Handler) recordView(r *http.Request, contentID string, state State) {
	if h.recorder == nil {
		return
	}
	visit := views.Visit{
		ContentID: contentID,
		State:     state.String(),
		IP:        httputil.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), viewRecordTimeout)
		defer cancel()
		if err := h.recorder.Record(ctx, visit); err != nil {
			slog.Error("player: record view failed", "content_id", contentID, "error", err)
		}
	}()
}

// allowFrame lets the page CSP load the frame the chosen state renders.
func allowFrame(w http.ResponseWriter, v *View) {
	switch v.State() {
	case StateShowTrailer:
		httputil.AllowFrameSource(w, v.Model.TrailerEmbed.URL)
	case StateShowEmbeddedMain:
		httputil.AllowFrameSource(w, v.Model.Embed.URL)
	}
}

func wantsTrailer(r *http.Request) bool {
	switch r.URL.Query().Get("trailer") {
	case "1", "true":
		return true
	}
	return false
}

func pathWithQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func readPayload(w http.ResponseWriter, r *http.Request) (content.Payload, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validate.MaxPayloadBytes))
	if err != nil {
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return nil, false
	}
	p, err := content.DecodePayload(body)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "payload must be a JSON object")
		return nil, false
	}
	return p, true
}
