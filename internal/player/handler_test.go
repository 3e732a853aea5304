package player

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/reelhouse/reelhouse/internal/catalog"
	"github.com/reelhouse/reelhouse/internal/content"
	"github.com/reelhouse/reelhouse/internal/httputil"
	"github.com/reelhouse/reelhouse/internal/navstate"
	"github.com/reelhouse/reelhouse/internal/views"
)

const (
	testContentID = "6f1c2a9e-3b7d-4c55-9a21-0d8e4f7b1c32"
	testSecret    = "test-state-secret"
	testBaseURL   = "https://reelhouse.test"
)

type fakeSource map[string]content.Payload

func (f fakeSource) Payload(ctx context.Context, id string) (content.Payload, error) {
	p, ok := f[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

type failingSource struct{}

func (failingSource) Payload(ctx context.Context, id string) (content.Payload, error) {
	return nil, errors.New("connection reset")
}

type fakeStorage struct{}

func (fakeStorage) GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://media.reelhouse.test/" + key + "?X-Amz-Signature=abc", nil
}

type chanRecorder chan views.Visit

func (c chanRecorder) Record(ctx context.Context, v views.Visit) error {
	c <- v
	return nil
}

func movie(videoURL, trailerURL string) content.Payload {
	m := map[string]any{"duration": json.Number("128")}
	if videoURL != "" {
		m["video_url"] = videoURL
	}
	if trailerURL != "" {
		m["trailer_url"] = trailerURL
	}
	return content.Payload{
		"content_type": "Movie",
		"title":        "Heat",
		"rating":       "R",
		"year":         json.Number("1995"),
		"image":        "https://img.example.com/heat.jpg",
		"movie":        m,
	}
}

func newTestHandler(src ContentSource, rec ViewRecorder) *Handler {
	return NewHandler(src, fakeStorage{}, rec, Config{
		BaseURL:     testBaseURL,
		AppName:     "Reelhouse",
		StateSecret: testSecret,
	})
}

func newTestRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/watch/{id}", h.WatchPage)
	r.Get("/embed/{id}", h.EmbedPage)
	r.Get("/player", h.StatePage)
	r.Get("/api/contents/{id}/oembed", h.OEmbed)
	r.Get("/api/contents/{id}/display", h.Display)
	r.Post("/api/player/resolve", h.Resolve)
	r.Post("/api/player/state", h.CreateState)
	return r
}

func get(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(httputil.WithNonce(req.Context(), "test-nonce"))
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)
	return rec
}

func post(t *testing.T, h *Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)
	return rec
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
}

func assertNotContains(t *testing.T, body string, unwanted ...string) {
	t.Helper()
	for _, s := range unwanted {
		if strings.Contains(body, s) {
			t.Errorf("expected body not to contain %q", s)
		}
	}
}

func TestWatchPage_NativeVideo(t *testing.T) {
	h := newTestHandler(fakeSource{testContentID: movie("https://example.com/video.mp4", "")}, nil)
	rec := get(t, h, "/watch/"+testContentID)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	assertContains(t, body,
		`data-state="show_native_main"`,
		`<video controls preload="metadata" poster="https://img.example.com/heat.jpg">`,
		`<source src="https://example.com/video.mp4" type="video/mp4">`,
		`<source src="https://example.com/video.mp4" type="video/webm">`,
		`<source src="https://example.com/video.mp4" type="video/ogg">`,
		`<h1>Heat</h1>`,
		`<span class="type-badge">Movie</span>`,
		`<span class="rating-badge">R</span>`,
		`<span class="score">R</span>`,
		`1995`,
		`128 min`,
	)
	assertNotContains(t, body, "Watch Trailer", "<iframe", "Advertisement Space")
}

func TestWatchPage_EmbeddedWithTrailerControl(t *testing.T) {
	h := newTestHandler(fakeSource{testContentID: movie("https://youtu.be/abc123?t=5", "https://vimeo.com/12345")}, nil)
	body := get(t, h, "/watch/"+testContentID).Body.String()

	assertContains(t, body,
		`data-state="show_embedded_main"`,
		`src="https://www.youtube.com/embed/abc123?autoplay=0`,
		`title="Heat"`,
		`allowfullscreen`,
		`<a class="watch-trailer" href="/watch/`+testContentID+`?trailer=1">Watch Trailer</a>`,
	)
	assertNotContains(t, body, "Back to Content")
}

func TestWatchPage_TrailerToggle(t *testing.T) {
	h := newTestHandler(fakeSource{testContentID: movie("https://youtu.be/abc123", "https://vimeo.com/12345")}, nil)
	body := get(t, h, "/watch/"+testContentID+"?trailer=1").Body.String()

	assertContains(t, body,
		`data-state="show_trailer"`,
		`src="https://player.vimeo.com/video/12345?autoplay=0`,
		`title="Heat - Trailer"`,
		`<a class="back-to-content" href="/watch/`+testContentID+`">Back to Content</a>`,
	)
	assertNotContains(t, body, "Watch Trailer", "youtube.com/embed")
}

func TestWatchPage_TrailerToggleWithoutTrailerIsIgnored(t *testing.T) {
	h := newTestHandler(fakeSource{testContentID: movie("https://youtu.be/abc123", "")}, nil)
	body := get(t, h, "/watch/"+testContentID+"?trailer=1").Body.String()

	assertContains(t, body, `data-state="show_embedded_main"`)
	assertNotContains(t, body, "Back to Content", "Watch Trailer")
}

func TestWatchPage_EmptyState(t *testing.T) {
	h := newTestHandler(fakeSource{testContentID: content.Payload{
		"type":  "series",
		"title": "Untitled",
	}}, nil)
	body := get(t, h, "/watch/"+testContentID).Body.String()

	assertContains(t, body,
		`data-state="empty"`,
		"Video Not Available",
		"No video URL found for this content",
		"Content Type: Web Series",
	)
	assertNotContains(t, body, "<video", "<iframe")
}

func TestWatchPage_WebSeriesEpisodeLine(t *testing.T) {
	h := newTestHandler(fakeSource{testContentID: content.Payload{
		"content_type": "Web Series",
		"title":        "Dark Waters",
		"web_series": map[string]any{
			"seasons": []any{map[string]any{
				"season_number": json.Number("2"),
				"episodes":      []any{map[string]any{"video_url": "https://www.dailymotion.com/video/x7tgad0"}},
			}},
		},
	}}, nil)
	body := get(t, h, "/watch/"+testContentID).Body.String()

	assertContains(t, body,
		"Season 2 • Episode 1",
		`src="https://www.dailymotion.com/embed/video/x7tgad0?autoplay=0`,
	)
}

func TestWatchPage_EscapesPayloadText(t *testing.T) {
	p := movie("https://example.com/video.mp4", "")
	p["title"] = `<script>alert("x")</script>`
	h := newTestHandler(fakeSource{testContentID: p}, nil)
	body := get(t, h, "/watch/"+testContentID).Body.String()

	assertNotContains(t, body, `<script>alert`)
	assertContains(t, body, `&lt;script&gt;`)
}

func TestWatchPage_UnsafeURLIsNeutralised(t *testing.T) {
	h := newTestHandler(fakeSource{testContentID: movie("javascript:alert(1)", "")}, nil)
	body := get(t, h, "/watch/"+testContentID).Body.String()

	assertNotContains(t, body, `src="javascript:`)
	assertContains(t, body, "#ZgotmplZ")
}

func TestWatchPage_NonceAndBackButton(t *testing.T) {
	h := newTestHandler(fakeSource{testContentID: movie("", "")}, nil)
	body := get(t, h, "/watch/"+testContentID).Body.String()

	assertContains(t, body,
		`<style nonce="test-nonce">`,
		`<script nonce="test-nonce">`,
		`id="back-button" href="/"`,
		`window.history.back()`,
		`<a class="brand" href="/">Reelhouse</a>`,
	)
}

func TestWatchPage_ShowAds(t *testing.T) {
	h := NewHandler(fakeSource{testContentID: movie("", "")}, nil, nil, Config{StateSecret: testSecret, ShowAds: true})
	body := get(t, h, "/watch/"+testContentID).Body.String()

	assertContains(t, body, "Advertisement Space", "Full Width Banner - 1200x400")
}

func TestWatchPage_NotFound(t *testing.T) {
	h := newTestHandler(fakeSource{}, nil)

	for _, path := range []string{"/watch/" + testContentID, "/watch/not-a-uuid"} {
		rec := get(t, h, path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
		assertContains(t, rec.Body.String(), "Content not found")
	}
}

func TestWatchPage_SourceFailure(t *testing.T) {
	h := newTestHandler(failingSource{}, nil)
	rec := get(t, h, "/watch/"+testContentID)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestWatchPage_SignsStorageRefs(t *testing.T) {
	p := movie("s3://contents/heat.mp4", "")
	p["image"] = "s3://contents/heat.jpg"
	h := newTestHandler(fakeSource{testContentID: p}, nil)
	body := get(t, h, "/watch/"+testContentID).Body.String()

	assertContains(t, body,
		`data-state="show_native_main"`,
		`<source src="https://media.reelhouse.test/contents/heat.mp4?X-Amz-Signature=abc" type="video/mp4">`,
		`poster="https://media.reelhouse.test/contents/heat.jpg?X-Amz-Signature=abc"`,
	)
	assertNotContains(t, body, "s3://")
}

// embedResolutions reads the embed resolution counter for provider from the
// default registry.
func embedResolutions(t *testing.T, provider string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "reelhouse_embed_resolution_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "provider" && lp.GetValue() == provider {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestWatchPage_RecordsEachResolutionOnce(t *testing.T) {
	h := newTestHandler(fakeSource{testContentID: movie("s3://contents/heat.mp4", "https://youtu.be/abc")}, nil)

	noneBefore := embedResolutions(t, "none")
	youTubeBefore := embedResolutions(t, "youtube")

	if rec := get(t, h, "/watch/"+testContentID); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if got := embedResolutions(t, "none") - noneBefore; got != 1 {
		t.Errorf("expected 1 native resolution, got %v", got)
	}
	if got := embedResolutions(t, "youtube") - youTubeBefore; got != 1 {
		t.Errorf("expected 1 youtube resolution, got %v", got)
	}
}

func TestWatchPage_StorageRefWithoutStorageIsEmpty(t *testing.T) {
	h := NewHandler(fakeSource{testContentID: movie("s3://contents/heat.mp4", "")}, nil, nil, Config{StateSecret: testSecret})
	body := get(t, h, "/watch/"+testContentID).Body.String()

	assertContains(t, body, `data-state="empty"`)
}

func TestWatchPage_RecordsView(t *testing.T) {
	rec := make(chanRecorder, 1)
	h := newTestHandler(fakeSource{testContentID: movie("https://youtu.be/abc", "")}, rec)

	req := httptest.NewRequest(http.MethodGet, "/watch/"+testContentID, nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	req.Header.Set("User-Agent", "test-agent")
	newTestRouter(h).ServeHTTP(httptest.NewRecorder(), req)

	select {
	case v := <-rec:
		want := views.Visit{ContentID: testContentID, State: "show_embedded_main", IP: "198.51.100.7", UserAgent: "test-agent"}
		if v != want {
			t.Errorf("recorded %+v, want %+v", v, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for view to be recorded")
	}
}

func TestWatchPage_WithCatalogStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()
	now := time.Now()

	mock.ExpectQuery(`SELECT payload, created_at, updated_at FROM contents`).
		WithArgs(testContentID).
		WillReturnRows(pgxmock.NewRows([]string{"payload", "created_at", "updated_at"}).
			AddRow([]byte(`{"content_type":"Show","videoUrl":"https://vimeo.com/777","show":{"episode_id_list":[1,2],"video_url":"https://ignored.example.com/x.mp4"}}`), now, now))

	h := newTestHandler(catalog.NewStore(mock), nil)
	body := get(t, h, "/watch/"+testContentID).Body.String()

	assertContains(t, body,
		`data-state="show_embedded_main"`,
		`src="https://player.vimeo.com/video/777?autoplay=0`,
		`title="Video Player"`,
		`<span class="type-badge">TV Show</span>`,
	)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEmbedPage(t *testing.T) {
	h := newTestHandler(fakeSource{testContentID: movie("https://youtu.be/abc123", "")}, nil)
	rec := get(t, h, "/embed/"+testContentID)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body,
		`src="https://www.youtube.com/embed/abc123?autoplay=0`,
		`href="`+testBaseURL+`/watch/`+testContentID+`"`,
		"Watch on Reelhouse",
	)
	assertNotContains(t, body, "site-header", "Advertisement Space")
}

func TestStatePage_ValidToken(t *testing.T) {
	token, err := navstate.Encode(testSecret, movie("https://example.com/video.webm", ""), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	h := newTestHandler(fakeSource{}, nil)
	rec := get(t, h, "/player?state="+token)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	assertContains(t, rec.Body.String(),
		`data-state="show_native_main"`,
		`<source src="https://example.com/video.webm" type="video/webm">`,
		`128 min`,
	)
}

func TestStatePage_TrailerLinkKeepsState(t *testing.T) {
	token, err := navstate.Encode(testSecret, movie("https://youtu.be/a", "https://youtu.be/b"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	h := newTestHandler(fakeSource{}, nil)
	body := get(t, h, "/player?state="+token).Body.String()

	assertContains(t, body, `href="/player?state=`+token+`&amp;trailer=1"`)
}

func TestStatePage_InvalidOrMissingTokenRendersEmpty(t *testing.T) {
	forged, err := navstate.Encode("other-secret", movie("https://youtu.be/a", ""), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	h := newTestHandler(fakeSource{}, nil)

	for _, path := range []string{"/player", "/player?state=garbage", "/player?state=" + forged} {
		rec := get(t, h, path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
		assertContains(t, rec.Body.String(), `data-state="empty"`, "Content Type: Content")
	}
}

func TestOEmbed(t *testing.T) {
	h := newTestHandler(fakeSource{testContentID: movie("https://youtu.be/abc", "")}, nil)
	rec := get(t, h, "/api/contents/"+testContentID+"/oembed")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp oEmbedResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Type != "video" || resp.Title != "Heat" || resp.ThumbnailURL != "https://img.example.com/heat.jpg" {
		t.Errorf("unexpected oEmbed response %+v", resp)
	}
	if !strings.Contains(resp.HTML, `src="`+testBaseURL+`/embed/`+testContentID+`"`) {
		t.Errorf("expected iframe pointing at embed page, got %q", resp.HTML)
	}
}

func TestOEmbed_NotFound(t *testing.T) {
	h := newTestHandler(fakeSource{}, nil)
	rec := get(t, h, "/api/contents/"+testContentID+"/oembed")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestDisplay(t *testing.T) {
	h := newTestHandler(fakeSource{testContentID: movie("https://youtu.be/abc", "https://youtu.be/t")}, nil)
	rec := get(t, h, "/api/contents/"+testContentID+"/display?trailer=1")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Kind       string `json:"kind"`
		TypeLabel  string `json:"typeLabel"`
		Duration   string `json:"duration"`
		Embeddable bool   `json:"embeddable"`
		State      string `json:"state"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != "movie" || resp.TypeLabel != "Movie" || resp.Duration != "128 min" || !resp.Embeddable || resp.State != "show_trailer" {
		t.Errorf("unexpected display response %+v", resp)
	}
}

func TestResolve(t *testing.T) {
	h := newTestHandler(fakeSource{}, nil)
	rec := post(t, h, "/api/player/resolve", `{"videoUrl":"https://example.com/video.mp4","type":"show"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		VideoURL  string `json:"videoUrl"`
		TypeLabel string `json:"typeLabel"`
		State     string `json:"state"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.VideoURL != "https://example.com/video.mp4" || resp.TypeLabel != "TV Show" || resp.State != "show_native_main" {
		t.Errorf("unexpected resolve response %+v", resp)
	}
}

func TestResolve_RejectsNonObject(t *testing.T) {
	h := newTestHandler(fakeSource{}, nil)
	rec := post(t, h, "/api/player/resolve", `"just a string"`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCreateState_TokenRoundTrips(t *testing.T) {
	h := newTestHandler(fakeSource{}, nil)
	rec := post(t, h, "/api/player/state", `{"content_type":"Movie","title":"Heat","movie":{"video_url":"https://youtu.be/abc"}}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp stateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.PlayerURL, testBaseURL+"/player?state=") {
		t.Errorf("unexpected player URL %q", resp.PlayerURL)
	}
	p, err := navstate.Decode(testSecret, resp.Token)
	if err != nil {
		t.Fatalf("token did not decode: %v", err)
	}
	if title, _ := p.String("title"); title != "Heat" {
		t.Errorf("expected title Heat in token, got %q", title)
	}
}

func TestCreateState_RejectsInvalidURL(t *testing.T) {
	h := newTestHandler(fakeSource{}, nil)
	rec := post(t, h, "/api/player/state", `{"movie":{"video_url":"ftp://example.com/a.mp4"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
