package content

import (
	"fmt"

	"github.com/reelhouse/reelhouse/internal/embed"
)

// DisplayModel is everything the player page needs, resolved from a payload.
// Empty strings mean "not available" and suppress the matching UI element.
type DisplayModel struct {
	Kind          Kind         `json:"-"`
	KindSlug      string       `json:"kind"`
	TypeLabel     string       `json:"typeLabel"`
	Title         string       `json:"title"`
	VideoURL      string       `json:"videoUrl"`
	TrailerURL    string       `json:"trailerUrl,omitempty"`
	PosterURL     string       `json:"posterUrl,omitempty"`
	SeasonEpisode string       `json:"seasonEpisode,omitempty"`
	Duration      string       `json:"duration,omitempty"`
	Rating        string       `json:"rating,omitempty"`
	Score         string       `json:"score,omitempty"`
	Year          string       `json:"year,omitempty"`
	Embed         embed.Result `json:"embed"`
	TrailerEmbed  embed.Result `json:"trailerEmbed"`
	Embeddable    bool         `json:"embeddable"`
}

// Normalize resolves a payload into a DisplayModel. It never fails: every
// field falls back through its alternatives and ends at a literal default.
func Normalize(p Payload) DisplayModel {
	contentType, _ := p.Text("content_type")
	legacyType, _ := p.Text("type")
	kind := ParseKind(contentType, legacyType)

	m := DisplayModel{
		Kind:          kind,
		KindSlug:      kind.Slug(),
		TypeLabel:     kind.Label(),
		SeasonEpisode: seasonEpisode(p, kind),
		Duration:      duration(p, kind),
	}
	m.Title, _ = p.Text("title")
	m.Rating, _ = p.FirstText("rating", "rating_type", "movie.rating_type", "show.rating_type")
	m.Score, _ = p.FirstText("score", "rating", "movie.rating", "show.rating")
	m.Year, _ = p.FirstText("year", "release_year", "movie.release_year", "show.release_year")

	poster, _ := p.FirstString("image", "thumbnail_url", "movie.thumbnail_url")
	m.SetMedia(videoURL(p, kind), trailerURL(p, kind), poster)
	return m
}

// SetMedia replaces the playable URLs and recomputes the embed forms. It is
// used after storage references have been signed.
func (m *DisplayModel) SetMedia(video, trailer, poster string) {
	m.VideoURL = video
	m.TrailerURL = trailer
	m.PosterURL = poster
	m.Embed = embed.Resolve(video)
	m.TrailerEmbed = embed.Resolve(trailer)
	m.Embeddable = embed.IsEmbeddable(video, m.Embed.URL)
}

// FrameTitle is the accessible title of the main player frame.
func (m DisplayModel) FrameTitle() string {
	if m.Title == "" {
		return "Video Player"
	}
	return m.Title
}

// TrailerFrameTitle is the accessible title of the trailer frame.
func (m DisplayModel) TrailerFrameTitle() string {
	if m.Title == "" {
		return "Trailer"
	}
	return m.Title + " - Trailer"
}

func videoURL(p Payload, kind Kind) string {
	switch kind.Tag {
	case KindMovie:
		if u, ok := p.String("movie.video_url"); ok {
			return u
		}
	case KindWebSeries:
		if u, ok := p.String("web_series.seasons.0.episodes.0.video_url"); ok {
			return u
		}
	case KindShow:
		// Episodes only gate the lookup; the URL itself is top level.
		if p.Len("show.episode_id_list") > 0 {
			if u, ok := p.FirstString("videoUrl", "video_url"); ok {
				return u
			}
		}
	}

	u, _ := p.FirstString("videoUrl", "video_url", "movie.video_url")
	return u
}

func trailerURL(p Payload, kind Kind) string {
	var u string
	switch kind.Tag {
	case KindMovie:
		u, _ = p.String("movie.trailer_url")
	case KindWebSeries:
		u, _ = p.String("web_series.seasons.0.trailer_url")
	case KindShow:
		u, _ = p.String("show.trailer_url")
	}
	return u
}

func seasonEpisode(p Payload, kind Kind) string {
	if kind.Tag != KindWebSeries || !p.Present("web_series.seasons.0") {
		return ""
	}
	season, ok := p.FirstText("seasonNumber", "web_series.seasons.0.season_number")
	if !ok {
		season = "1"
	}
	episode, ok := p.Text("episodeNumber")
	if !ok {
		episode = "1"
	}
	return fmt.Sprintf("Season %s • Episode %s", season, episode)
}

func duration(p Payload, kind Kind) string {
	if kind.Tag != KindMovie {
		return ""
	}
	d, ok := p.Text("movie.duration")
	if !ok {
		return ""
	}
	return d + " min"
}
