// Package player decides how a content entry is played and renders the
// player page around that decision.
package player

import "github.com/reelhouse/reelhouse/internal/content"

// State is what the player box shows.
type State int

const (
	StateEmpty State = iota
	StateShowTrailer
	StateShowEmbeddedMain
	StateShowNativeMain
)

func (s State) String() string {
	switch s {
	case StateShowTrailer:
		return "show_trailer"
	case StateShowEmbeddedMain:
		return "show_embedded_main"
	case StateShowNativeMain:
		return "show_native_main"
	default:
		return "empty"
	}
}

// Decide picks the state by priority: an open trailer, then the main video
// framed or native, then the empty notice.
func Decide(showTrailer bool, trailerURL, videoURL string, embeddable bool) State {
	switch {
	case showTrailer && trailerURL != "":
		return StateShowTrailer
	case videoURL == "":
		return StateEmpty
	case embeddable:
		return StateShowEmbeddedMain
	default:
		return StateShowNativeMain
	}
}

// View is one render of the player: the display model plus the trailer
// toggle. A View is built fresh for every request.
type View struct {
	Model       content.DisplayModel
	showTrailer bool
}

func NewView(m content.DisplayModel) *View {
	return &View{Model: m}
}

// ToggleTrailer flips the trailer flag. Without a trailer it does nothing.
func (v *View) ToggleTrailer() {
	if v.Model.TrailerURL == "" {
		return
	}
	v.showTrailer = !v.showTrailer
}

// HideTrailer returns to the main video.
func (v *View) HideTrailer() {
	v.showTrailer = false
}

func (v *View) TrailerShown() bool {
	return v.showTrailer
}

func (v *View) State() State {
	return Decide(v.showTrailer, v.Model.TrailerURL, v.Model.VideoURL, v.Model.Embeddable)
}
