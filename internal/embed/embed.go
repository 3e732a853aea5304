// Package embed turns links to hosted video platforms into player URLs that
// can be framed. Anything it does not recognise is returned unchanged so the
// native player can try it.
package embed

import "strings"

type Provider string

const (
	ProviderNone        Provider = "none"
	ProviderYouTube     Provider = "youtube"
	ProviderVimeo       Provider = "vimeo"
	ProviderDailymotion Provider = "dailymotion"
)

const (
	youTubeParams     = "?autoplay=0&controls=1&rel=0&modestbranding=1&showinfo=0"
	vimeoParams       = "?autoplay=0&title=0&byline=0&portrait=0"
	dailymotionParams = "?autoplay=0&ui-logo=0"
)

// knownHosts are the substrings that mark a URL as embeddable on their own.
var knownHosts = []string{"youtube.com", "youtu.be", "vimeo.com", "dailymotion.com"}

// Result is a resolved URL and the platform that produced it.
type Result struct {
	Provider Provider `json:"provider"`
	URL      string   `json:"url"`
}

// Resolve classifies rawURL and returns its embeddable form.
func Resolve(rawURL string) Result {
	return resolve(rawURL)
}

// ResolveURL is Resolve reduced to the URL.
func ResolveURL(rawURL string) string {
	return resolve(rawURL).URL
}

func resolve(rawURL string) Result {
	if rawURL == "" {
		return Result{Provider: ProviderNone}
	}

	if strings.Contains(rawURL, "youtube.com") || strings.Contains(rawURL, "youtu.be") {
		var id string
		switch {
		case strings.Contains(rawURL, "youtu.be/"):
			_, after, _ := strings.Cut(rawURL, "youtu.be/")
			id = cutAt(after, "?")
		case strings.Contains(rawURL, "youtube.com/watch?v="):
			_, after, _ := strings.Cut(rawURL, "v=")
			id = cutAt(after, "&")
		case strings.Contains(rawURL, "youtube.com/embed/"):
			return Result{Provider: ProviderYouTube, URL: rawURL}
		}
		if id != "" {
			return Result{Provider: ProviderYouTube, URL: "https://www.youtube.com/embed/" + id + youTubeParams}
		}
	}

	if strings.Contains(rawURL, "vimeo.com") {
		last := rawURL[strings.LastIndex(rawURL, "/")+1:]
		if id := cutAt(last, "?"); id != "" {
			return Result{Provider: ProviderVimeo, URL: "https://player.vimeo.com/video/" + id + vimeoParams}
		}
	}

	if strings.Contains(rawURL, "dailymotion.com") {
		if _, after, found := strings.Cut(rawURL, "/video/"); found {
			after = cutAt(after, "/video/")
			if id := cutAt(after, "?"); id != "" {
				return Result{Provider: ProviderDailymotion, URL: "https://www.dailymotion.com/embed/video/" + id + dailymotionParams}
			}
		}
	}

	return Result{Provider: ProviderNone, URL: rawURL}
}

// IsEmbeddable reports whether rawURL should be played in a frame rather
// than a native video element.
func IsEmbeddable(rawURL, resolved string) bool {
	if rawURL == "" {
		return false
	}
	for _, host := range knownHosts {
		if strings.Contains(rawURL, host) {
			return true
		}
	}
	return resolved != rawURL
}

func cutAt(s, sep string) string {
	before, _, _ := strings.Cut(s, sep)
	return before
}
