package embed

// Source is one <source> entry of the native player.
type Source struct {
	URL  string
	Type string
}

// nativeTypes are offered in order; the browser picks the first it can play.
var nativeTypes = []string{"video/mp4", "video/webm", "video/ogg"}

// NativeSources offers url under every declared media type.
func NativeSources(url string) []Source {
	if url == "" {
		return nil
	}
	sources := make([]Source, 0, len(nativeTypes))
	for _, t := range nativeTypes {
		sources = append(sources, Source{URL: url, Type: t})
	}
	return sources
}
