package content

// KindTag is the closed set of content kinds the player dispatches on.
type KindTag int

const (
	KindUnknown KindTag = iota
	KindMovie
	KindWebSeries
	KindShow
)

// Kind is the content kind resolved once per payload. Unknown kinds keep a
// display label, which is where legacy "type" aliases end up.
type Kind struct {
	Tag   KindTag
	label string
}

// ParseKind builds the kind from the primary content_type and the legacy
// type field. Only content_type selects Movie, WebSeries or Show; the legacy
// field can relabel an unknown kind but never changes dispatch.
func ParseKind(contentType, legacyType string) Kind {
	switch contentType {
	case "Movie":
		return Kind{Tag: KindMovie, label: "Movie"}
	case "Web Series":
		return Kind{Tag: KindWebSeries, label: "Web Series"}
	case "Show":
		return Kind{Tag: KindShow, label: "TV Show"}
	}

	switch legacyType {
	case "series":
		return Kind{Tag: KindUnknown, label: "Web Series"}
	case "show":
		return Kind{Tag: KindUnknown, label: "TV Show"}
	}

	switch {
	case contentType != "":
		return Kind{Tag: KindUnknown, label: contentType}
	case legacyType != "":
		return Kind{Tag: KindUnknown, label: legacyType}
	}
	return Kind{Tag: KindUnknown, label: "Content"}
}

// Label is the human readable content type shown in the type badge and the
// empty-state notice.
func (k Kind) Label() string {
	if k.label == "" {
		return "Content"
	}
	return k.label
}

// Slug is a stable lowercase identifier used for metrics and JSON.
func (k Kind) Slug() string {
	switch k.Tag {
	case KindMovie:
		return "movie"
	case KindWebSeries:
		return "web_series"
	case KindShow:
		return "show"
	default:
		return "unknown"
	}
}

func (k Kind) String() string { return k.Label() }
