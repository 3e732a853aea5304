package httputil

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
)

const cspHeader = "Content-Security-Policy"

// Origin returns scheme://host of an absolute http(s) URL, or "".
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return strings.ToLower(u.Scheme) + "://" + u.Host
	}
	return ""
}

// AllowFrameSource adds the origin of frameURL to the frame-src directive of
// the policy already set on w. It must be called before the header is
// written. Policies without a frame-src directive are left alone.
func AllowFrameSource(w http.ResponseWriter, frameURL string) {
	origin := Origin(frameURL)
	csp := w.Header().Get(cspHeader)
	if origin == "" || csp == "" {
		return
	}

	var directives []string
	changed := false
	for _, d := range strings.Split(csp, ";") {
		fields := strings.Fields(d)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "frame-src" && !slices.Contains(fields[1:], origin) {
			fields = append(fields, origin)
			changed = true
		}
		directives = append(directives, strings.Join(fields, " "))
	}
	if changed {
		w.Header().Set(cspHeader, strings.Join(directives, "; ")+";")
	}
}
