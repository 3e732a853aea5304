package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/reelhouse/reelhouse/internal/httputil"
)

// playerFrameSources are the providers the player frames. Pages add the
// origin of any other frame they render.
var playerFrameSources = []string{
	"'self'",
	"https://www.youtube.com",
	"https://www.youtube-nocookie.com",
	"https://player.vimeo.com",
	"https://www.dailymotion.com",
}

type SecurityConfig struct {
	BaseURL         string
	StorageEndpoint string
	// FrameAncestors limits who may frame /embed/ pages. Empty allows any
	// site.
	FrameAncestors string
}

func securityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	strictTransport := strings.HasPrefix(cfg.BaseURL, "https://")

	storageSuffix := ""
	if cfg.StorageEndpoint != "" {
		storageSuffix = " " + cfg.StorageEndpoint
	}
	frameSrc := strings.Join(playerFrameSources, " ") + storageSuffix

	embedAncestors := "*"
	if cfg.FrameAncestors != "" {
		embedAncestors = "'self' " + cfg.FrameAncestors
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce := httputil.NewNonce()
			ctx := httputil.WithNonce(r.Context(), nonce)

			ancestors := "'self'"
			if strings.HasPrefix(r.URL.Path, "/embed/") {
				ancestors = embedAncestors
			} else {
				w.Header().Set("X-Frame-Options", "SAMEORIGIN")
			}

			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Permissions-Policy", "autoplay=*, fullscreen=*, picture-in-picture=*, encrypted-media=*, camera=(), microphone=(), geolocation=()")

			csp := fmt.Sprintf(
				"default-src 'self'; img-src 'self' data: https:%s; media-src 'self' blob: https:%s; script-src 'self' 'nonce-%s'; style-src 'self' 'nonce-%s'; connect-src 'self'%s; frame-src %s; frame-ancestors %s;",
				storageSuffix, storageSuffix, nonce, nonce, storageSuffix, frameSrc, ancestors,
			)
			w.Header().Set("Content-Security-Policy", csp)

			if strictTransport {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
