// Package views records player renders for catalog entries.
package views

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/mssola/useragent"
	"github.com/reelhouse/reelhouse/internal/database"
)

// Visit is one rendered player page.
type Visit struct {
	ContentID string
	State     string
	IP        string
	UserAgent string
}

// CountryResolver maps an address to an ISO country code, or "".
type CountryResolver interface {
	Country(addr string) string
}

type Recorder struct {
	db  database.DBTX
	geo CountryResolver
}

func NewRecorder(db database.DBTX, geo CountryResolver) *Recorder {
	return &Recorder{db: db, geo: geo}
}

// Record stores v unless the user agent is a crawler.
func (r *Recorder) Record(ctx context.Context, v Visit) error {
	client := classify(v.UserAgent)
	if client.bot {
		return nil
	}

	var country string
	if r.geo != nil {
		country = r.geo.Country(v.IP)
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO player_views (content_id, viewer_hash, country, browser, device, state)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ContentID, ViewerHash(v.IP, v.UserAgent), country, client.browser, client.device, v.State,
	)
	if err != nil {
		return fmt.Errorf("record view for %s: %w", v.ContentID, err)
	}
	return nil
}

// ViewerHash identifies a viewer without storing the address.
func ViewerHash(ip, userAgent string) string {
	h := sha256.Sum256([]byte(ip + "|" + userAgent))
	return fmt.Sprintf("%x", h[:8])
}

type clientInfo struct {
	browser string
	device  string
	bot     bool
}

func classify(userAgent string) clientInfo {
	if strings.TrimSpace(userAgent) == "" {
		return clientInfo{browser: "unknown", device: "unknown"}
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return clientInfo{bot: true}
	}

	name, _ := ua.Browser()
	if name == "" {
		name = "unknown"
	}
	device := "desktop"
	switch {
	case strings.Contains(userAgent, "iPad") || strings.Contains(userAgent, "Tablet"):
		device = "tablet"
	case ua.Mobile():
		device = "mobile"
	}
	return clientInfo{browser: name, device: device}
}
