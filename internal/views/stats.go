package views

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reelhouse/reelhouse/internal/database"
	"github.com/reelhouse/reelhouse/internal/httputil"
)

// Stats summarises the recorded views of one entry.
type Stats struct {
	ContentID      string         `json:"contentId"`
	TotalViews     int64          `json:"totalViews"`
	UniqueViewers  int64          `json:"uniqueViewers"`
	ByState        map[string]int `json:"byState"`
	ByCountry      map[string]int `json:"byCountry"`
	TrailerOpeners int64          `json:"trailerOpeners"`
}

func LoadStats(ctx context.Context, db database.DBTX, contentID string) (Stats, error) {
	s := Stats{
		ContentID: contentID,
		ByState:   make(map[string]int),
		ByCountry: make(map[string]int),
	}

	err := db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT viewer_hash),
		        COUNT(DISTINCT viewer_hash) FILTER (WHERE state = 'show_trailer')
		 FROM player_views WHERE content_id = $1`,
		contentID,
	).Scan(&s.TotalViews, &s.UniqueViewers, &s.TrailerOpeners)
	if err != nil {
		return Stats{}, fmt.Errorf("count views: %w", err)
	}

	if err := groupCounts(ctx, db, `SELECT state, COUNT(*) FROM player_views
		 WHERE content_id = $1 GROUP BY state`, contentID, s.ByState); err != nil {
		return Stats{}, fmt.Errorf("views by state: %w", err)
	}
	if err := groupCounts(ctx, db, `SELECT country, COUNT(*) FROM player_views
		 WHERE content_id = $1 AND country <> '' GROUP BY country`, contentID, s.ByCountry); err != nil {
		return Stats{}, fmt.Errorf("views by country: %w", err)
	}
	return s, nil
}

func groupCounts(ctx context.Context, db database.DBTX, query, contentID string, into map[string]int) error {
	rows, err := db.Query(ctx, query, contentID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}

// StatsHandler serves GET /api/contents/{id}/views. parseID normalises the
// path segment and rejects malformed ids.
func StatsHandler(db database.DBTX, parseID func(string) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, http.StatusNotFound, "content not found")
			return
		}
		stats, err := LoadStats(r.Context(), db, id)
		if err != nil {
			slog.Error("views: load stats failed", "content_id", id, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "could not load view stats")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, stats)
	}
}
