package server

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/reelhouse/reelhouse/internal/auth"
	"github.com/reelhouse/reelhouse/internal/catalog"
	"github.com/reelhouse/reelhouse/internal/database"
	"github.com/reelhouse/reelhouse/internal/docs"
	"github.com/reelhouse/reelhouse/internal/httputil"
	"github.com/reelhouse/reelhouse/internal/player"
	"github.com/reelhouse/reelhouse/internal/ratelimit"
	"github.com/reelhouse/reelhouse/internal/validate"
	"github.com/reelhouse/reelhouse/internal/views"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// ObjectStorage is the media bucket as used by the catalog and the player.
type ObjectStorage interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string, contentLength int64, expiry time.Duration) (string, error)
	GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

type Config struct {
	DB              database.DBTX
	Pinger          Pinger
	Storage         ObjectStorage
	GeoIP           views.CountryResolver
	WebFS           fs.FS
	BaseURL         string
	AppName         string
	StateSecret     string
	StateTTL        time.Duration
	StorageEndpoint string
	FrameAncestors  string
	ShowAds         bool
	EnableDocs      bool
}

type Server struct {
	router         chi.Router
	db             database.DBTX
	pinger         Pinger
	catalogHandler *catalog.Handler
	playerHandler  *player.Handler
	webFS          fs.FS
	enableDocs     bool
	limiters       []*ratelimit.Limiter
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:         cfg.BaseURL,
		StorageEndpoint: cfg.StorageEndpoint,
		FrameAncestors:  cfg.FrameAncestors,
	}))

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	s := &Server{router: r, db: cfg.DB, pinger: cfg.Pinger, webFS: cfg.WebFS, enableDocs: cfg.EnableDocs}

	var contents player.ContentSource
	var recorder player.ViewRecorder
	if cfg.DB != nil {
		store := catalog.NewStore(cfg.DB)
		s.catalogHandler = catalog.NewHandler(store, cfg.Storage, baseURL)
		contents = store
		recorder = views.NewRecorder(cfg.DB, cfg.GeoIP)
	}
	s.playerHandler = player.NewHandler(contents, cfg.Storage, recorder, player.Config{
		BaseURL:     baseURL,
		AppName:     cfg.AppName,
		StateSecret: cfg.StateSecret,
		StateTTL:    cfg.StateTTL,
		ShowAds:     cfg.ShowAds,
	})

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RunMaintenance evicts idle rate limiter buckets until ctx is done.
func (s *Server) RunMaintenance(ctx context.Context) {
	for _, l := range s.limiters {
		go l.Run(ctx)
	}
}

func (s *Server) newLimiter(name string, rps float64, burst int) *ratelimit.Limiter {
	l := ratelimit.NewLimiter(name, rps, burst)
	s.limiters = append(s.limiters, l)
	return l
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", s.handleLimits)
	s.router.Handle("/metrics", promhttp.Handler())

	if s.enableDocs {
		s.router.Get("/api/docs", docs.HandleDocs)
		s.router.Get("/api/docs/openapi.yaml", docs.HandleSpec)
	}

	pageLimiter := s.newLimiter("pages", 5, 30)
	playerLimiter := s.newLimiter("player_api", 2, 20)

	s.router.With(pageLimiter.Middleware).Get("/player", s.playerHandler.StatePage)
	s.router.Route("/api/player", func(r chi.Router) {
		r.Use(playerLimiter.Middleware)
		r.Post("/resolve", s.playerHandler.Resolve)
		r.Post("/state", s.playerHandler.CreateState)
	})

	if s.catalogHandler != nil {
		catalogLimiter := s.newLimiter("catalog", 2, 10)
		requireKey := auth.Middleware(s.db)

		s.router.Group(func(r chi.Router) {
			r.Use(pageLimiter.Middleware)
			r.Get("/watch/{id}", s.playerHandler.WatchPage)
			r.Get("/embed/{id}", s.playerHandler.EmbedPage)
		})

		s.router.Route("/api/contents", func(r chi.Router) {
			r.Use(catalogLimiter.Middleware)
			r.Get("/", s.catalogHandler.List)
			r.Get("/{id}", s.catalogHandler.Get)
			r.Get("/{id}/display", s.playerHandler.Display)
			r.Get("/{id}/oembed", s.playerHandler.OEmbed)

			r.Group(func(r chi.Router) {
				r.Use(requireKey)
				r.Post("/", s.catalogHandler.Create)
				r.Put("/{id}", s.catalogHandler.Replace)
				r.Delete("/{id}", s.catalogHandler.Delete)
				r.Post("/{id}/uploads", s.catalogHandler.Upload)
				r.Get("/{id}/views", views.StatsHandler(s.db, catalog.ParseID))
			})
		})

		s.router.Route("/api/keys", func(r chi.Router) {
			r.Use(catalogLimiter.Middleware)
			r.Use(requireKey)
			r.Post("/", auth.GenerateAPIKey(s.db))
			r.Get("/", auth.ListAPIKeys(s.db))
			r.Delete("/{id}", auth.DeleteAPIKey(s.db))
		})
	}

	if s.webFS != nil {
		spa := newSPAFileServer(s.webFS)
		s.router.NotFound(spa.ServeHTTP)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, validate.FieldLimits())
}
