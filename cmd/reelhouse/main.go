package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/reelhouse/reelhouse/internal/auth"
	"github.com/reelhouse/reelhouse/internal/database"
	"github.com/reelhouse/reelhouse/internal/geoip"
	"github.com/reelhouse/reelhouse/internal/server"
	"github.com/reelhouse/reelhouse/internal/storage"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	port := getEnv("PORT", "8080")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fatal("DATABASE_URL is required")
	}

	stateSecret := os.Getenv("STATE_SECRET")
	if stateSecret == "" {
		fatal("STATE_SECRET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, databaseURL)
	if err != nil {
		fatal("database connection failed", "error", err)
	}
	defer db.Close()

	if err := db.Migrate(databaseURL); err != nil {
		fatal("database migration failed", "error", err)
	}
	slog.Info("database migrations applied")

	if adminKey := os.Getenv("ADMIN_API_KEY"); adminKey != "" {
		if err := auth.EnsureAPIKey(ctx, db.Pool, "admin", adminKey); err != nil {
			fatal("admin API key seed failed", "error", err)
		}
	}

	var objectStorage server.ObjectStorage
	storageEndpoint := os.Getenv("S3_PUBLIC_ENDPOINT")
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		store, err := storage.New(ctx, storage.Config{
			Endpoint:       endpoint,
			PublicEndpoint: storageEndpoint,
			Bucket:         getEnv("S3_BUCKET", "reelhouse"),
			AccessKey:      os.Getenv("S3_ACCESS_KEY"),
			SecretKey:      os.Getenv("S3_SECRET_KEY"),
			Region:         getEnv("S3_REGION", "eu-central-1"),
			MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 2*1024*1024*1024),
		})
		if err != nil {
			fatal("storage initialization failed", "error", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			fatal("storage bucket check failed", "error", err)
		}
		if storageEndpoint == "" {
			storageEndpoint = endpoint
		}
		objectStorage = store
		slog.Info("storage bucket ready")
	} else {
		slog.Info("S3_ENDPOINT not set, storage references disabled")
	}

	geo := geoip.Open(os.Getenv("GEOIP_DB_PATH"))
	defer geo.Close()

	var webFS fs.FS
	if dir := os.Getenv("WEB_DIR"); dir != "" {
		webFS = os.DirFS(dir)
		slog.Info("serving frontend", "dir", dir)
	}

	srv := server.New(server.Config{
		DB:              db.Pool,
		Pinger:          db,
		Storage:         objectStorage,
		GeoIP:           geo,
		WebFS:           webFS,
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		AppName:         getEnv("APP_NAME", "Reelhouse"),
		StateSecret:     stateSecret,
		StateTTL:        time.Duration(getEnvInt64("STATE_TTL_HOURS", 24)) * time.Hour,
		StorageEndpoint: storageEndpoint,
		FrameAncestors:  os.Getenv("FRAME_ANCESTORS"),
		ShowAds:         getEnvBool("SHOW_ADS", false),
		EnableDocs:      getEnvBool("API_DOCS_ENABLED", false),
	})

	maintenanceCtx, maintenanceCancel := context.WithCancel(context.Background())
	defer maintenanceCancel()
	srv.RunMaintenance(maintenanceCtx)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("reelhouse listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server failed", "error", err)
		}
	}()

	<-shutdownCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fatal("shutdown failed", "error", err)
	}
	slog.Info("shutdown complete")
}

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
