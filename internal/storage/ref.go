package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// RefScheme marks payload URLs that point into the media bucket.
const RefScheme = "s3://"

var ErrTooLarge = errors.New("file too large")

// Ref builds the payload reference for key.
func Ref(key string) string {
	return RefScheme + key
}

// ParseRef returns the object key of an s3:// reference.
func ParseRef(u string) (string, bool) {
	key, ok := strings.CutPrefix(u, RefScheme)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// CollectRefs walks a decoded JSON value and returns every storage key it
// references, sorted and deduplicated.
func CollectRefs(v any) []string {
	seen := make(map[string]struct{})
	var walk func(any)
	walk = func(node any) {
		switch val := node.(type) {
		case string:
			if key, ok := ParseRef(val); ok {
				seen[key] = struct{}{}
			}
		case map[string]any:
			for _, child := range val {
				walk(child)
			}
		case []any:
			for _, child := range val {
				walk(child)
			}
		}
	}
	walk(v)

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Deleter removes one object.
type Deleter interface {
	DeleteObject(ctx context.Context, key string) error
}

// DeleteWithRetry retries with exponential backoff starting at one second.
func DeleteWithRetry(ctx context.Context, d Deleter, key string, maxAttempts int) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		lastErr = d.DeleteObject(ctx, key)
		if lastErr == nil {
			return nil
		}
		slog.Error("storage: delete attempt failed", "attempt", attempt+1, "max_attempts", maxAttempts, "key", key, "error", lastErr)
	}
	return fmt.Errorf("all %d delete attempts failed for %s: %w", maxAttempts, key, lastErr)
}
