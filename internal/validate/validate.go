package validate

import (
	"fmt"
	"net/url"
	"strings"
)

// Catalog payload limits.
const (
	MaxTitleLength   = 500
	MaxURLLength     = 2048
	MaxPayloadBytes  = 1 << 20
	MaxFilenameChars = 255
	MaxKeyNameLength = 100
)

// urlFields are the payload paths that hold playable or displayable URLs.
var urlFields = []string{
	"videoUrl",
	"video_url",
	"image",
	"thumbnail_url",
	"movie.video_url",
	"movie.trailer_url",
	"movie.thumbnail_url",
	"show.trailer_url",
	"web_series.seasons.0.trailer_url",
	"web_series.seasons.0.episodes.0.video_url",
}

// StringLookup is the read side of a content payload.
type StringLookup interface {
	String(path string) (string, bool)
}

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func Title(s string) string   { return checkLen(s, MaxTitleLength, "title") }
func KeyName(s string) string { return checkLen(s, MaxKeyNameLength, "API key name") }

// MediaURL accepts http(s) links and s3:// storage references.
func MediaURL(field, s string) string {
	if msg := checkLen(s, MaxURLLength, field); msg != "" {
		return msg
	}
	if strings.HasPrefix(s, "s3://") {
		if len(s) == len("s3://") {
			return fmt.Sprintf("%s must name a storage key", field)
		}
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Sprintf("%s must be an http(s) URL or s3:// reference", field)
	}
	return ""
}

func Filename(s string) string {
	if strings.TrimSpace(s) == "" {
		return "filename is required"
	}
	if strings.ContainsAny(s, `/\`) {
		return "filename must not contain path separators"
	}
	return checkLen(s, MaxFilenameChars, "filename")
}

// Payload returns the first problem found in a catalog payload.
func Payload(p StringLookup) string {
	if title, ok := p.String("title"); ok {
		if msg := Title(title); msg != "" {
			return msg
		}
	}
	for _, field := range urlFields {
		if s, ok := p.String(field); ok {
			if msg := MediaURL(field, s); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// FieldLimits returns a map of field names to max lengths for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"title":        MaxTitleLength,
		"url":          MaxURLLength,
		"payloadBytes": MaxPayloadBytes,
		"filename":     MaxFilenameChars,
		"apiKeyName":   MaxKeyNameLength,
	}
}
