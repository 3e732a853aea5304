// Package geoip resolves viewer addresses to ISO country codes using a
// MaxMind database. A resolver without a database answers "" for every
// lookup so view recording works without one.
package geoip

import (
	"log/slog"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

type Resolver struct {
	db *maxminddb.Reader
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Open loads the database at path. An empty path or an unreadable file
// yields a disabled resolver rather than an error.
func Open(path string) *Resolver {
	if path == "" {
		return &Resolver{}
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		slog.Warn("geoip: failed to open database, country lookup disabled", "path", path, "error", err)
		return &Resolver{}
	}
	slog.Info("geoip: loaded database", "path", path, "type", db.Metadata.DatabaseType)
	return &Resolver{db: db}
}

func (r *Resolver) Enabled() bool {
	return r != nil && r.db != nil
}

// Country accepts a bare IP or host:port.
func (r *Resolver) Country(addr string) string {
	if !r.Enabled() || addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return ""
	}
	var rec countryRecord
	if err := r.db.Lookup(ip, &rec); err != nil {
		slog.Debug("geoip: lookup failed", "ip", addr, "error", err)
		return ""
	}
	return rec.Country.ISOCode
}

func (r *Resolver) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.db.Close()
}
