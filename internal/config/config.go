package config

import (
	"flag"
	"os"
	"strconv"
)

// Config holds all scanner configuration.
type Config struct {
	// Input: either a local tape file or a URL to download.
	File     string
	URL      string
	CacheDir string

	// Database (opt-in: only active when MongoURI is set)
	MongoURI              string
	SnapshotRetentionDays int

	// Live surfaces (opt-in: only active when Port > 0)
	Host           string
	Port           int
	SendBufferSize int

	// Scan
	ProgressEvery int
	RetainOrders  bool
	Quiet         bool
}

// Load parses flags with environment fallbacks.
func Load() *Config {
	c := &Config{}

	flag.StringVar(&c.File, "file", envStr("ITCH_FILE", ""), "Local ITCH tape (.bin or .gz)")
	flag.StringVar(&c.URL, "url", envStr("ITCH_URL", ""), "Tape URL to download when -file is not set")
	flag.StringVar(&c.CacheDir, "cache-dir", envStr("ITCH_CACHE_DIR", "itchdir"), "Download/unpack cache directory")

	flag.StringVar(&c.MongoURI, "mongo-uri", envStr("MONGO_URI", ""), "MongoDB connection URI for snapshot persistence (empty = disabled)")
	flag.IntVar(&c.SnapshotRetentionDays, "snapshot-retention", envInt("SNAPSHOT_RETENTION_DAYS", 30), "Snapshot retention in days (0 = keep forever)")

	flag.StringVar(&c.Host, "host", envStr("VWAP_HOST", "0.0.0.0"), "Listen host for the live HTTP/WebSocket surface")
	flag.IntVar(&c.Port, "port", envInt("VWAP_PORT", 0), "Listen port for the live surface (0 = disabled)")
	flag.IntVar(&c.SendBufferSize, "send-buffer", envInt("SEND_BUFFER", 256), "Per-client snapshot send buffer size")

	flag.IntVar(&c.ProgressEvery, "progress", envInt("PROGRESS_EVERY", 10_000_000), "Log progress every N messages (0 = off)")
	flag.BoolVar(&c.RetainOrders, "retain-orders", false, "Keep closed orders in the tracker (legacy compatibility mode)")
	flag.BoolVar(&c.Quiet, "quiet", false, "Suppress per-instrument snapshot printing")

	flag.Parse()

	return c
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
