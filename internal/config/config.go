// Package config loads process configuration from flags with
// environment-variable fallback, in the exact shape the teacher uses:
// envStr/envInt/envInt64 helpers feeding flag.*Var, flag.Parse() once
// in Load().
package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the core and its cmd entrypoints need.
type Config struct {
	// Server
	BindPorts []int
	Host      string

	// Auth
	JWTSecret        string
	AdminIdentifier  string
	AdminPassword    string
	TesterIdentifier string
	TesterPassword   string

	// Database (optional — empty MongoURI means run against the
	// in-process reference stores)
	MongoURI string

	LogLevel string

	// Simulation
	Seed           int64
	SendBufferSize int

	// Session idle reaper
	SessionIdleTimeout time.Duration
	ReaperInterval     time.Duration

	// Cold-storage export of stale save codes (adapted from the
	// teacher's S3 archiver)
	S3Bucket         string
	S3Region         string
	S3Prefix         string
	ArchiveInterval  time.Duration
	ArchiveAfterDays int
}

func Load() *Config {
	c := &Config{}

	var bindPorts string
	flag.StringVar(&bindPorts, "bind-ports", envStr("BIND_PORTS", "8080"), "comma-separated ports to try, in order, until one binds")
	flag.StringVar(&c.Host, "host", envStr("HOST", "0.0.0.0"), "listen host")

	flag.StringVar(&c.JWTSecret, "jwt-secret", envStr("JWT_SECRET", ""), "bearer-token signing secret (required, >= 32 bytes)")
	flag.StringVar(&c.AdminIdentifier, "admin-identifier", envStr("ADMIN_IDENTIFIER", ""), "seed admin username/email")
	flag.StringVar(&c.AdminPassword, "admin-password", envStr("ADMIN_PASSWORD", ""), "seed admin password")
	flag.StringVar(&c.TesterIdentifier, "tester-identifier", envStr("TESTER_IDENTIFIER", ""), "seed tester username/email")
	flag.StringVar(&c.TesterPassword, "tester-password", envStr("TESTER_PASSWORD", ""), "seed tester password")

	flag.StringVar(&c.MongoURI, "mongo-uri", envStr("MONGO_URI", ""), "MongoDB connection URI (empty = in-process reference stores)")
	flag.StringVar(&c.LogLevel, "log-level", envStr("LOG_LEVEL", "info"), "log verbosity (debug, info, warn, error); stored in Config, not applied to log output")

	flag.Int64Var(&c.Seed, "seed", envInt64("SIM_SEED", 0), "PRNG seed (0 = random)")
	flag.IntVar(&c.SendBufferSize, "send-buffer", envInt("SEND_BUFFER", 256), "per-connection push queue depth; stored in Config, not applied (the broadcast queue depth is fixed at 256)")

	sessionIdleMinutes := flag.Int("session-idle-minutes", envInt("SESSION_IDLE_MINUTES", 30), "minutes of inactivity before a session is reaped")
	reaperIntervalSeconds := flag.Int("reaper-interval-seconds", envInt("REAPER_INTERVAL_SECONDS", 60), "seconds between reaper sweeps")

	flag.StringVar(&c.S3Bucket, "s3-bucket", envStr("S3_BUCKET", ""), "non-empty enables cold-storage save-code export with MONGO_URI set (empty = disabled); exports go to local disk, nothing is uploaded to S3")
	flag.StringVar(&c.S3Region, "s3-region", envStr("S3_REGION", "us-east-1"), "AWS region; stored in Config, not used by the local-disk export")
	flag.StringVar(&c.S3Prefix, "s3-prefix", envStr("S3_PREFIX", "marketsim"), "subdirectory under ./archive for exported save codes")
	archiveIntervalHours := flag.Int("archive-interval-hours", envInt("ARCHIVE_INTERVAL_HOURS", 24), "hours between cold-storage export runs")
	flag.IntVar(&c.ArchiveAfterDays, "archive-after-days", envInt("ARCHIVE_AFTER_DAYS", 30), "export+prune save codes whose presets are untouched for this many days")

	flag.Parse()

	c.BindPorts = parsePorts(bindPorts)
	c.SessionIdleTimeout = time.Duration(*sessionIdleMinutes) * time.Minute
	c.ReaperInterval = time.Duration(*reaperIntervalSeconds) * time.Second
	c.ArchiveInterval = time.Duration(*archiveIntervalHours) * time.Hour

	return c
}

func parsePorts(s string) []int {
	var out []int
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				if n, err := strconv.Atoi(s[start:i]); err == nil {
					out = append(out, n)
				}
			}
			start = i + 1
		}
	}
	if len(out) == 0 {
		out = []int{8080}
	}
	return out
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

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
