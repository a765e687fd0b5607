// Package config loads server configuration from environment
// variables, with typed defaults and accumulated validation of
// required fields.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every environment-derived input the process supervisor
// and admin CLI need: the two listen addresses, the database location,
// the log level, and a handful of operational knobs.
type Config struct {
	CalDAVAddr string
	MCPAddr    string

	DatabaseURL string

	LogLevel string

	DB struct {
		MaxConns int32
	}

	ShutdownTimeout time.Duration

	Metrics struct {
		Enabled bool
		// Addr is empty by default, meaning /metrics is mounted on the
		// CalDAV listener's own mux; set to serve it on its own port
		// instead.
		Addr string
	}
}

// Load reads Config from the environment, applying defaults and
// collecting every missing required field into a single error.
func Load() (*Config, error) {
	var cfg Config
	var missing []string

	cfg.CalDAVAddr = getenvDefault("CALCARD_CALDAV_ADDR", ":8008")
	cfg.MCPAddr = getenvDefault("CALCARD_MCP_ADDR", ":8009")
	cfg.LogLevel = getenvDefault("CALCARD_LOG_LEVEL", "info")

	cfg.DatabaseURL = os.Getenv("CALCARD_DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "CALCARD_DATABASE_URL")
	}

	cfg.DB.MaxConns = int32(getenvInt("CALCARD_DB_MAX_CONNS", 10))

	shutdownSeconds := getenvInt("CALCARD_SHUTDOWN_TIMEOUT_SECONDS", 10)
	cfg.ShutdownTimeout = time.Duration(shutdownSeconds) * time.Second

	cfg.Metrics.Enabled = getenvBool("CALCARD_METRICS_ENABLED", true)
	cfg.Metrics.Addr = os.Getenv("CALCARD_METRICS_ADDR")

	if len(missing) > 0 {
		return nil, fmt.Errorf("config: missing required environment variables: %v", missing)
	}
	return &cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
