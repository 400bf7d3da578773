// Package config provides configuration loading from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/usestring/apirecord/internal/capture"
	"github.com/usestring/apirecord/internal/catalog"
	"github.com/usestring/apirecord/internal/logging"
	"github.com/usestring/apirecord/internal/openapi"
	"github.com/usestring/apirecord/pkg/recorder"
)

// Config holds all configuration for the CLI and the MCP server.
type Config struct {
	Title          string // APIRECORD_TITLE, default "API"
	Version        string // APIRECORD_VERSION, default "v1"
	Format         string // APIRECORD_FORMAT, default "yaml"
	SuccessCodes   []int  // APIRECORD_SUCCESS_CODES, comma separated, default "200,201"
	StrictEmpty    bool   // APIRECORD_STRICT_EMPTY, default false
	SkipEmptyQuery bool   // APIRECORD_SKIP_EMPTY_QUERY, default false
	FragmentCache  int    // APIRECORD_FRAGMENT_CACHE, default 256
	LoadWorkers    int    // APIRECORD_LOAD_WORKERS, default 4

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "info"
	LogFormat     string // LOG_FORMAT, text or json, default "text"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is applied first; variables
// already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Title:          getEnvString("APIRECORD_TITLE", openapi.DefaultInfo.Title),
		Version:        getEnvString("APIRECORD_VERSION", openapi.DefaultInfo.Version),
		Format:         getEnvString("APIRECORD_FORMAT", string(openapi.FormatYAML)),
		SuccessCodes:   getEnvInts("APIRECORD_SUCCESS_CODES", recorder.DefaultSuccessCodes),
		StrictEmpty:    getEnvBool("APIRECORD_STRICT_EMPTY", false),
		SkipEmptyQuery: getEnvBool("APIRECORD_SKIP_EMPTY_QUERY", false),
		FragmentCache:  getEnvInt("APIRECORD_FRAGMENT_CACHE", catalog.DefaultCacheSize),
		LoadWorkers:    getEnvInt("APIRECORD_LOAD_WORKERS", capture.DefaultWorkers),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFormat:     getEnvString("LOG_FORMAT", "text"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

// Logging returns the logging configuration.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		FilePath:   c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAgeDays: c.LogMaxAgeDays,
		Compress:   c.LogCompress,
	}
}

// RecorderOptions translates the configuration into recorder options.
func (c *Config) RecorderOptions() []recorder.Option {
	opts := []recorder.Option{
		recorder.WithInfo(c.Title, c.Version),
		recorder.WithSuccessCodes(c.SuccessCodes...),
		recorder.WithCacheSize(c.FragmentCache),
	}
	if c.StrictEmpty {
		opts = append(opts, recorder.WithStrictEmpty(true))
	}
	if c.SkipEmptyQuery {
		opts = append(opts, recorder.WithEmptyQuerySamples(false))
	}
	return opts
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvInts parses a comma separated list. Any invalid element discards the
// whole value.
func getEnvInts(key string, defaultVal []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return append([]int(nil), defaultVal...)
	}
	var out []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			return append([]int(nil), defaultVal...)
		}
		out = append(out, i)
	}
	if len(out) == 0 {
		return append([]int(nil), defaultVal...)
	}
	return out
}
