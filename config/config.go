// Package config reads process-wide settings the way the teacher's own
// storage and snowflakeid packages do: a plain struct filled by
// functional options (massifs/storage/options.go's Options/Option
// pattern), with no config-file library in between. WLL reads its
// defaults from environment variables rather than a caller-supplied
// struct literal, since there is no equivalent of a Kubernetes-injected
// pod spec here, but the functional-Option mechanism itself follows the
// teacher's so callers can still override fields programmatically.
package config

import (
	"os"
	"strconv"
)

// Config holds every ambient setting WLL reads at startup.
type Config struct {
	Dir         string
	ConfigFile  string
	AuthorName  string
	AuthorEmail string
	Compression bool
	LogLevel    string
	NoColor     bool
}

// Option mutates a Config under construction, matching the teacher's
// generic Option func(any) shape but narrowed to *Config since this
// package has exactly one options target, unlike massifs' several
// storage backends.
type Option func(*Config)

// WithDir overrides the worldline data directory.
func WithDir(dir string) Option { return func(c *Config) { c.Dir = dir } }

// WithAuthor overrides the commit author identity.
func WithAuthor(name, email string) Option {
	return func(c *Config) {
		c.AuthorName = name
		c.AuthorEmail = email
	}
}

// WithCompression overrides whether packfile export compresses entries.
func WithCompression(enabled bool) Option { return func(c *Config) { c.Compression = enabled } }

// WithLogLevel overrides the logger's level.
func WithLogLevel(level string) Option { return func(c *Config) { c.LogLevel = level } }

// defaultDir is used when WLL_DIR is unset, mirroring git's ".git".
const defaultDir = ".wll"

// Load reads WLL_DIR, WLL_CONFIG, WLL_AUTHOR_NAME, WLL_AUTHOR_EMAIL,
// WLL_COMPRESSION, WLL_LOG and NO_COLOR from the environment, then
// applies opts on top so callers (tests, an embedding SDK) can override
// any field without touching the process environment.
func Load(opts ...Option) Config {
	c := Config{
		Dir:         envOr("WLL_DIR", defaultDir),
		ConfigFile:  os.Getenv("WLL_CONFIG"),
		AuthorName:  os.Getenv("WLL_AUTHOR_NAME"),
		AuthorEmail: os.Getenv("WLL_AUTHOR_EMAIL"),
		Compression: envCompression("WLL_COMPRESSION", true),
		LogLevel:    envOr("WLL_LOG", "info"),
		NoColor:     envBool("NO_COLOR", false),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// envCompression reads key as one of the two values WLL_COMPRESSION
// actually supports — "zstd" (on) or "none" (off) — rather than a
// generic bool, since neither word parses as one and a generic bool
// parse would silently keep compression on for "none".
func envCompression(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch v {
	case "zstd":
		return true
	case "none":
		return false
	default:
		return fallback
	}
}

func envBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
