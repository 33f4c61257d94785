package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Draft and case store backends.
const (
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	// DraftStore selects the key-value backend for drafts: sqlite, memory or redis.
	DraftStore string `json:"draft_store,omitempty"`

	// RedisURL is used when DraftStore is redis (e.g. redis://localhost:6379/0).
	RedisURL string `json:"redis_url,omitempty"`

	// RedisPrefix namespaces draft keys inside a shared Redis database.
	RedisPrefix string `json:"redis_prefix,omitempty"`

	// CaseStore selects the case record backend: sqlite, memory or postgres.
	CaseStore string `json:"case_store,omitempty"`

	// PostgresDSN is used when CaseStore is postgres.
	PostgresDSN string `json:"postgres_dsn,omitempty"`

	// SkipNewCaseDrafts suppresses loading a persisted draft for the placeholder
	// "new" case. Intended for local development, where a stale cached draft for
	// an unsaved case would otherwise be resurrected.
	SkipNewCaseDrafts bool `json:"skip_new_case_drafts,omitempty"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is json or console.
	LogFormat string `json:"log_format,omitempty"`

	// AllowedPaths is an allowlist of directories for export.
	// Paths outside ~/.ptnote/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DraftStore:  StoreSQLite,
		CaseStore:   StoreSQLite,
		RedisPrefix: "ptnote:",
		LogLevel:    "info",
		LogFormat:   "json",
	}
}

// Validate reports unknown backend names and missing connection settings.
func (c *Config) Validate() error {
	switch c.DraftStore {
	case StoreSQLite, StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("draft_store redis requires redis_url")
		}
	default:
		return errors.New("unknown draft_store: " + c.DraftStore)
	}
	switch c.CaseStore {
	case StoreSQLite, StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("case_store postgres requires postgres_dsn")
		}
	default:
		return errors.New("unknown case_store: " + c.CaseStore)
	}
	return nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.ptnote) and repo (.ptnote) directories.
// Repo config is found by walking upward from startDir to find the nearest .ptnote/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .ptnote/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".ptnote", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw returns a zero-valued config (not defaults) if the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; booleans are ORed; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	return &Config{
		DraftStore:        pick(overlay.DraftStore, base.DraftStore),
		RedisURL:          pick(overlay.RedisURL, base.RedisURL),
		RedisPrefix:       pick(overlay.RedisPrefix, base.RedisPrefix),
		CaseStore:         pick(overlay.CaseStore, base.CaseStore),
		PostgresDSN:       pick(overlay.PostgresDSN, base.PostgresDSN),
		LogLevel:          pick(overlay.LogLevel, base.LogLevel),
		LogFormat:         pick(overlay.LogFormat, base.LogFormat),
		DBMaxOpenConns:    pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:    pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		SkipNewCaseDrafts: base.SkipNewCaseDrafts || overlay.SkipNewCaseDrafts,
		AllowUnsafePaths:  base.AllowUnsafePaths || overlay.AllowUnsafePaths,
		AllowedPaths:      mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths),
		DisabledTools:     mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
	}
}

// pick returns overlay unless it is the zero value.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay == zero {
		return base
	}
	return overlay
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
