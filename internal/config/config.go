package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config holds application configuration.
type Config struct {
	// InitialRating is the rating given to newly created names.
	InitialRating int `json:"initial_rating"`

	// MinRating is the rating floor. Updates that would go below it are clamped.
	MinRating int `json:"min_rating"`

	// KFactor is the maximum rating change of a single comparison.
	KFactor int `json:"k_factor"`

	// MaxSelections caps how many names can be chosen in one round.
	MaxSelections int `json:"max_selections"`

	// RoundSize is how many names the sampler presents per round.
	RoundSize int `json:"round_size"`

	// AllowedSpecialChars lists characters accepted in name text in addition to
	// letters, spaces and apostrophes (e.g. "-" for hyphenated names).
	AllowedSpecialChars string `json:"allowed_special_chars,omitempty"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is "console" (human readable) or "json".
	LogFormat string `json:"log_format,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.cradle/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool types to disable entirely.
	// Known types: "name", "round".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		InitialRating: 1200,
		MinRating:     100,
		KFactor:       50,
		MaxSelections: 5,
		RoundSize:     10,
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// Validate checks that the rating and round settings are usable.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MinRating, validation.Min(0)),
		validation.Field(&c.InitialRating, validation.Min(c.MinRating)),
		validation.Field(&c.KFactor, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxSelections, validation.Required, validation.Min(1)),
		validation.Field(&c.RoundSize, validation.Required, validation.Min(1)),
		validation.Field(&c.LogLevel, validation.In("", "debug", "info", "warn", "warning", "error")),
		validation.Field(&c.LogFormat, validation.In("", "console", "json")),
	)
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.cradle.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.cradle) and repo (.cradle) directories.
// Repo config is found by walking upward from startDir to find the nearest .cradle/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .cradle/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".cradle", "config.json")
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

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
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

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	return &Config{
		InitialRating:       pickInt(overlay.InitialRating, base.InitialRating),
		MinRating:           pickInt(overlay.MinRating, base.MinRating),
		KFactor:             pickInt(overlay.KFactor, base.KFactor),
		MaxSelections:       pickInt(overlay.MaxSelections, base.MaxSelections),
		RoundSize:           pickInt(overlay.RoundSize, base.RoundSize),
		AllowedSpecialChars: pickString(overlay.AllowedSpecialChars, base.AllowedSpecialChars),
		LogLevel:            pickString(overlay.LogLevel, base.LogLevel),
		LogFormat:           pickString(overlay.LogFormat, base.LogFormat),
		DBMaxOpenConns:      pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:      pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),

		AllowUnsafePaths: base.AllowUnsafePaths || overlay.AllowUnsafePaths,

		AllowedPaths:  mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths),
		DisabledTools: mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
		DisabledTypes: mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes),
	}
}

// pickInt returns overlay if non-zero, else base.
func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// pickString returns overlay if non-blank, else base.
func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
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
