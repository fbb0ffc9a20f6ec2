// Package config loads condamigrate settings from defaults, an optional config
// file, CONDAMIGRATE_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "condamigrate"
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "CONDAMIGRATE"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
)

// Backends accepted in the backend setting.
const (
	BackendMamba    = "mamba"
	BackendConda    = "conda"
	BackendAnaconda = "anaconda"
)

var knownKeys = map[string]bool{
	"cache_dir":     true,
	"jobs":          true,
	"ttl":           true,
	"lock_timeout":  true,
	"query_timeout": true,
	"backend":       true,
	"base_url":      true,
	"channels":      true,
	"verbose":       true,
}

// ErrInvalidConfig is wrapped by validation errors.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the resolved settings.
type Config struct {
	CacheDir     string        `mapstructure:"cache_dir"`
	Jobs         int           `mapstructure:"jobs"`
	TTL          time.Duration `mapstructure:"ttl"`
	LockTimeout  time.Duration `mapstructure:"lock_timeout"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	Backend      string        `mapstructure:"backend"`
	BaseURL      string        `mapstructure:"base_url"`
	Channels     []string      `mapstructure:"channels"`
	Verbose      bool          `mapstructure:"verbose"`
}

// DefaultCacheDir returns ~/.condamigrate/conda_query_cache.
func DefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, "."+AppName, "conda_query_cache"), nil
}

// DefaultConfig returns the built-in settings. LockTimeout 0 waits for the
// cache lock indefinitely.
func DefaultConfig() *Config {
	dir, err := DefaultCacheDir()
	if err != nil {
		dir = filepath.Join("."+AppName, "conda_query_cache")
	}
	return &Config{
		CacheDir:     dir,
		Jobs:         5,
		TTL:          24 * time.Hour,
		QueryTimeout: 2 * time.Minute,
		Backend:      BackendMamba,
		Channels:     []string{},
	}
}

// ConfigDir returns $XDG_CONFIG_HOME/condamigrate, defaulting to
// ~/.config/condamigrate.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName), nil
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// ConfigFilePath, when set, is the only config file read and must exist.
	ConfigFilePath string
	// ConfigDirPath overrides ConfigDir.
	ConfigDirPath string
	// Flags are bound over every other source. Flag names use dashes
	// ("cache-dir") for the underscored keys.
	Flags *pflag.FlagSet
}

// Load resolves the configuration. It returns the config file used, or ""
// when none was found.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("jobs", defaults.Jobs)
	v.SetDefault("ttl", defaults.TTL)
	v.SetDefault("lock_timeout", defaults.LockTimeout)
	v.SetDefault("query_timeout", defaults.QueryTimeout)
	v.SetDefault("backend", defaults.Backend)
	v.SetDefault("base_url", defaults.BaseURL)
	v.SetDefault("channels", defaults.Channels)
	v.SetDefault("verbose", defaults.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if _, err := os.Stat(opts.ConfigFilePath); err != nil {
			return nil, "", fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read config %s: %w", opts.ConfigFilePath, err)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		dir := opts.ConfigDirPath
		if dir == "" {
			var err error
			if dir, err = ConfigDir(); err != nil {
				return nil, "", err
			}
		}
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, "", fmt.Errorf("failed to read config: %w", err)
			}
		} else {
			resolvedPath = v.ConfigFileUsed()
		}
	}

	if opts.Flags != nil {
		var bindErr error
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !knownKeys[key] {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, "", fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.CacheDir = expandHome(cfg.CacheDir)

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolvedPath, nil
}

// Validate checks the settings for values no component can use.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.CacheDir) == "":
		return fmt.Errorf("%w: cache_dir is empty", ErrInvalidConfig)
	case c.Jobs < 1:
		return fmt.Errorf("%w: jobs must be at least 1, got %d", ErrInvalidConfig, c.Jobs)
	case c.TTL < 0:
		return fmt.Errorf("%w: ttl must not be negative", ErrInvalidConfig)
	case c.LockTimeout < 0:
		return fmt.Errorf("%w: lock_timeout must not be negative", ErrInvalidConfig)
	case c.QueryTimeout < 0:
		return fmt.Errorf("%w: query_timeout must not be negative", ErrInvalidConfig)
	}
	switch c.Backend {
	case BackendMamba, BackendConda, BackendAnaconda:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
