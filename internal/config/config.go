// Package config provides configuration management for docsync.
// It supports YAML or TOML configuration files, a .env file, environment
// variables, and sensible defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/klauern/docsync/internal/convert"
	"github.com/klauern/docsync/internal/git"
	"github.com/klauern/docsync/internal/logging"
	"github.com/klauern/docsync/internal/mapper"
	"github.com/klauern/docsync/internal/model"
	"github.com/klauern/docsync/internal/state"
	"github.com/klauern/docsync/internal/sync"
	"github.com/klauern/docsync/internal/util"
)

// Config represents the complete docsync configuration.
type Config struct {
	// Remote configures the wiki connection.
	Remote RemoteConfig `yaml:"remote" toml:"remote"`

	// Log configures logging output.
	Log LogConfig `yaml:"log" toml:"log"`

	// Backup configures the copies kept of local files a sync overwrites.
	Backup BackupConfig `yaml:"backup" toml:"backup"`

	// DefaultProfile is used when no --profile flag is given.
	DefaultProfile string `yaml:"default_profile,omitempty" toml:"default_profile,omitempty"`

	// Sync holds the named sync profiles.
	Sync map[string]Profile `yaml:"sync" toml:"sync"`
}

// RemoteConfig holds the wiki connection settings.
type RemoteConfig struct {
	// URL is the Trac project URL or its XML-RPC endpoint.
	URL      string `yaml:"url" toml:"url"`
	Username string `yaml:"username,omitempty" toml:"username,omitempty"`
	// Password is usually supplied through DOCSYNC_REMOTE_PASSWORD.
	Password string `yaml:"password,omitempty" toml:"password,omitempty"`
	// Insecure disables TLS certificate verification.
	Insecure bool          `yaml:"insecure" toml:"insecure"`
	Timeout  time.Duration `yaml:"timeout" toml:"timeout"`
	// CacheSize bounds the number of cached page revisions.
	CacheSize int `yaml:"cache_size" toml:"cache_size"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level" toml:"level"`
	JSON       bool   `yaml:"json" toml:"json"`
	File       string `yaml:"file,omitempty" toml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
}

// BackupConfig holds backup retention settings.
type BackupConfig struct {
	Enabled    bool          `yaml:"enabled" toml:"enabled"`
	MaxPerFile int           `yaml:"max_per_file" toml:"max_per_file"`
	MaxAge     time.Duration `yaml:"max_age" toml:"max_age"`
}

// Profile is one named pairing of a local tree with a wiki namespace.
type Profile struct {
	// Source is the local document root.
	Source string `yaml:"source" toml:"source"`
	// Destination is the remote page prefix, e.g. "Docs".
	Destination string `yaml:"destination" toml:"destination"`
	// Format is the remote markup: tracwiki or markdown.
	Format           string        `yaml:"format" toml:"format"`
	Direction        string        `yaml:"direction" toml:"direction"`
	ConflictStrategy string        `yaml:"conflict_strategy" toml:"conflict_strategy"`
	GitSafety        string        `yaml:"git_safety" toml:"git_safety"`
	GitTimeout       time.Duration `yaml:"git_timeout" toml:"git_timeout"`
	Mappings         []mapper.Rule `yaml:"mappings,omitempty" toml:"mappings,omitempty"`
	Exclude          []string      `yaml:"exclude,omitempty" toml:"exclude,omitempty"`
	// StateDir holds the state and lock files. Relative paths are resolved
	// against the working directory.
	StateDir string `yaml:"state_dir" toml:"state_dir"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Remote: RemoteConfig{
			Timeout:   60 * time.Second,
			CacheSize: 256,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Backup: BackupConfig{
			Enabled:    true,
			MaxPerFile: 10,
			MaxAge:     30 * 24 * time.Hour,
		},
		Sync: map[string]Profile{},
	}
}

// DefaultProfile returns a profile with every optional field filled in.
func DefaultProfile() Profile {
	return Profile{
		Format:           convert.FormatTracWiki,
		Direction:        string(model.DirectionBidirectional),
		ConflictStrategy: string(sync.DefaultStrategy),
		GitSafety:        string(model.GitSafetyBlock),
		GitTimeout:       git.DefaultTimeout,
		StateDir:         state.DefaultDir,
	}
}

// withDefaults fills unset optional fields.
func (p Profile) withDefaults() Profile {
	d := DefaultProfile()
	if p.Format == "" {
		p.Format = d.Format
	}
	if p.Direction == "" {
		p.Direction = d.Direction
	}
	if p.ConflictStrategy == "" {
		p.ConflictStrategy = d.ConflictStrategy
	}
	if p.GitSafety == "" {
		p.GitSafety = d.GitSafety
	}
	if p.GitTimeout == 0 {
		p.GitTimeout = d.GitTimeout
	}
	if p.StateDir == "" {
		p.StateDir = d.StateDir
	}
	return p
}

// configFileName is the name of the config file.
const configFileName = "config.yaml"

// FilePath returns the path to the config file. DOCSYNC_CONFIG overrides
// the default location.
func FilePath() string {
	if v := os.Getenv("DOCSYNC_CONFIG"); v != "" {
		return util.ExpandHome(v)
	}
	return filepath.Join(util.ConfigDir(), configFileName)
}

// Load loads the configuration from the default file, merging with
// defaults. A missing file yields the defaults.
func Load() (*Config, error) {
	return load(FilePath(), true)
}

// LoadFromPath loads configuration from a specific path, which must exist.
func LoadFromPath(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, allowMissing bool) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is the user's own config file
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	case allowMissing && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg.applyEnvironment()

	for name, p := range cfg.Sync {
		cfg.Sync[name] = p.withDefaults()
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadDotEnv exports variables from a .env file without overriding the
// environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path. A .toml
// extension selects TOML; anything else is written as YAML.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(c); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
	}

	// The file may hold credentials.
	return os.WriteFile(path, data, 0o600)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern DOCSYNC_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	// Remote settings
	if v := os.Getenv("DOCSYNC_REMOTE_URL"); v != "" {
		c.Remote.URL = v
	}
	if v := os.Getenv("DOCSYNC_REMOTE_USERNAME"); v != "" {
		c.Remote.Username = v
	}
	if v := os.Getenv("DOCSYNC_REMOTE_PASSWORD"); v != "" {
		c.Remote.Password = v
	}
	if v := os.Getenv("DOCSYNC_REMOTE_INSECURE"); v != "" {
		c.Remote.Insecure = parseBool(v)
	}
	if v := os.Getenv("DOCSYNC_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Remote.Timeout = d
		} else if secs, err := strconv.Atoi(v); err == nil {
			c.Remote.Timeout = time.Duration(secs) * time.Second
		}
	}

	// Log settings
	if v := os.Getenv("DOCSYNC_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DOCSYNC_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("DOCSYNC_LOG_JSON"); v != "" {
		c.Log.JSON = parseBool(v)
	}

	if v := os.Getenv("DOCSYNC_BACKUP_ENABLED"); v != "" {
		c.Backup.Enabled = parseBool(v)
	}

	// Applies to every profile
	if v := os.Getenv("DOCSYNC_STATE_DIR"); v != "" {
		for name, p := range c.Sync {
			p.StateDir = v
			c.Sync[name] = p
		}
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// ProfileNames returns the configured profile names in sorted order.
func (c *Config) ProfileNames() []string {
	return slices.Sorted(maps.Keys(c.Sync))
}

// Profile looks up a profile by name. An empty name selects
// DefaultProfile, or the only profile when exactly one is configured.
func (c *Config) Profile(name string) (string, Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" && len(c.Sync) == 1 {
		name = c.ProfileNames()[0]
	}
	if name == "" {
		return "", Profile{}, fmt.Errorf("no profile selected (available: %s)", strings.Join(c.ProfileNames(), ", "))
	}
	p, ok := c.Sync[name]
	if !ok {
		return "", Profile{}, fmt.Errorf("sync profile %q not found (available: %s)", name, strings.Join(c.ProfileNames(), ", "))
	}
	return name, p.withDefaults(), nil
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Backup.MaxPerFile < 0 || c.Backup.MaxAge < 0 {
		errs = append(errs, errors.New("backup: max_per_file and max_age must not be negative"))
	}
	if c.DefaultProfile != "" {
		if _, ok := c.Sync[c.DefaultProfile]; !ok {
			errs = append(errs, fmt.Errorf("default_profile: %q is not a configured profile", c.DefaultProfile))
		}
	}
	for _, name := range c.ProfileNames() {
		if err := c.Sync[name].withDefaults().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sync.%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks required fields and enum values.
func (p Profile) Validate() error {
	var errs []error
	if p.Source == "" {
		errs = append(errs, errors.New("source is required"))
	}
	if p.Destination == "" {
		errs = append(errs, errors.New("destination is required"))
	}
	if _, err := convert.ForFormat(p.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := model.ParseDirection(p.Direction); err != nil {
		errs = append(errs, err)
	}
	if _, err := sync.ParseStrategy(p.ConflictStrategy); err != nil {
		errs = append(errs, err)
	}
	if _, err := model.ParseGitSafety(p.GitSafety); err != nil {
		errs = append(errs, err)
	}
	if p.GitTimeout < 0 {
		errs = append(errs, fmt.Errorf("git_timeout must not be negative, got %s", p.GitTimeout))
	}
	if _, err := mapper.New(p.MapperOptions()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// MapperOptions converts the profile's path rules for mapper.New.
func (p Profile) MapperOptions() mapper.Options {
	return mapper.Options{
		Destination: p.Destination,
		Rules:       p.Mappings,
		Exclude:     p.Exclude,
	}
}

// SourceRoot resolves Source against baseDir.
func (p Profile) SourceRoot(baseDir string) string {
	return util.ResolvePath(p.Source, baseDir)
}

// StatePath resolves StateDir against baseDir.
func (p Profile) StatePath(baseDir string) string {
	return util.ResolvePath(p.StateDir, baseDir)
}

// GetStrategy returns the conflict strategy, falling back to the default
// for invalid values.
func (p Profile) GetStrategy() sync.Strategy {
	s := sync.Strategy(p.ConflictStrategy)
	if s.IsValid() {
		return s
	}
	return sync.DefaultStrategy
}

// Exists returns true if a config file exists.
func Exists() bool {
	_, err := os.Stat(FilePath())
	return err == nil
}
