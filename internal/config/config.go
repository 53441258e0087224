// Package config provides configuration types and defaults for orcidhub.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/orcidhub/orcidhub/internal/flags"
	"github.com/orcidhub/orcidhub/internal/log"
)

// Config holds all configuration options for orcidhub.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Organisation OrganisationConfig `mapstructure:"organisation"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	Log          LogConfig          `mapstructure:"log"`
	UI           UIConfig           `mapstructure:"ui"`
	Flags        map[string]bool    `mapstructure:"flags"`
}

// ServerConfig holds HTTP listener options.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`          // e.g. "localhost:8000"
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // default 30s
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // default 30s
}

// DatabaseConfig holds the record store location.
type DatabaseConfig struct {
	// Path is the SQLite database file. Default: ~/.orcidhub/orcidhub.db
	Path string `mapstructure:"path"`

	// WatchChanges flushes the record cache when the file is modified
	// by another process (e.g. a batch loader).
	WatchChanges bool `mapstructure:"watch_changes"`
}

// OrganisationConfig identifies the organisation operating the hub.
// Its client id gates edit/delete affordances on records it wrote.
type OrganisationConfig struct {
	Name     string `mapstructure:"name"`
	ClientID string `mapstructure:"client_id"`
}

// CacheConfig holds cache lifetimes.
type CacheConfig struct {
	RecordTTL time.Duration `mapstructure:"record_ttl"` // section listings
	FlashTTL  time.Duration `mapstructure:"flash_ttl"`  // pending notifications per browser
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/orcidhub/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// LogConfig controls the debug log.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // empty = stderr
}

// UIConfig holds terminal browser options.
type UIConfig struct {
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark" (default) or "light"
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/orcidhub/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "orcidhub", "traces", "traces.jsonl")
}

// DefaultDatabasePath returns ~/.orcidhub/orcidhub.db, or a relative
// .orcidhub/orcidhub.db when the home directory is unavailable.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".orcidhub", "orcidhub.db")
	}
	return filepath.Join(home, ".orcidhub", "orcidhub.db")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:         "localhost:8000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:         DefaultDatabasePath(),
			WatchChanges: true,
		},
		Cache: CacheConfig{
			RecordTTL: 5 * time.Minute,
			FlashTTL:  10 * time.Minute,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			MarkdownStyle: "dark",
		},
		Flags: map[string]bool{
			flags.FlagSendInvite:       true,
			flags.FlagExactClientMatch: false,
			flags.FlagRecordCache:      true,
		},
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := ValidateServer(c.Server); err != nil {
		return err
	}
	if err := ValidateOrganisation(c.Organisation); err != nil {
		return err
	}
	if err := ValidateCache(c.Cache); err != nil {
		return err
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return ValidateTracing(c.Tracing)
}

// ValidateServer checks listener configuration for errors.
func ValidateServer(server ServerConfig) error {
	if server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if _, _, err := net.SplitHostPort(server.Addr); err != nil {
		return fmt.Errorf("server.addr %q is not host:port: %w", server.Addr, err)
	}
	if server.ReadTimeout < 0 || server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	return nil
}

// ValidateOrganisation checks that the operating organisation is identified.
func ValidateOrganisation(org OrganisationConfig) error {
	if strings.TrimSpace(org.ClientID) == "" {
		return fmt.Errorf("organisation.client_id is required")
	}
	if strings.ContainsAny(org.ClientID, " \t\n") {
		return fmt.Errorf("organisation.client_id must not contain whitespace, got %q", org.ClientID)
	}
	return nil
}

// ValidateCache checks cache lifetimes.
// Zero values are allowed and fall back to the package defaults at wiring time.
func ValidateCache(cache CacheConfig) error {
	if cache.RecordTTL < 0 {
		return fmt.Errorf("cache.record_ttl must not be negative, got %v", cache.RecordTTL)
	}
	if cache.FlashTTL < 0 {
		return fmt.Errorf("cache.flash_ttl must not be negative, got %v", cache.FlashTTL)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Path requirements only matter when tracing is on
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# orcidhub configuration

server:
  addr: localhost:8000
  read_timeout: 30s
  write_timeout: 30s

database:
  # path: ~/.orcidhub/orcidhub.db
  watch_changes: true     # Flush cached sections when the database file changes

# The organisation operating this hub. Records whose source client id
# matches client_id can be edited and deleted from the section pages.
organisation:
  name: ""
  client_id: ""

cache:
  record_ttl: 5m
  flash_ttl: 10m

tracing:
  enabled: false
  exporter: file          # none, file, stdout, otlp
  # file_path: ~/.config/orcidhub/traces/traces.jsonl
  otlp_endpoint: localhost:4317
  sample_rate: 1.0

log:
  level: info
  # file: /tmp/orcidhub.log

ui:
  markdown_style: dark

flags:
  send-invite: true
  exact-client-match: false
  record-cache: true
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
