// Package cmd implements the orcidhub command line.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/orcidhub/orcidhub/internal/config"
	"github.com/orcidhub/orcidhub/internal/flags"
	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/schema"
	"github.com/orcidhub/orcidhub/internal/store"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts
	// so the OSC 11 reply cannot leak into the browser's input.
	_ = lipgloss.HasDarkBackground()
}

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "orcidhub",
	Short: "Review and maintain researchers' ORCID record sections",
	Long: `orcidhub lists and edits the record sections (education, employment,
funding, peer review, works, researcher URLs, other names, keywords,
countries and external identifiers) of the researchers an organisation
works with.

Run "orcidhub serve" for the web interface or "orcidhub browse USER" for
the terminal browser.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .orcidhub/config.yaml, then ~/.config/orcidhub/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"enable debug logging (also ORCIDHUB_DEBUG=1)")
	rootCmd.PersistentFlags().String("db", "", "path to the SQLite database")

	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
}

// setDefaults registers every default so env overrides and Unmarshal see
// the full key set.
func setDefaults(v *viper.Viper) {
	d := config.Defaults()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.watch_changes", d.Database.WatchChanges)
	v.SetDefault("organisation.name", d.Organisation.Name)
	v.SetDefault("organisation.client_id", d.Organisation.ClientID)
	v.SetDefault("cache.record_ttl", d.Cache.RecordTTL)
	v.SetDefault("cache.flash_ttl", d.Cache.FlashTTL)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("ui.markdown_style", d.UI.MarkdownStyle)
	v.SetDefault("flags", d.Flags)
}

func initConfig() {
	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("ORCIDHUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .orcidhub/config.yaml (current directory)
		// 2. ~/.config/orcidhub/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "orcidhub"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "orcidhub: reading config: %v\n", err)
		}
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "orcidhub: decoding config: %v\n", err)
	}
}

const localConfigPath = ".orcidhub/config.yaml"

// debugEnabled reports whether --debug or ORCIDHUB_DEBUG asks for logs.
func debugEnabled() bool {
	return debugFlag || os.Getenv("ORCIDHUB_DEBUG") != ""
}

// setupLogging starts the logger. The terminal browser owns the screen,
// so it always logs to a file; the server logs to cfg.Log.File or stderr.
func setupLogging(tui bool) (func(), error) {
	if !debugEnabled() && cfg.Log.File == "" && tui {
		return func() {}, nil
	}
	path := cfg.Log.File
	if tui {
		if path == "" {
			path = "orcidhub-debug.log"
		}
		cleanup, err := log.InitWithTeaLog(path, "orcidhub")
		if err != nil {
			return nil, fmt.Errorf("initializing logging: %w", err)
		}
		return cleanup, nil
	}
	cleanup, err := log.Init(path)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	level := log.ParseLevel(cfg.Log.Level)
	if debugEnabled() {
		level = log.LevelDebug
	}
	log.SetMinLevel(level)
	log.SetEnabled(true)
	return cleanup, nil
}

// openStore opens the configured database.
func openStore() (*store.DB, error) {
	if cfg.Database.Path == "" {
		return nil, errors.New("database.path is not set")
	}
	db, err := store.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Database.Path, err)
	}
	return db, nil
}

// source is the organisation records written by this hub are stamped with.
func source() store.Source {
	return store.Source{ClientID: cfg.Organisation.ClientID, Name: cfg.Organisation.Name}
}

func featureFlags() *flags.Registry {
	return flags.New(cfg.Flags)
}

func registry() (*schema.Registry, error) {
	reg, err := schema.Default()
	if err != nil {
		return nil, fmt.Errorf("loading section schema: %w", err)
	}
	return reg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
