// ABOUTME: Configuration loading and parsing for helpdesk-bridge
// ABOUTME: Reads TOML or YAML by file extension, with env var expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is left empty.
const (
	DefaultCommandPrefix      = "!"
	DefaultTeamName           = "the support team"
	DefaultNegotiationTimeout = 10 * time.Minute
	DefaultSweepInterval      = time.Minute
	DefaultPersistenceDriver  = DriverFile
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "text"
	defaultBindingsFileName   = "bindings.json"
	defaultBindingsSQLiteFile = "helpdesk.db"
)

// Persistence drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config represents the complete helpdesk-bridge configuration
type Config struct {
	Matrix      MatrixConfig      `toml:"matrix" yaml:"matrix"`
	Support     SupportConfig     `toml:"support" yaml:"support"`
	Negotiation NegotiationConfig `toml:"negotiation" yaml:"negotiation"`
	Persistence PersistenceConfig `toml:"persistence" yaml:"persistence"`
	Logging     LoggingConfig     `toml:"logging" yaml:"logging"`
}

// MatrixConfig holds the bot account credentials
type MatrixConfig struct {
	Homeserver  string `toml:"homeserver" yaml:"homeserver"`
	Username    string `toml:"username" yaml:"username"`
	Password    string `toml:"password" yaml:"password"`
	RecoveryKey string `toml:"recovery_key" yaml:"recovery_key"` // empty disables E2EE
}

// SupportConfig holds the staff room and user-facing wording
type SupportConfig struct {
	StaffRoom     string `toml:"staff_room" yaml:"staff_room"`
	CommandPrefix string `toml:"command_prefix" yaml:"command_prefix"`
	TeamName      string `toml:"team_name" yaml:"team_name"`
}

// NegotiationConfig holds timing for abandoned negotiations
type NegotiationConfig struct {
	Timeout       time.Duration `toml:"-" yaml:"-"`
	SweepInterval time.Duration `toml:"-" yaml:"-"`

	// Raw string values for unmarshaling
	TimeoutRaw       string `toml:"timeout" yaml:"timeout"`
	SweepIntervalRaw string `toml:"sweep_interval" yaml:"sweep_interval"`
}

// PersistenceConfig selects where bindings are saved
type PersistenceConfig struct {
	Driver string `toml:"driver" yaml:"driver"`
	Path   string `toml:"path" yaml:"path"` // empty means a file under the data directory
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .yaml or .yml are YAML; everything else is TOML.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.Support.CommandPrefix == "" {
		c.Support.CommandPrefix = DefaultCommandPrefix
	}
	if c.Support.TeamName == "" {
		c.Support.TeamName = DefaultTeamName
	}
	if c.Negotiation.TimeoutRaw == "" {
		c.Negotiation.Timeout = DefaultNegotiationTimeout
	}
	if c.Negotiation.SweepIntervalRaw == "" {
		c.Negotiation.SweepInterval = DefaultSweepInterval
	}
	if c.Persistence.Driver == "" {
		c.Persistence.Driver = DefaultPersistenceDriver
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLoggingLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLoggingFormat
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	u, err := url.Parse(c.Matrix.Homeserver)
	if err != nil {
		return fmt.Errorf("matrix.homeserver is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("matrix.homeserver must use http or https scheme")
	}
	if c.Matrix.Username == "" {
		return fmt.Errorf("matrix.username is required")
	}
	if c.Matrix.Password == "" {
		return fmt.Errorf("matrix.password is required")
	}

	if !strings.HasPrefix(c.Support.StaffRoom, "!") || !strings.Contains(c.Support.StaffRoom, ":") {
		return fmt.Errorf("support.staff_room must be a room ID like !abc:example.org, got %q", c.Support.StaffRoom)
	}
	if strings.ContainsAny(c.Support.CommandPrefix, " \t\n") {
		return fmt.Errorf("support.command_prefix must not contain whitespace")
	}

	if c.Negotiation.Timeout < 0 {
		return fmt.Errorf("negotiation.timeout must not be negative")
	}
	if c.Negotiation.SweepInterval < 0 {
		return fmt.Errorf("negotiation.sweep_interval must not be negative")
	}

	switch c.Persistence.Driver {
	case DriverFile, DriverSQLite:
	default:
		return fmt.Errorf("persistence.driver must be %q or %q, got %q", DriverFile, DriverSQLite, c.Persistence.Driver)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// PersistencePath returns the configured persistence path, or the driver's
// default file inside dataDir.
func (c *Config) PersistencePath(dataDir string) string {
	if c.Persistence.Path != "" {
		return c.Persistence.Path
	}
	if c.Persistence.Driver == DriverSQLite {
		return filepath.Join(dataDir, defaultBindingsSQLiteFile)
	}
	return filepath.Join(dataDir, defaultBindingsFileName)
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Negotiation.TimeoutRaw != "" {
		cfg.Negotiation.Timeout, err = time.ParseDuration(cfg.Negotiation.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.Negotiation.TimeoutRaw, err)
		}
	}

	if cfg.Negotiation.SweepIntervalRaw != "" {
		cfg.Negotiation.SweepInterval, err = time.ParseDuration(cfg.Negotiation.SweepIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing sweep_interval %q: %w", cfg.Negotiation.SweepIntervalRaw, err)
		}
	}

	return nil
}
