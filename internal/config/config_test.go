// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers TOML and YAML loading, env var expansion, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validTOML = `
[matrix]
homeserver = "https://matrix.example.org"
username = "helpdesk"
password = "secret"
recovery_key = "EsTc 1234"

[support]
staff_room = "!staff:example.org"
command_prefix = "/"
team_name = "the Acme team"

[negotiation]
timeout = "5m"
sweep_interval = "30s"

[persistence]
driver = "sqlite"
path = "/var/lib/helpdesk/state.db"

[logging]
level = "debug"
format = "json"
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidTOML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "bridge.toml", validTOML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Matrix.Homeserver != "https://matrix.example.org" {
		t.Errorf("Matrix.Homeserver = %q", cfg.Matrix.Homeserver)
	}
	if cfg.Matrix.RecoveryKey != "EsTc 1234" {
		t.Errorf("Matrix.RecoveryKey = %q", cfg.Matrix.RecoveryKey)
	}
	if cfg.Support.StaffRoom != "!staff:example.org" {
		t.Errorf("Support.StaffRoom = %q", cfg.Support.StaffRoom)
	}
	if cfg.Support.CommandPrefix != "/" {
		t.Errorf("Support.CommandPrefix = %q, want %q", cfg.Support.CommandPrefix, "/")
	}
	if cfg.Support.TeamName != "the Acme team" {
		t.Errorf("Support.TeamName = %q", cfg.Support.TeamName)
	}
	if cfg.Negotiation.Timeout != 5*time.Minute {
		t.Errorf("Negotiation.Timeout = %v, want 5m", cfg.Negotiation.Timeout)
	}
	if cfg.Negotiation.SweepInterval != 30*time.Second {
		t.Errorf("Negotiation.SweepInterval = %v, want 30s", cfg.Negotiation.SweepInterval)
	}
	if cfg.Persistence.Driver != DriverSQLite {
		t.Errorf("Persistence.Driver = %q", cfg.Persistence.Driver)
	}
	if cfg.PersistencePath("/data") != "/var/lib/helpdesk/state.db" {
		t.Errorf("PersistencePath() = %q", cfg.PersistencePath("/data"))
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	content := `
matrix:
  homeserver: "https://matrix.example.org"
  username: "helpdesk"
  password: "secret"
support:
  staff_room: "!staff:example.org"
negotiation:
  timeout: "2m"
`
	for _, name := range []string{"bridge.yaml", "bridge.YML"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, name, content))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Support.StaffRoom != "!staff:example.org" {
				t.Errorf("Support.StaffRoom = %q", cfg.Support.StaffRoom)
			}
			if cfg.Negotiation.Timeout != 2*time.Minute {
				t.Errorf("Negotiation.Timeout = %v, want 2m", cfg.Negotiation.Timeout)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	content := `
[matrix]
homeserver = "https://matrix.example.org"
username = "helpdesk"
password = "secret"

[support]
staff_room = "!staff:example.org"
`
	cfg, err := Load(writeConfig(t, "bridge.toml", content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Support.CommandPrefix != DefaultCommandPrefix {
		t.Errorf("CommandPrefix = %q, want %q", cfg.Support.CommandPrefix, DefaultCommandPrefix)
	}
	if cfg.Support.TeamName != DefaultTeamName {
		t.Errorf("TeamName = %q, want %q", cfg.Support.TeamName, DefaultTeamName)
	}
	if cfg.Negotiation.Timeout != DefaultNegotiationTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Negotiation.Timeout, DefaultNegotiationTimeout)
	}
	if cfg.Negotiation.SweepInterval != DefaultSweepInterval {
		t.Errorf("SweepInterval = %v, want %v", cfg.Negotiation.SweepInterval, DefaultSweepInterval)
	}
	if cfg.Persistence.Driver != DriverFile {
		t.Errorf("Driver = %q, want %q", cfg.Persistence.Driver, DriverFile)
	}
	if got := cfg.PersistencePath("/data"); got != filepath.Join("/data", "bindings.json") {
		t.Errorf("PersistencePath() = %q", got)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_ZeroTimeoutDisablesExpiry(t *testing.T) {
	content := strings.Replace(validTOML, `timeout = "5m"`, `timeout = "0s"`, 1)
	cfg, err := Load(writeConfig(t, "bridge.toml", content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Negotiation.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", cfg.Negotiation.Timeout)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_HELPDESK_PASSWORD", "from-env")
	t.Setenv("TEST_HELPDESK_ROOM", "!env:example.org")

	content := `
[matrix]
homeserver = "https://matrix.example.org"
username = "helpdesk"
password = "${TEST_HELPDESK_PASSWORD}"

[support]
staff_room = "${TEST_HELPDESK_ROOM}"
`
	cfg, err := Load(writeConfig(t, "bridge.toml", content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Matrix.Password != "from-env" {
		t.Errorf("Password = %q, want %q", cfg.Matrix.Password, "from-env")
	}
	if cfg.Support.StaffRoom != "!env:example.org" {
		t.Errorf("StaffRoom = %q", cfg.Support.StaffRoom)
	}
}

func TestLoad_UnsetEnvVarFailsValidation(t *testing.T) {
	content := strings.Replace(validTOML, `password = "secret"`, `password = "${TEST_HELPDESK_UNSET_VAR}"`, 1)
	_, err := Load(writeConfig(t, "bridge.toml", content))
	if err == nil || !strings.Contains(err.Error(), "matrix.password is required") {
		t.Errorf("Load() error = %v, want password required", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		wantErr string
	}{
		{"missing homeserver", [2]string{`homeserver = "https://matrix.example.org"`, ``}, "matrix.homeserver is required"},
		{"bad homeserver scheme", [2]string{`https://matrix.example.org`, `ftp://matrix.example.org`}, "http or https"},
		{"missing username", [2]string{`username = "helpdesk"`, ``}, "matrix.username is required"},
		{"bad staff room", [2]string{`!staff:example.org`, `#staff:example.org`}, "support.staff_room"},
		{"prefix with space", [2]string{`command_prefix = "/"`, `command_prefix = "! "`}, "command_prefix"},
		{"bad timeout", [2]string{`timeout = "5m"`, `timeout = "soon"`}, "parsing timeout"},
		{"negative sweep", [2]string{`sweep_interval = "30s"`, `sweep_interval = "-1s"`}, "sweep_interval must not be negative"},
		{"unknown driver", [2]string{`driver = "sqlite"`, `driver = "redis"`}, "persistence.driver"},
		{"unknown log format", [2]string{`format = "json"`, `format = "xml"`}, "logging.format"},
		{"invalid toml", [2]string{`[logging]`, `[logging`}, "parsing config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.Replace(validTOML, tt.replace[0], tt.replace[1], 1)
			_, err := Load(writeConfig(t, "bridge.toml", content))
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("Load() error = %v", err)
	}
}

func TestPersistencePath_SQLiteDefault(t *testing.T) {
	cfg := &Config{Persistence: PersistenceConfig{Driver: DriverSQLite}}
	if got := cfg.PersistencePath("/data"); got != filepath.Join("/data", "helpdesk.db") {
		t.Errorf("PersistencePath() = %q", got)
	}
}
