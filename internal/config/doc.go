// Package config handles configuration loading for helpdesk-bridge.
//
// # Overview
//
// Configuration is loaded from a TOML or YAML file with environment variable
// expansion. The format is chosen by extension: .yaml and .yml are YAML,
// anything else is TOML.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from HELPDESK_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/helpdesk/bridge.toml
//  3. ~/.config/helpdesk/bridge.toml
//
// Run `helpdesk-bridge init` to write one interactively.
//
// # Example
//
//	[matrix]
//	homeserver = "https://matrix.example.org"
//	username = "helpdesk"
//	password = "${HELPDESK_MATRIX_PASSWORD}"
//
//	[support]
//	staff_room = "!staff:example.org"
//	command_prefix = "!"
//	team_name = "the Acme team"
//
//	[negotiation]
//	timeout = "10m"
//	sweep_interval = "1m"
//
//	[persistence]
//	driver = "sqlite"
//
//	[logging]
//	level = "info"
//	format = "text"
//
// # Environment Variable Expansion
//
// Syntax: ${VAR_NAME}. Unset variables expand to an empty string, which
// then fails validation for required fields.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax ("30s", "10m").
// A negotiation timeout of "0s" disables expiry.
//
// # Defaults
//
//   - support.command_prefix: "!"
//   - support.team_name: "the support team"
//   - negotiation.timeout: 10m
//   - negotiation.sweep_interval: 1m
//   - persistence.driver: "file" (bindings.json in the data directory)
//   - logging.level: "info", logging.format: "text"
package config
