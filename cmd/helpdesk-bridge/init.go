// ABOUTME: Interactive "init" subcommand for helpdesk-bridge
// ABOUTME: Prompts for account and staff room settings and writes bridge.toml

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"

	"github.com/2389/helpdesk-bridge/internal/config"
)

const configHeader = `# helpdesk-bridge configuration
# Generated by helpdesk-bridge init
#
# Values may reference environment variables as ${VAR_NAME}.

`

func runInit(in io.Reader) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println("    Interactive Setup")
	fmt.Println("    -----------------")
	fmt.Println()

	configPath := getConfigPath()
	reader := bufio.NewReader(in)

	ask := func(prompt, def string) string {
		green.Print("    ▶ ")
		if def != "" {
			fmt.Printf("%s [%s]: ", prompt, def)
		} else {
			fmt.Printf("%s: ", prompt)
		}
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return def
		}
		return answer
	}

	if _, err := os.Stat(configPath); err == nil {
		yellow.Printf("    Config already exists at %s\n", configPath)
		fmt.Print("    Overwrite? [y/N]: ")
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("    Aborted.")
			return nil
		}
		fmt.Println()
	}

	cfg := config.Config{
		Matrix: config.MatrixConfig{
			Homeserver:  ask("Matrix homeserver URL", "https://matrix.org"),
			Username:    ask("Matrix username", ""),
			Password:    ask("Matrix password", ""),
			RecoveryKey: ask("Matrix recovery key (optional, for E2EE)", ""),
		},
		Support: config.SupportConfig{
			StaffRoom:     ask("Staff room ID (e.g. !abc:example.org)", ""),
			CommandPrefix: ask("Command prefix", config.DefaultCommandPrefix),
			TeamName:      ask("Team name shown to users", config.DefaultTeamName),
		},
		Negotiation: config.NegotiationConfig{
			TimeoutRaw:       config.DefaultNegotiationTimeout.String(),
			SweepIntervalRaw: config.DefaultSweepInterval.String(),
		},
		Persistence: config.PersistenceConfig{
			Driver: ask("Persistence driver (file or sqlite)", config.DefaultPersistenceDriver),
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	data, err := renderConfig(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Println()
	green.Printf("    ✓ Config written to %s\n", configPath)
	fmt.Println()
	fmt.Println("    Next steps:")
	fmt.Println("    1. Invite the bot account to the staff room")
	fmt.Println("    2. Run: helpdesk-bridge")
	fmt.Println()

	return nil
}

// renderConfig encodes cfg as TOML under the generated-file header.
func renderConfig(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}
