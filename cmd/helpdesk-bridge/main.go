// ABOUTME: Entry point for helpdesk-bridge
// ABOUTME: Relays private Matrix support chats into threads of a staff room

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/helpdesk-bridge/internal/binding"
	"github.com/2389/helpdesk-bridge/internal/chat"
	"github.com/2389/helpdesk-bridge/internal/config"
	"github.com/2389/helpdesk-bridge/internal/dispatch"
	"github.com/2389/helpdesk-bridge/internal/matrix"
	"github.com/2389/helpdesk-bridge/internal/negotiation"
	"github.com/2389/helpdesk-bridge/internal/store"
	"github.com/2389/helpdesk-bridge/internal/support"
)

const banner = `
 _          _           _           _
| |__   ___| |_ __   __| | ___  ___| | __
| '_ \ / _ \ | '_ \ / _' |/ _ \/ __| |/ /
| | | |  __/ | |_) | (_| |  __/\__ \   <
|_| |_|\___|_| .__/ \__,_|\___||___/_|\_\
             |_|
`

// getConfigPath returns the path to the bridge config file.
// Priority: HELPDESK_CONFIG env var > XDG_CONFIG_HOME/helpdesk/bridge.toml > ~/.config/helpdesk/bridge.toml
func getConfigPath() string {
	if envPath := os.Getenv("HELPDESK_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "bridge.toml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "helpdesk", "bridge.toml")
}

// getDataPath returns the directory for bindings and the crypto store.
// Priority: XDG_DATA_HOME/helpdesk > ~/.local/share/helpdesk
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "helpdesk")
}

func main() {
	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "init":
			err = runInit(os.Stdin)
		case "audit":
			err = runAudit(os.Args[2:], os.Stdout)
		case "help", "-h", "--help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
			printUsage()
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// printUsage lists the subcommands.
func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: helpdesk-bridge [command] [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  (none)                  Run the bridge")
	fmt.Println("  init                    Write a config file interactively")
	fmt.Println("  audit                   List the ticket audit log (sqlite driver only)")
	fmt.Println("    --conversation <id>   Only entries for this private conversation")
	fmt.Println("    --action <action>     opened, closed_by_user, closed_by_staff or abandoned")
	fmt.Println("    --limit <n>           Maximum entries (default 100, max 1000)")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  HELPDESK_CONFIG          Config file path (default: $XDG_CONFIG_HOME/helpdesk/bridge.toml)")
	fmt.Println("  XDG_DATA_HOME            Parent of the data directory (default: ~/.local/share)")
	fmt.Println()
}

func run() error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	configPath := getConfigPath()
	dataPath := getDataPath()

	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	persistencePath := cfg.PersistencePath(dataPath)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:      %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver:  %s\n", cfg.Matrix.Homeserver)
	green.Print("    ▶ ")
	fmt.Printf("Username:    %s\n", cfg.Matrix.Username)
	green.Print("    ▶ ")
	fmt.Printf("Staff room:  %s\n", cfg.Support.StaffRoom)
	green.Print("    ▶ ")
	fmt.Printf("Persistence: %s (%s)\n", persistencePath, cfg.Persistence.Driver)
	if cfg.Matrix.RecoveryKey != "" {
		green.Print("    ▶ ")
		fmt.Println("Encryption:  enabled")
	}
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	snap, audit, closeStore, err := openStore(cfg.Persistence.Driver, persistencePath, logger)
	if err != nil {
		return fmt.Errorf("opening persistence: %w", err)
	}
	defer closeStore()

	bindings := binding.NewStore()
	restoreBindings(ctx, snap, bindings, logger)

	bridge, err := matrix.NewBridge(cfg.Matrix, cfg.Support.StaffRoom, logger)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	if err := bridge.Login(ctx); err != nil {
		return fmt.Errorf("matrix login: %w", err)
	}

	if cfg.Matrix.RecoveryKey != "" {
		enc, err := matrix.EnableEncryption(ctx, bridge.Client(), cfg.Matrix.RecoveryKey, dataPath, logger)
		if err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}
		defer enc.Close()
	} else {
		logger.Info("encryption disabled (no recovery key)")
	}

	checkpoint := support.NewCheckpointer(snap, bindings, logger)
	coordinator := support.New(bridge, bindings, negotiation.NewSlot(cfg.Negotiation.Timeout),
		supportOptions(cfg, audit, checkpoint.Notify, logger))
	bridge.SetRouter(dispatch.NewRouter(coordinator, cfg.Support.CommandPrefix, logger))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		checkpoint.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		coordinator.RunSweeper(ctx, cfg.Negotiation.SweepInterval)
	}()

	logger.Info("starting bridge", "open_tickets", bindings.Len())
	runErr := bridge.Run(ctx)

	// Stop the background loops; the checkpointer saves once more on the way out.
	cancel()
	wg.Wait()
	return runErr
}

// supportOptions maps the [support] config section onto the coordinator.
func supportOptions(cfg *config.Config, audit store.AuditLog, onChange func(), logger *slog.Logger) support.Options {
	return support.Options{
		Staff:         chat.ChatID(cfg.Support.StaffRoom),
		CommandPrefix: cfg.Support.CommandPrefix,
		TeamName:      cfg.Support.TeamName,
		Audit:         audit,
		OnChange:      onChange,
		Logger:        logger,
	}
}

// openStore builds the snapshot driver. Only the SQLite driver keeps an audit log.
func openStore(driver, path string, logger *slog.Logger) (store.Snapshotter, store.AuditLog, func(), error) {
	switch driver {
	case config.DriverSQLite:
		s, err := store.NewSQLiteStore(path, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, func() { s.Close() }, nil
	case config.DriverFile:
		return store.NewFileSnapshot(path, logger), nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown persistence driver %q", driver)
	}
}

// restoreBindings loads the last snapshot. A missing or unreadable snapshot
// starts the bridge with no open tickets.
func restoreBindings(ctx context.Context, snap store.Snapshotter, bindings *binding.Store, logger *slog.Logger) {
	loaded, err := snap.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrPersistence) {
			logger.Warn("could not load bindings, starting empty", "error", err)
		} else {
			logger.Error("unexpected error loading bindings, starting empty", "error", err)
		}
		return
	}

	for _, b := range bindings.Restore(loaded) {
		logger.Warn("skipped conflicting binding", "conversation", b.Conversation, "thread", b.Thread.Root)
	}
	logger.Info("bindings restored", "count", bindings.Len())
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
