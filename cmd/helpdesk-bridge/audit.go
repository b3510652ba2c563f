// ABOUTME: "audit" subcommand for helpdesk-bridge
// ABOUTME: Lists the ticket audit log kept by the SQLite persistence driver

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/helpdesk-bridge/internal/config"
	"github.com/2389/helpdesk-bridge/internal/store"
)

// auditLister is the read side of the audit log.
type auditLister interface {
	ListAudit(ctx context.Context, f store.AuditFilter) ([]store.AuditEntry, error)
}

func runAudit(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(out)
	conversation := fs.String("conversation", "", "only show entries for this private conversation")
	action := fs.String("action", "", "only show entries with this action (opened, closed_by_user, closed_by_staff, abandoned)")
	limit := fs.Int("limit", 0, "maximum number of entries (default 100, max 1000)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter, err := auditFilter(*conversation, *action, *limit)
	if err != nil {
		return err
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}
	if cfg.Persistence.Driver != config.DriverSQLite {
		return fmt.Errorf("audit log requires persistence.driver = %q, got %q", config.DriverSQLite, cfg.Persistence.Driver)
	}

	// Only errors; the listing itself goes to out.
	logger := setupLogger("error", cfg.Logging.Format)
	s, err := store.NewSQLiteStore(cfg.PersistencePath(getDataPath()), logger)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer s.Close()

	return printAudit(context.Background(), s, filter, out)
}

func auditFilter(conversation, action string, limit int) (store.AuditFilter, error) {
	f := store.AuditFilter{Limit: limit}
	if conversation != "" {
		f.ConversationID = &conversation
	}
	if action != "" {
		a, err := store.ParseTicketAction(action)
		if err != nil {
			return f, err
		}
		f.Action = &a
	}
	return f, nil
}

func printAudit(ctx context.Context, lister auditLister, f store.AuditFilter, out io.Writer) error {
	entries, err := lister.ListAudit(ctx, f)
	if err != nil {
		return fmt.Errorf("ListAudit: %w", err)
	}

	cyan := color.New(color.FgCyan)
	fmt.Fprintln(out)
	cyan.Fprintln(out, "  Ticket Audit Log")
	cyan.Fprintln(out, "  ----------------")

	if len(entries) == 0 {
		fmt.Fprintln(out, "  (no entries)")
		fmt.Fprintln(out)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TIME\tACTION\tCONVERSATION\tTHREAD\tACTOR")
	fmt.Fprintln(w, "  ----\t------\t------------\t------\t-----")

	for _, e := range entries {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("Jan 02 15:04:05"),
			e.Action,
			e.ConversationID,
			orDash(e.ThreadMessageID),
			orDash(e.Actor),
		)
	}
	w.Flush()
	fmt.Fprintln(out)

	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var _ auditLister = (*store.SQLiteStore)(nil)
