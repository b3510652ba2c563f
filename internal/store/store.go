// ABOUTME: Persistence interfaces and record types for helpdesk-bridge
// ABOUTME: Defines the binding snapshot contract and the ticket audit log

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2389/helpdesk-bridge/internal/binding"
	"github.com/2389/helpdesk-bridge/internal/chat"
)

// ErrPersistence wraps every failure to read or write durable state.
var ErrPersistence = errors.New("persistence failure")

// Snapshotter loads and saves whole snapshots of the open bindings.
// Load returns an empty slice when nothing was saved yet.
// Save replaces whatever was saved before.
type Snapshotter interface {
	Load(ctx context.Context) ([]binding.Binding, error)
	Save(ctx context.Context, bindings []binding.Binding) error
}

// Record is the persisted form of one binding.
type Record struct {
	ConversationID  string    `json:"conversation_id"`
	ThreadMessageID string    `json:"thread_message_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// ToRecords converts bindings to their persisted form.
func ToRecords(bindings []binding.Binding) []Record {
	records := make([]Record, 0, len(bindings))
	for _, b := range bindings {
		records = append(records, Record{
			ConversationID:  string(b.Conversation),
			ThreadMessageID: string(b.Thread.Root),
			CreatedAt:       b.CreatedAt.UTC(),
		})
	}
	return records
}

// FromRecords converts persisted records back to bindings.
func FromRecords(records []Record) []binding.Binding {
	bindings := make([]binding.Binding, 0, len(records))
	for _, r := range records {
		bindings = append(bindings, binding.Binding{
			Conversation: chat.ChatID(r.ConversationID),
			Thread:       binding.ThreadHandle{Root: chat.MessageID(r.ThreadMessageID)},
			CreatedAt:    r.CreatedAt.UTC(),
		})
	}
	return bindings
}

// TicketAction is an auditable ticket lifecycle step.
type TicketAction string

const (
	TicketOpened        TicketAction = "opened"
	TicketClosedByUser  TicketAction = "closed_by_user"
	TicketClosedByStaff TicketAction = "closed_by_staff"
	TicketAbandoned     TicketAction = "abandoned"
)

// ValidTicketActions lists all valid ticket actions.
var ValidTicketActions = []TicketAction{
	TicketOpened,
	TicketClosedByUser,
	TicketClosedByStaff,
	TicketAbandoned,
}

// ParseTicketAction converts a string to a TicketAction.
func ParseTicketAction(s string) (TicketAction, error) {
	for _, a := range ValidTicketActions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown ticket action %q", s)
}

// AuditEntry records one ticket lifecycle step.
type AuditEntry struct {
	ID              string       // UUID v4
	Action          TicketAction // what happened
	ConversationID  string       // private conversation
	ThreadMessageID string       // staff thread root, empty when no thread exists
	Actor           string       // user who triggered it, empty for system actions
	Timestamp       time.Time
	Detail          map[string]any
}

// AuditFilter narrows ListAudit results.
type AuditFilter struct {
	ConversationID *string
	Action         *TicketAction
	Limit          int // default 100, max 1000
}

// AuditLog records ticket lifecycle steps.
type AuditLog interface {
	AppendAudit(ctx context.Context, e *AuditEntry) error
}
