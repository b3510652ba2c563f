// ABOUTME: Routes inbound chat events to the support coordinator
// ABOUTME: Commands go to their handler; other text is relayed; outcomes are logged

package dispatch

import (
	"context"
	"log/slog"

	"github.com/2389/helpdesk-bridge/internal/chat"
	"github.com/2389/helpdesk-bridge/internal/support"
)

// Handler is the session coordinator as seen by the router.
type Handler interface {
	HandleStart(ctx context.Context, msg chat.Message) (support.Outcome, error)
	HandleClose(ctx context.Context, msg chat.Message) (support.Outcome, error)
	HandleCancel(ctx context.Context, msg chat.Message) (support.Outcome, error)
	HandleGetID(ctx context.Context, msg chat.Message) (support.Outcome, error)
	HandleMessage(ctx context.Context, msg chat.Message) (support.Outcome, error)
	HandleSelection(ctx context.Context, sel chat.Selection) (support.Outcome, error)
	HandleThreadCreated(ctx context.Context, evt chat.ThreadCreated) (support.Outcome, error)
}

// Router turns inbound events into coordinator calls.
type Router struct {
	handler Handler
	prefix  string
	logger  *slog.Logger
}

// NewRouter creates a Router. An empty prefix defaults to "!".
func NewRouter(handler Handler, prefix string, logger *slog.Logger) *Router {
	if prefix == "" {
		prefix = "!"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		handler: handler,
		prefix:  prefix,
		logger:  logger.With("component", "dispatch"),
	}
}

// Message routes a text message. Messages from bots, including our own,
// are never handled.
func (r *Router) Message(ctx context.Context, msg chat.Message) support.Outcome {
	if msg.From.IsBot {
		return support.OutcomeIgnored
	}

	cmd := ParseCommand(r.prefix, msg.Text)

	var (
		out support.Outcome
		err error
	)
	switch cmd {
	case CommandSupport:
		out, err = r.handler.HandleStart(ctx, msg)
	case CommandClose:
		out, err = r.handler.HandleClose(ctx, msg)
	case CommandCancel:
		out, err = r.handler.HandleCancel(ctx, msg)
	case CommandGetID:
		out, err = r.handler.HandleGetID(ctx, msg)
	default:
		out, err = r.handler.HandleMessage(ctx, msg)
	}

	r.log(out, err, "message", "chat", msg.Chat, "command", cmd.String())
	return out
}

// Selection routes a prompt selection.
func (r *Router) Selection(ctx context.Context, sel chat.Selection) support.Outcome {
	if sel.From.IsBot {
		return support.OutcomeIgnored
	}
	out, err := r.handler.HandleSelection(ctx, sel)
	r.log(out, err, "selection", "chat", sel.Chat, "data", sel.Data)
	return out
}

// ThreadCreated routes a thread-creation confirmation.
func (r *Router) ThreadCreated(ctx context.Context, evt chat.ThreadCreated) support.Outcome {
	out, err := r.handler.HandleThreadCreated(ctx, evt)
	r.log(out, err, "thread_created", "thread", evt.Thread, "correlation", evt.Correlation)
	return out
}

func (r *Router) log(out support.Outcome, err error, kind string, args ...any) {
	args = append(args, "event", kind, "outcome", out)
	if err != nil {
		r.logger.Warn("handler failed", append(args, "error", err)...)
		return
	}
	r.logger.Debug("event handled", args...)
}
