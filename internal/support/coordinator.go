// ABOUTME: Session coordinator for support tickets: negotiation, binding commit, teardown and relay
// ABOUTME: Owns the binding store and negotiation slot; all outbound calls go through chat.Transport

package support

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/2389/helpdesk-bridge/internal/binding"
	"github.com/2389/helpdesk-bridge/internal/chat"
	"github.com/2389/helpdesk-bridge/internal/negotiation"
	"github.com/2389/helpdesk-bridge/internal/store"
)

// ErrTransport wraps every failed outbound call.
var ErrTransport = errors.New("transport failure")

var errAlreadyOpen = errors.New("conversation already has an open ticket")

// Outcome describes what a handler did with an event.
type Outcome string

const (
	OutcomeIgnored            Outcome = "ignored"
	OutcomeRejectedNotPrivate Outcome = "rejected_not_private"
	OutcomeRejectedOpen       Outcome = "rejected_already_open"
	OutcomeRejectedBusy       Outcome = "rejected_busy"
	OutcomeLanguagePrompted   Outcome = "language_prompted"
	OutcomeCategoryPrompted   Outcome = "category_prompted"
	OutcomeThreadRequested    Outcome = "thread_requested"
	OutcomeBound              Outcome = "bound"
	OutcomeClosedByUser       Outcome = "closed_by_user"
	OutcomeClosedByStaff      Outcome = "closed_by_staff"
	OutcomeCancelled          Outcome = "cancelled"
	OutcomeRelayedToThread    Outcome = "relayed_to_thread"
	OutcomeRelayedToUser      Outcome = "relayed_to_user"
	OutcomeDropped            Outcome = "dropped"
	OutcomeReplied            Outcome = "replied"
)

// Options configures a Coordinator.
type Options struct {
	// Staff is the room support threads are opened in.
	Staff chat.ChatID

	// CommandPrefix is quoted back to users in help texts (default "!").
	CommandPrefix string

	// TeamName is how the staff is referred to in user-facing texts.
	TeamName string

	// Audit receives ticket lifecycle entries. Optional.
	Audit store.AuditLog

	// OnChange is called after every committed binding mutation. Optional.
	OnChange func()

	Logger *slog.Logger
}

// Coordinator runs the support negotiation and routes messages between
// private conversations and staff threads.
type Coordinator struct {
	transport chat.Transport
	bindings  *binding.Store
	slot      *negotiation.Slot
	staff     chat.ChatID
	prefix    string
	team      string
	audit     store.AuditLog
	onChange  func()
	logger    *slog.Logger
	pickColor func() string
}

// New creates a Coordinator. bindings and slot are shared with nothing else;
// they are passed in so callers can restore a snapshot first.
func New(transport chat.Transport, bindings *binding.Store, slot *negotiation.Slot, opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefix := opts.CommandPrefix
	if prefix == "" {
		prefix = "!"
	}
	team := opts.TeamName
	if team == "" {
		team = "the support team"
	}
	onChange := opts.OnChange
	if onChange == nil {
		onChange = func() {}
	}

	return &Coordinator{
		transport: transport,
		bindings:  bindings,
		slot:      slot,
		staff:     opts.Staff,
		prefix:    prefix,
		team:      team,
		audit:     opts.Audit,
		onChange:  onChange,
		logger:    logger.With("component", "support"),
		pickColor: func() string {
			return threadColors[rand.IntN(len(threadColors))]
		},
	}
}


// HandleStart begins a support negotiation for a private conversation.
func (c *Coordinator) HandleStart(ctx context.Context, msg chat.Message) (Outcome, error) {
	if msg.Kind != chat.KindPrivate {
		return OutcomeRejectedNotPrivate, c.reply(ctx, msg.Chat, textPrivateOnly)
	}

	if _, ok := c.bindings.Thread(msg.Chat); ok {
		return OutcomeRejectedOpen, c.reply(ctx, msg.Chat, c.textAlreadyOpen())
	}

	// The binding check is repeated inside the slot's critical section:
	// a completing negotiation commits its binding while holding the slot.
	evicted, err := c.slot.ReserveIf(msg.Chat, msg.From.Name(), func() error {
		if _, ok := c.bindings.Thread(msg.Chat); ok {
			return errAlreadyOpen
		}
		return nil
	})
	if evicted != nil {
		c.abandon(ctx, *evicted)
	}
	switch {
	case errors.Is(err, errAlreadyOpen):
		return OutcomeRejectedOpen, c.reply(ctx, msg.Chat, c.textAlreadyOpen())
	case errors.Is(err, negotiation.ErrBusy):
		c.logger.Debug("support request rejected, negotiation in progress", "conversation", msg.Chat)
		return OutcomeRejectedBusy, c.reply(ctx, msg.Chat, textBusy)
	case err != nil:
		return OutcomeIgnored, err
	}

	_, err = c.transport.SendMessage(ctx, chat.Outgoing{
		Target:  msg.Chat,
		Text:    textChooseLanguage,
		Options: languageOptions(),
	})
	if err != nil {
		c.slot.Release(msg.Chat)
		return OutcomeIgnored, transportErr("sending language prompt", err)
	}

	c.logger.Info("support negotiation started", "conversation", msg.Chat, "requester", msg.From.Name())
	return OutcomeLanguagePrompted, nil
}

// HandleSelection applies a prompt selection to the live negotiation.
// The selection is always acknowledged exactly once.
func (c *Coordinator) HandleSelection(ctx context.Context, sel chat.Selection) (Outcome, error) {
	outcome, err := c.applySelection(ctx, sel)

	if ackErr := c.transport.AnswerInteractive(ctx, sel); ackErr != nil {
		c.logger.Warn("failed to acknowledge selection", "selection", sel.ID, "error", ackErr)
		if err == nil {
			err = transportErr("acknowledging selection", ackErr)
		}
	}
	return outcome, err
}

func (c *Coordinator) applySelection(ctx context.Context, sel chat.Selection) (Outcome, error) {
	payload, _ := negotiation.ParsePayload(sel.Data)

	switch payload {
	case negotiation.PayloadLanguageItalian, negotiation.PayloadLanguageEnglish:
		lang, _ := payload.Language()
		return c.chooseLanguage(ctx, sel, lang)
	case negotiation.PayloadCategoryBug, negotiation.PayloadCategoryHowTo, negotiation.PayloadCategoryOther:
		cat, _ := payload.Category()
		return c.chooseCategory(ctx, sel, cat)
	default:
		return OutcomeIgnored, nil
	}
}

func (c *Coordinator) chooseLanguage(ctx context.Context, sel chat.Selection, lang negotiation.Language) (Outcome, error) {
	p, err := c.slot.ChooseLanguage(sel.Chat, lang)
	if err != nil {
		c.logger.Debug("stale language selection", "conversation", sel.Chat, "error", err)
		return OutcomeIgnored, nil
	}

	c.deletePrompt(ctx, sel)

	_, err = c.transport.SendMessage(ctx, chat.Outgoing{
		Target:  sel.Chat,
		Text:    textChooseCategory(p.Language),
		Options: categoryOptions(p.Language),
	})
	if err != nil {
		c.slot.Release(sel.Chat)
		return OutcomeIgnored, transportErr("sending category prompt", err)
	}

	return OutcomeCategoryPrompted, nil
}

func (c *Coordinator) chooseCategory(ctx context.Context, sel chat.Selection, cat negotiation.Category) (Outcome, error) {
	p, err := c.slot.ChooseCategory(sel.Chat, cat)
	if err != nil {
		c.logger.Debug("stale category selection", "conversation", sel.Chat, "error", err)
		return OutcomeIgnored, nil
	}

	c.deletePrompt(ctx, sel)

	requester := sel.From.Name()
	if requester == "" {
		requester = p.Requester
	}

	err = c.transport.CreateThread(ctx, chat.ThreadRequest{
		Space:       c.staff,
		Title:       threadTitle(p, requester),
		Color:       c.pickColor(),
		InitialText: textThreadOpening,
		Correlation: sel.Chat,
	})
	if err != nil {
		c.slot.Release(sel.Chat)
		if replyErr := c.reply(ctx, sel.Chat, textThreadFailed(p.Language)); replyErr != nil {
			c.logger.Warn("failed to report thread failure", "conversation", sel.Chat, "error", replyErr)
		}
		return OutcomeIgnored, transportErr("creating thread", err)
	}

	c.logger.Info("support thread requested",
		"conversation", sel.Chat,
		"language", p.Language,
		"category", p.Category,
	)
	return OutcomeThreadRequested, nil
}

// HandleThreadCreated commits the binding for the negotiation a new thread
// was opened for.
func (c *Coordinator) HandleThreadCreated(ctx context.Context, evt chat.ThreadCreated) (Outcome, error) {
	if !evt.From.IsBot || evt.Space != c.staff || evt.Thread == "" {
		return OutcomeIgnored, nil
	}

	conv := evt.Correlation
	if conv == "" {
		// Without a correlation the thread can only belong to the live negotiation.
		if p, ok := c.slot.Current(); ok {
			conv = p.Conversation
		}
	}

	thread := binding.ThreadHandle{Root: evt.Thread}
	p, err := c.slot.Complete(conv, func(negotiation.Pending) error {
		if _, ok := c.bindings.Thread(conv); ok {
			return fmt.Errorf("committing %s: %w", conv, errAlreadyOpen)
		}
		return c.bindings.Put(conv, thread)
	})
	if errors.Is(err, negotiation.ErrNoMatch) {
		c.logger.Warn("thread created without a matching negotiation", "thread", evt.Thread, "correlation", evt.Correlation)
		return OutcomeIgnored, nil
	}
	if err != nil {
		c.logger.Error("refusing to bind thread", "conversation", conv, "thread", evt.Thread, "error", err)
		return OutcomeIgnored, err
	}

	c.onChange()
	c.record(ctx, &store.AuditEntry{
		Action:          store.TicketOpened,
		ConversationID:  string(conv),
		ThreadMessageID: string(evt.Thread),
		Actor:           p.Requester,
		Detail: map[string]any{
			"language": p.Language.String(),
			"category": p.Category.String(),
		},
	})
	c.logger.Info("support ticket opened", "conversation", conv, "thread", evt.Thread)

	_, err = c.transport.SendMessage(ctx, chat.Outgoing{
		Target: conv,
		Text:   c.textTicketCreated(p.Language, p.Category),
		Format: chat.FormatMarkdown,
	})
	if err != nil {
		return OutcomeBound, transportErr("sending ticket confirmation", err)
	}
	return OutcomeBound, nil
}

// HandleClose closes a ticket from either side. Closing a ticket that does
// not exist is a no-op.
func (c *Coordinator) HandleClose(ctx context.Context, msg chat.Message) (Outcome, error) {
	switch msg.Kind {
	case chat.KindPrivate:
		return c.closeFromUser(ctx, msg)
	case chat.KindStaff:
		if msg.Chat != c.staff {
			return OutcomeIgnored, nil
		}
		return c.closeFromStaff(ctx, msg)
	default:
		return OutcomeIgnored, nil
	}
}

func (c *Coordinator) closeFromUser(ctx context.Context, msg chat.Message) (Outcome, error) {
	thread, ok := c.bindings.Thread(msg.Chat)
	if !ok {
		// Closing mid-negotiation abandons it.
		if p, ok := c.slot.Release(msg.Chat); ok {
			return OutcomeCancelled, c.reply(ctx, msg.Chat, textCancelled(p.Language))
		}
		return OutcomeIgnored, nil
	}

	_, err := c.transport.SendMessage(ctx, chat.Outgoing{
		Target:  c.staff,
		Text:    textThreadEndedByUser(msg.From.Name()),
		ReplyTo: thread.Root,
	})
	if err != nil {
		return OutcomeIgnored, transportErr("notifying thread", err)
	}

	if !c.bindings.RemoveByConversation(msg.Chat) {
		// A concurrent close won the race.
		return OutcomeIgnored, nil
	}
	c.onChange()
	c.record(ctx, &store.AuditEntry{
		Action:          store.TicketClosedByUser,
		ConversationID:  string(msg.Chat),
		ThreadMessageID: string(thread.Root),
		Actor:           msg.From.ID,
	})
	c.logger.Info("support ticket closed by user", "conversation", msg.Chat, "thread", thread.Root)

	return OutcomeClosedByUser, c.reply(ctx, msg.Chat, textUserClosed)
}

func (c *Coordinator) closeFromStaff(ctx context.Context, msg chat.Message) (Outcome, error) {
	outcome := OutcomeIgnored
	var err error

	if msg.ReplyTo != "" {
		thread := binding.ThreadHandle{Root: msg.ReplyTo}
		if conv, ok := c.bindings.Conversation(thread); ok {
			outcome, err = c.closeThread(ctx, msg, conv, thread)
		}
	}

	// A close issued as the thread's own root leaves no reply target.
	own := binding.ThreadHandle{Root: msg.ID}
	if conv, ok := c.bindings.Conversation(own); ok && c.bindings.RemoveByThread(own) {
		c.onChange()
		c.record(ctx, &store.AuditEntry{
			Action:          store.TicketClosedByStaff,
			ConversationID:  string(conv),
			ThreadMessageID: string(own.Root),
			Actor:           msg.From.ID,
		})
		c.logger.Info("removed binding rooted at close command", "conversation", conv, "thread", msg.ID)
		if outcome == OutcomeIgnored {
			outcome = OutcomeClosedByStaff
		}
		if replyErr := c.reply(ctx, conv, c.textStaffClosed()); replyErr != nil && err == nil {
			err = replyErr
		}
	}

	return outcome, err
}

func (c *Coordinator) closeThread(ctx context.Context, msg chat.Message, conv chat.ChatID, thread binding.ThreadHandle) (Outcome, error) {
	_, err := c.transport.SendMessage(ctx, chat.Outgoing{
		Target:  c.staff,
		Text:    textThreadClosed,
		ReplyTo: thread.Root,
	})
	if err != nil {
		return OutcomeIgnored, transportErr("notifying thread", err)
	}

	if !c.bindings.RemoveByThread(thread) {
		return OutcomeIgnored, nil
	}
	c.onChange()
	c.record(ctx, &store.AuditEntry{
		Action:          store.TicketClosedByStaff,
		ConversationID:  string(conv),
		ThreadMessageID: string(thread.Root),
		Actor:           msg.From.ID,
	})
	c.logger.Info("support ticket closed by staff", "conversation", conv, "thread", thread.Root, "staff", msg.From.ID)

	return OutcomeClosedByStaff, c.reply(ctx, conv, c.textStaffClosed())
}

// HandleCancel abandons the caller's own negotiation, if it holds one.
func (c *Coordinator) HandleCancel(ctx context.Context, msg chat.Message) (Outcome, error) {
	if msg.Kind != chat.KindPrivate {
		return OutcomeIgnored, nil
	}
	p, ok := c.slot.Release(msg.Chat)
	if !ok {
		return OutcomeIgnored, nil
	}
	c.logger.Info("support negotiation cancelled", "conversation", msg.Chat)
	return OutcomeCancelled, c.reply(ctx, msg.Chat, textCancelled(p.Language))
}

// HandleGetID replies with the chat's identifier.
func (c *Coordinator) HandleGetID(ctx context.Context, msg chat.Message) (Outcome, error) {
	return OutcomeReplied, c.reply(ctx, msg.Chat, string(msg.Chat))
}

// HandleMessage relays ordinary text between a conversation and its thread.
// Messages without a binding are dropped.
func (c *Coordinator) HandleMessage(ctx context.Context, msg chat.Message) (Outcome, error) {
	if msg.Text == "" {
		return OutcomeDropped, nil
	}

	switch msg.Kind {
	case chat.KindPrivate:
		thread, ok := c.bindings.Thread(msg.Chat)
		if !ok {
			return OutcomeDropped, nil
		}
		_, err := c.transport.SendMessage(ctx, chat.Outgoing{
			Target:  c.staff,
			Text:    msg.Text,
			ReplyTo: thread.Root,
		})
		if err != nil {
			return OutcomeDropped, transportErr("relaying to thread", err)
		}
		return OutcomeRelayedToThread, nil

	case chat.KindStaff:
		if msg.Chat != c.staff || msg.ReplyTo == "" {
			return OutcomeDropped, nil
		}
		conv, ok := c.bindings.Conversation(binding.ThreadHandle{Root: msg.ReplyTo})
		if !ok {
			return OutcomeDropped, nil
		}
		if _, err := c.transport.SendMessage(ctx, chat.Outgoing{Target: conv, Text: msg.Text}); err != nil {
			return OutcomeDropped, transportErr("relaying to user", err)
		}
		return OutcomeRelayedToUser, nil

	default:
		return OutcomeDropped, nil
	}
}

// Sweep clears an abandoned negotiation and tells its user.
// Reports whether one was cleared.
func (c *Coordinator) Sweep(ctx context.Context) bool {
	p, ok := c.slot.Expire()
	if !ok {
		return false
	}
	c.abandon(ctx, p)
	return true
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (c *Coordinator) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Coordinator) abandon(ctx context.Context, p negotiation.Pending) {
	c.logger.Info("support negotiation abandoned",
		"conversation", p.Conversation,
		"state", p.State(),
		"idle", time.Since(p.UpdatedAt).Round(time.Second),
	)
	c.record(ctx, &store.AuditEntry{
		Action:         store.TicketAbandoned,
		ConversationID: string(p.Conversation),
		Detail:         map[string]any{"state": string(p.State())},
	})
	if err := c.reply(ctx, p.Conversation, c.textAbandoned(p.Language)); err != nil {
		c.logger.Warn("failed to notify abandoned negotiation", "conversation", p.Conversation, "error", err)
	}
}

// deletePrompt removes the prompt a selection was made on. Failure only
// leaves a stale prompt behind, so it is logged rather than returned.
func (c *Coordinator) deletePrompt(ctx context.Context, sel chat.Selection) {
	if sel.Prompt == "" {
		return
	}
	if err := c.transport.DeleteMessage(ctx, sel.Chat, sel.Prompt); err != nil {
		c.logger.Warn("failed to delete prompt", "conversation", sel.Chat, "prompt", sel.Prompt, "error", err)
	}
}

func (c *Coordinator) reply(ctx context.Context, target chat.ChatID, text string) error {
	if _, err := c.transport.SendMessage(ctx, chat.Outgoing{Target: target, Text: text}); err != nil {
		return transportErr("sending reply", err)
	}
	return nil
}

func (c *Coordinator) record(ctx context.Context, e *store.AuditEntry) {
	if c.audit == nil {
		return
	}
	if err := c.audit.AppendAudit(ctx, e); err != nil {
		c.logger.Warn("failed to append audit entry", "action", e.Action, "error", err)
	}
}

func transportErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}
