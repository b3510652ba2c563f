// ABOUTME: Outbound chat.Transport implementation over the Matrix client API
// ABOUTME: Prompts become a notice plus one reaction per option; deletes are redactions

package matrix

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/helpdesk-bridge/internal/chat"
)

var _ chat.Transport = (*Bridge)(nil)

// SendMessage sends text to a room. Options turn the message into a prompt
// whose reactions are later resolved back into selections.
func (b *Bridge) SendMessage(ctx context.Context, msg chat.Outgoing) (chat.MessageID, error) {
	content, err := messageContent(msg)
	if err != nil {
		return "", err
	}

	room := id.RoomID(msg.Target)
	evtID, err := b.send(ctx, room, content)
	if err != nil {
		return "", err
	}

	if len(msg.Options) == 0 {
		return chat.MessageID(evtID), nil
	}

	b.prompts.remember(evtID, room, msg.Options)
	for _, opt := range msg.Options {
		if _, err := b.api.SendReaction(ctx, room, evtID, opt.Key); err != nil {
			b.prompts.forget(evtID)
			return chat.MessageID(evtID), fmt.Errorf("adding option %s to prompt: %w", opt.Key, err)
		}
	}

	b.logger.Debug("prompt sent", "room", room, "event", evtID, "options", len(msg.Options))
	return chat.MessageID(evtID), nil
}

// DeleteMessage redacts a message.
func (b *Bridge) DeleteMessage(ctx context.Context, target chat.ChatID, msg chat.MessageID) error {
	evtID := id.EventID(msg)
	b.prompts.forget(evtID)

	if _, err := b.api.RedactEvent(ctx, id.RoomID(target), evtID, mautrix.ReqRedact{
		TxnID: uuid.NewString(),
	}); err != nil {
		return fmt.Errorf("redacting %s: %w", msg, err)
	}
	return nil
}

// CreateThread posts a tagged thread root into the staff room. The
// confirmation is the root itself arriving back through /sync.
func (b *Bridge) CreateThread(ctx context.Context, req chat.ThreadRequest) error {
	evtID, err := b.send(ctx, id.RoomID(req.Space), threadRootContent(req))
	if err != nil {
		return err
	}
	b.logger.Info("thread root posted", "room", req.Space, "event", evtID, "conversation", req.Correlation)
	return nil
}

// AnswerInteractive acknowledges a selection with a read receipt on the reaction.
func (b *Bridge) AnswerInteractive(ctx context.Context, sel chat.Selection) error {
	if err := b.api.MarkRead(ctx, id.RoomID(sel.Chat), id.EventID(sel.ID)); err != nil {
		return fmt.Errorf("marking %s read: %w", sel.ID, err)
	}
	return nil
}

func (b *Bridge) send(ctx context.Context, room id.RoomID, content any) (id.EventID, error) {
	resp, err := b.api.SendMessageEvent(ctx, room, event.EventMessage, content, mautrix.ReqSendEvent{
		TransactionID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("sending to %s: %w", room, err)
	}
	return resp.EventID, nil
}
