// ABOUTME: /sync event handlers translating Matrix events into chat events
// ABOUTME: Handles messages, reactions on prompts, own thread roots and invites

package matrix

import (
	"context"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/helpdesk-bridge/internal/chat"
)

// handleMessage routes text messages and recognizes the bot's own thread roots.
func (b *Bridge) handleMessage(ctx context.Context, evt *event.Event) {
	if !b.seen.First(evt.ID.String()) {
		return
	}

	content := evt.Content.AsMessage()

	if evt.Sender == b.self {
		b.handleOwnMessage(ctx, evt)
		return
	}

	if content.MsgType != event.MsgText {
		return
	}
	// Edits would relay the same text twice.
	if content.RelatesTo != nil && content.RelatesTo.GetReplaceID() != "" {
		return
	}

	msg := chat.Message{
		ID:   chat.MessageID(evt.ID),
		Chat: chat.ChatID(evt.RoomID),
		Kind: b.rooms.kind(ctx, evt.RoomID),
		From: b.rooms.user(ctx, evt.Sender),
		Text: content.Body,
	}
	if content.RelatesTo != nil {
		if parent := content.RelatesTo.GetThreadParent(); parent != "" {
			msg.ReplyTo = chat.MessageID(parent)
		} else if reply := content.RelatesTo.GetReplyTo(); reply != "" {
			msg.ReplyTo = chat.MessageID(reply)
		}
	}

	b.logger.Debug("received message",
		"room", evt.RoomID,
		"sender", evt.Sender,
		"kind", msg.Kind,
		"content", truncate(msg.Text, 50),
	)
	b.router.Message(ctx, msg)
}

// handleOwnMessage turns a tagged thread root into a ThreadCreated event.
func (b *Bridge) handleOwnMessage(ctx context.Context, evt *event.Event) {
	tag, ok := parseTicketTag(evt.Content.Raw)
	if !ok {
		return
	}
	b.router.ThreadCreated(ctx, chat.ThreadCreated{
		Thread:      chat.MessageID(evt.ID),
		Space:       chat.ChatID(evt.RoomID),
		From:        chat.User{ID: evt.Sender.String(), IsBot: true},
		Correlation: chat.ChatID(tag.Conversation),
	})
}

// handleReaction turns a reaction on a known prompt into a Selection.
func (b *Bridge) handleReaction(ctx context.Context, evt *event.Event) {
	// The bot seeds every prompt with its own reactions.
	if evt.Sender == b.self || !b.seen.First(evt.ID.String()) {
		return
	}

	rel := evt.Content.AsReaction().GetRelatesTo()
	if rel.Type != event.RelAnnotation {
		return
	}

	payload, known := b.prompts.resolve(rel.EventID, evt.RoomID, rel.Key)
	if !known {
		return
	}

	b.router.Selection(ctx, chat.Selection{
		ID:     chat.MessageID(evt.ID),
		Chat:   chat.ChatID(evt.RoomID),
		Kind:   b.rooms.kind(ctx, evt.RoomID),
		From:   b.rooms.user(ctx, evt.Sender),
		Prompt: chat.MessageID(rel.EventID),
		Data:   payload,
	})
}

// handleMember joins rooms the bot is invited to and keeps the room cache fresh.
func (b *Bridge) handleMember(ctx context.Context, evt *event.Event) {
	b.rooms.forgetRoom(evt.RoomID)

	member := evt.Content.AsMember()
	target := id.UserID(evt.GetStateKey())
	if member.Displayname != "" {
		b.rooms.setName(target, member.Displayname)
	}

	if target != b.self || member.Membership != event.MembershipInvite {
		return
	}
	// Invites arrive as stripped state without an event ID.
	if evt.ID != "" && !b.seen.First(evt.ID.String()) {
		return
	}

	if _, err := b.api.JoinRoomByID(ctx, evt.RoomID); err != nil {
		b.logger.Warn("failed to join room", "room", evt.RoomID, "inviter", evt.Sender, "error", err)
		return
	}
	b.logger.Info("joined room", "room", evt.RoomID, "inviter", evt.Sender)
}

// truncate shortens a string to the given max rune count, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
