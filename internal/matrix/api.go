// ABOUTME: The subset of the mautrix client the bridge calls
// ABOUTME: *mautrix.Client satisfies API; tests substitute a recording fake

package matrix

import (
	"context"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// API is the homeserver surface used after login.
type API interface {
	SendMessageEvent(ctx context.Context, roomID id.RoomID, eventType event.Type, contentJSON interface{}, extra ...mautrix.ReqSendEvent) (*mautrix.RespSendEvent, error)
	SendReaction(ctx context.Context, roomID id.RoomID, eventID id.EventID, reaction string) (*mautrix.RespSendEvent, error)
	RedactEvent(ctx context.Context, roomID id.RoomID, eventID id.EventID, extra ...mautrix.ReqRedact) (*mautrix.RespSendEvent, error)
	MarkRead(ctx context.Context, roomID id.RoomID, eventID id.EventID) error
	JoinedMembers(ctx context.Context, roomID id.RoomID) (*mautrix.RespJoinedMembers, error)
	JoinRoomByID(ctx context.Context, roomID id.RoomID) (*mautrix.RespJoinRoom, error)
	GetDisplayName(ctx context.Context, mxid id.UserID) (*mautrix.RespUserDisplayName, error)
}

var _ API = (*mautrix.Client)(nil)

// ticketKey tags thread roots the bot posts. Its value carries the
// conversation the thread was opened for, so the root can be matched when
// it comes back through /sync.
const ticketKey = "helpdesk.ticket"

type ticketTag struct {
	Conversation string `json:"conversation"`
}

func (t ticketTag) raw() map[string]any {
	return map[string]any{"conversation": t.Conversation}
}

// parseTicketTag reads the tag out of an event's raw content.
func parseTicketTag(raw map[string]any) (ticketTag, bool) {
	v, ok := raw[ticketKey]
	if !ok {
		return ticketTag{}, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ticketTag{}, false
	}
	conv, _ := m["conversation"].(string)
	return ticketTag{Conversation: conv}, true
}
