// ABOUTME: Classifies rooms as staff, private or group and resolves sender names
// ABOUTME: Both lookups are cached and invalidated by membership events

package matrix

import (
	"context"
	"log/slog"
	"sync"

	"maunium.net/go/mautrix/id"

	"github.com/2389/helpdesk-bridge/internal/chat"
)

// A room with at most this many joined members (the user and the bot) is a
// private conversation.
const privateRoomMembers = 2

type roomDirectory struct {
	api    API
	self   id.UserID
	staff  id.RoomID
	logger *slog.Logger

	mu    sync.Mutex
	kinds map[id.RoomID]chat.Kind
	names map[id.UserID]string
}

func newRoomDirectory(api API, self id.UserID, staff id.RoomID, logger *slog.Logger) *roomDirectory {
	return &roomDirectory{
		api:    api,
		self:   self,
		staff:  staff,
		logger: logger,
		kinds:  make(map[id.RoomID]chat.Kind),
		names:  make(map[id.UserID]string),
	}
}

// kind classifies a room. Lookup failures yield KindUnknown and are not cached.
func (d *roomDirectory) kind(ctx context.Context, room id.RoomID) chat.Kind {
	if room == d.staff {
		return chat.KindStaff
	}

	d.mu.Lock()
	k, ok := d.kinds[room]
	d.mu.Unlock()
	if ok {
		return k
	}

	resp, err := d.api.JoinedMembers(ctx, room)
	if err != nil {
		d.logger.Warn("failed to list room members", "room", room, "error", err)
		return chat.KindUnknown
	}

	k = chat.KindGroup
	if len(resp.Joined) <= privateRoomMembers {
		k = chat.KindPrivate
	}

	d.mu.Lock()
	d.kinds[room] = k
	d.mu.Unlock()
	return k
}

// forgetRoom drops the cached kind after a membership change.
func (d *roomDirectory) forgetRoom(room id.RoomID) {
	d.mu.Lock()
	delete(d.kinds, room)
	d.mu.Unlock()
}

// user builds the chat.User for a sender, resolving the display name once.
// Without a display name the localpart is used.
func (d *roomDirectory) user(ctx context.Context, sender id.UserID) chat.User {
	u := chat.User{ID: sender.String(), IsBot: sender == d.self}

	d.mu.Lock()
	name, ok := d.names[sender]
	d.mu.Unlock()
	if ok {
		u.DisplayName = name
		return u
	}

	if resp, err := d.api.GetDisplayName(ctx, sender); err == nil && resp.DisplayName != "" {
		name = resp.DisplayName
	} else {
		if err != nil {
			d.logger.Debug("display name lookup failed", "user", sender, "error", err)
		}
		name = localpart(sender)
	}

	d.setName(sender, name)
	u.DisplayName = name
	return u
}

func (d *roomDirectory) setName(user id.UserID, name string) {
	if name == "" {
		return
	}
	d.mu.Lock()
	d.names[user] = name
	d.mu.Unlock()
}

func localpart(user id.UserID) string {
	lp, _, err := user.Parse()
	if err != nil || lp == "" {
		return user.String()
	}
	return lp
}
