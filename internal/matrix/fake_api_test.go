package matrix

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/helpdesk-bridge/internal/chat"
	"github.com/2389/helpdesk-bridge/internal/support"
)

var errHomeserver = errors.New("homeserver unavailable")

const (
	botID     = id.UserID("@helpdesk:example.org")
	aliceID   = id.UserID("@alice:example.org")
	staffRoom = id.RoomID("!staff:example.org")
	aliceRoom = id.RoomID("!alice-dm:example.org")
	groupRoom = id.RoomID("!lobby:example.org")
)

type sentEvent struct {
	Room    id.RoomID
	ID      id.EventID
	Content any
	TxnID   string
}

type reaction struct {
	Room  id.RoomID
	Event id.EventID
	Key   string
}

type fakeAPI struct {
	mu         sync.Mutex
	nextID     int
	sent       []sentEvent
	reactions  []reaction
	redactions []id.EventID
	reads      []id.EventID
	joins      []id.RoomID
	memberReqs int

	members      map[id.RoomID]int
	displayNames map[id.UserID]string

	failSend     bool
	failReaction bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		members: map[id.RoomID]int{
			aliceRoom: 2,
			groupRoom: 5,
		},
		displayNames: map[id.UserID]string{
			aliceID: "Alice",
		},
	}
}

func (f *fakeAPI) eventID() id.EventID {
	f.nextID++
	return id.EventID(fmt.Sprintf("$evt%d", f.nextID))
}

func (f *fakeAPI) SendMessageEvent(_ context.Context, roomID id.RoomID, _ event.Type, contentJSON interface{}, extra ...mautrix.ReqSendEvent) (*mautrix.RespSendEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return nil, errHomeserver
	}
	ev := sentEvent{Room: roomID, ID: f.eventID(), Content: contentJSON}
	if len(extra) > 0 {
		ev.TxnID = extra[0].TransactionID
	}
	f.sent = append(f.sent, ev)
	return &mautrix.RespSendEvent{EventID: ev.ID}, nil
}

func (f *fakeAPI) SendReaction(_ context.Context, roomID id.RoomID, eventID id.EventID, key string) (*mautrix.RespSendEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReaction {
		return nil, errHomeserver
	}
	f.reactions = append(f.reactions, reaction{Room: roomID, Event: eventID, Key: key})
	return &mautrix.RespSendEvent{EventID: f.eventID()}, nil
}

func (f *fakeAPI) RedactEvent(_ context.Context, _ id.RoomID, eventID id.EventID, _ ...mautrix.ReqRedact) (*mautrix.RespSendEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redactions = append(f.redactions, eventID)
	return &mautrix.RespSendEvent{EventID: f.eventID()}, nil
}

func (f *fakeAPI) MarkRead(_ context.Context, _ id.RoomID, eventID id.EventID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, eventID)
	return nil
}

func (f *fakeAPI) JoinedMembers(_ context.Context, roomID id.RoomID) (*mautrix.RespJoinedMembers, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberReqs++
	n, ok := f.members[roomID]
	if !ok {
		return nil, errHomeserver
	}
	joined := make(map[id.UserID]mautrix.JoinedMember, n)
	for i := range n {
		joined[id.UserID(fmt.Sprintf("@member%d:example.org", i))] = mautrix.JoinedMember{}
	}
	return &mautrix.RespJoinedMembers{Joined: joined}, nil
}

func (f *fakeAPI) JoinRoomByID(_ context.Context, roomID id.RoomID) (*mautrix.RespJoinRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, roomID)
	return &mautrix.RespJoinRoom{RoomID: roomID}, nil
}

func (f *fakeAPI) GetDisplayName(_ context.Context, mxid id.UserID) (*mautrix.RespUserDisplayName, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.displayNames[mxid]
	if !ok {
		return nil, errHomeserver
	}
	return &mautrix.RespUserDisplayName{DisplayName: name}, nil
}

func (f *fakeAPI) lastSent() sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentEvent{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) sentTo(room id.RoomID) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEvent
	for _, s := range f.sent {
		if s.Room == room {
			out = append(out, s)
		}
	}
	return out
}

// recordingRouter captures routed events.
type recordingRouter struct {
	messages   []chat.Message
	selections []chat.Selection
	threads    []chat.ThreadCreated
}

func (r *recordingRouter) Message(_ context.Context, msg chat.Message) support.Outcome {
	r.messages = append(r.messages, msg)
	return support.OutcomeIgnored
}

func (r *recordingRouter) Selection(_ context.Context, sel chat.Selection) support.Outcome {
	r.selections = append(r.selections, sel)
	return support.OutcomeIgnored
}

func (r *recordingRouter) ThreadCreated(_ context.Context, evt chat.ThreadCreated) support.Outcome {
	r.threads = append(r.threads, evt)
	return support.OutcomeIgnored
}

func newTestBridge() (*Bridge, *fakeAPI, *recordingRouter) {
	api := newFakeAPI()
	b := newBridge(api, botID, staffRoom, nil)
	r := &recordingRouter{}
	b.SetRouter(r)
	return b, api, r
}

func textEvent(evtID id.EventID, room id.RoomID, sender id.UserID, body string) *event.Event {
	return &event.Event{
		ID:     evtID,
		RoomID: room,
		Sender: sender,
		Type:   event.EventMessage,
		Content: event.Content{Parsed: &event.MessageEventContent{
			MsgType: event.MsgText,
			Body:    body,
		}},
	}
}

func reactionEvent(evtID id.EventID, room id.RoomID, sender id.UserID, target id.EventID, key string) *event.Event {
	return &event.Event{
		ID:     evtID,
		RoomID: room,
		Sender: sender,
		Type:   event.EventReaction,
		Content: event.Content{Parsed: &event.ReactionEventContent{
			RelatesTo: event.RelatesTo{Type: event.RelAnnotation, EventID: target, Key: key},
		}},
	}
}

// echo returns what /sync would deliver for an event the bot sent.
func echo(s sentEvent) *event.Event {
	evt := &event.Event{ID: s.ID, RoomID: s.Room, Sender: botID, Type: event.EventMessage}
	switch c := s.Content.(type) {
	case *event.Content:
		evt.Content = *c
	case *event.MessageEventContent:
		evt.Content = event.Content{Parsed: c}
	}
	return evt
}
