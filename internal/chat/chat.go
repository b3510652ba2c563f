// ABOUTME: Transport-neutral identifiers and event shapes exchanged with chat frontends
// ABOUTME: Defines the Transport interface the support coordinator sends through

package chat

import "context"

// ChatID identifies a room: a private conversation or the staff room.
type ChatID string

// MessageID identifies a single message (Matrix event ID).
type MessageID string

// Kind classifies the room an inbound event arrived in.
type Kind int

const (
	KindUnknown Kind = iota
	KindPrivate      // one-to-one conversation between a user and the bot
	KindStaff        // the shared staff room
	KindGroup        // any other multi-user room
)

func (k Kind) String() string {
	switch k {
	case KindPrivate:
		return "private"
	case KindStaff:
		return "staff"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// User is the author of an inbound event.
type User struct {
	ID          string
	DisplayName string
	IsBot       bool
}

// Name returns the display name, falling back to the user ID.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

// Message is an inbound text message or command.
type Message struct {
	ID   MessageID
	Chat ChatID
	Kind Kind
	From User
	Text string

	// ReplyTo is the message this one answers. For thread messages it is the
	// thread root; empty when the message is neither a reply nor threaded.
	ReplyTo MessageID
}

// Selection is a user's pick on an interactive prompt.
type Selection struct {
	ID     MessageID // the selection event itself
	Chat   ChatID
	Kind   Kind
	From   User
	Prompt MessageID // the prompt the selection was made on
	Data   string    // option payload; empty when the prompt is unknown
}

// ThreadCreated confirms that a thread root was posted in the staff room.
type ThreadCreated struct {
	Thread      MessageID
	Space       ChatID
	From        User
	Correlation ChatID // conversation the thread was requested for
}

// Option is one choice offered by an interactive prompt.
type Option struct {
	Key     string // emoji the user reacts with
	Label   string
	Payload string
}

// Format selects how outgoing text is rendered.
type Format int

const (
	FormatPlain Format = iota
	FormatMarkdown
)

// Outgoing is a message to send.
type Outgoing struct {
	Target  ChatID
	Text    string
	ReplyTo MessageID // when set in the staff room, the message is posted into that thread
	Options []Option
	Format  Format
}

// ThreadRequest asks the transport to open a thread in the staff room.
type ThreadRequest struct {
	Space       ChatID
	Title       string
	Color       string // "#RRGGBB" hint; transports may ignore it
	InitialText string
	Correlation ChatID
}

// Transport is the outbound side of a chat frontend.
type Transport interface {
	SendMessage(ctx context.Context, msg Outgoing) (MessageID, error)
	DeleteMessage(ctx context.Context, target ChatID, msg MessageID) error
	CreateThread(ctx context.Context, req ThreadRequest) error
	AnswerInteractive(ctx context.Context, sel Selection) error
}
