// ABOUTME: Matrix bridge core for helpdesk-bridge
// ABOUTME: Owns the mautrix client, login and the /sync loop feeding the router

package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/helpdesk-bridge/internal/chat"
	"github.com/2389/helpdesk-bridge/internal/config"
	"github.com/2389/helpdesk-bridge/internal/dedupe"
	"github.com/2389/helpdesk-bridge/internal/support"
)

// Replayed events older than this are already handled or no longer relevant.
const (
	dedupeTTL      = 30 * time.Minute
	dedupeCapacity = 10000
)

// Router receives normalized inbound events.
type Router interface {
	Message(ctx context.Context, msg chat.Message) support.Outcome
	Selection(ctx context.Context, sel chat.Selection) support.Outcome
	ThreadCreated(ctx context.Context, evt chat.ThreadCreated) support.Outcome
}

// Bridge connects a Matrix account to the support coordinator. It is both
// the outbound chat.Transport and the source of inbound events.
type Bridge struct {
	client *mautrix.Client
	api    API
	self   id.UserID
	staff  id.RoomID
	cfg    config.MatrixConfig
	router Router
	logger *slog.Logger

	seen    *dedupe.Window
	prompts *promptRegistry
	rooms   *roomDirectory
	lanes   *lanes
}

// NewBridge creates a bridge for the configured account. Call Login before Run.
func NewBridge(cfg config.MatrixConfig, staffRoom string, logger *slog.Logger) (*Bridge, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, "", "")
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	b := newBridge(client, "", id.RoomID(staffRoom), logger)
	b.client = client
	b.cfg = cfg
	return b, nil
}

func newBridge(api API, self id.UserID, staff id.RoomID, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "matrix")
	return &Bridge{
		api:     api,
		self:    self,
		staff:   staff,
		logger:  logger,
		seen:    dedupe.NewWindow(dedupeTTL, dedupeCapacity),
		prompts: newPromptRegistry(promptCapacity),
		rooms:   newRoomDirectory(api, self, staff, logger),
		lanes:   newLanes(),
	}
}

// SetRouter wires inbound events. It must be called before Run.
func (b *Bridge) SetRouter(r Router) {
	b.router = r
}

// Client returns the underlying mautrix client.
func (b *Bridge) Client() *mautrix.Client {
	return b.client
}

// Login authenticates with username and password and stores the
// resulting credentials on the client.
func (b *Bridge) Login(ctx context.Context) error {
	resp, err := b.client.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: b.cfg.Username,
		},
		Password:                 b.cfg.Password,
		InitialDeviceDisplayName: "helpdesk-bridge",
		StoreCredentials:         true,
	})
	if err != nil {
		return fmt.Errorf("logging in as %s: %w", b.cfg.Username, err)
	}

	b.self = resp.UserID
	b.rooms.self = resp.UserID
	b.logger.Info("logged in", "user_id", resp.UserID, "device_id", resp.DeviceID)
	return nil
}

// Run syncs until ctx is cancelled. Events of one room are handled in order;
// different rooms are handled concurrently. Run returns once every received
// event has been handled.
func (b *Bridge) Run(ctx context.Context) error {
	if b.router == nil {
		return fmt.Errorf("bridge has no router")
	}

	b.logger.Info("starting matrix bridge",
		"homeserver", b.cfg.Homeserver,
		"user_id", b.self,
		"staff_room", b.staff,
	)

	syncer, ok := b.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.client.Syncer)
	}
	// History from before startup is not replayed into the coordinator.
	syncer.OnSync(b.client.DontProcessOldEvents)
	syncer.OnEventType(event.EventMessage, b.dispatch(b.handleMessage))
	syncer.OnEventType(event.EventReaction, b.dispatch(b.handleReaction))
	syncer.OnEventType(event.StateMember, b.dispatch(b.handleMember))

	b.logger.Info("connecting to matrix homeserver")

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.client.SyncWithContext(ctx)
	}()

	b.logger.Info("matrix bridge running")

	// Deferred waits run after the sync goroutine has exited, so no event is
	// submitted to the lanes once waiting starts.
	defer b.lanes.wait()

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bridge")
		b.client.StopSync()
		<-syncErr
		return nil
	case err := <-syncErr:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}
