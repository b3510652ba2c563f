// ABOUTME: Background saver that writes binding snapshots after changes
// ABOUTME: Change signals are coalesced; a final save runs on shutdown

package support

import (
	"context"
	"log/slog"
	"time"

	"github.com/2389/helpdesk-bridge/internal/binding"
	"github.com/2389/helpdesk-bridge/internal/store"
)

// Checkpointer persists the binding store whenever it is notified of a change.
type Checkpointer struct {
	snap     store.Snapshotter
	bindings *binding.Store
	dirty    chan struct{}
	logger   *slog.Logger
}

// NewCheckpointer creates a Checkpointer. Wire Notify into Options.OnChange.
func NewCheckpointer(snap store.Snapshotter, bindings *binding.Store, logger *slog.Logger) *Checkpointer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checkpointer{
		snap:     snap,
		bindings: bindings,
		dirty:    make(chan struct{}, 1),
		logger:   logger.With("component", "checkpoint"),
	}
}

// Notify marks the store dirty. It never blocks.
func (cp *Checkpointer) Notify() {
	select {
	case cp.dirty <- struct{}{}:
	default:
	}
}

// Save writes the current bindings immediately.
func (cp *Checkpointer) Save(ctx context.Context) error {
	snapshot := cp.bindings.Snapshot()
	if err := cp.snap.Save(ctx, snapshot); err != nil {
		return err
	}
	cp.logger.Debug("bindings saved", "count", len(snapshot))
	return nil
}

// Run saves after each change signal until ctx is cancelled, then saves once
// more so a clean shutdown never loses a committed binding.
func (cp *Checkpointer) Run(ctx context.Context) {
	for {
		select {
		case <-cp.dirty:
			if err := cp.Save(ctx); err != nil {
				cp.logger.Warn("failed to save bindings", "error", err)
			}
		case <-ctx.Done():
			// ctx is already done; give the final write its own deadline.
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := cp.Save(saveCtx); err != nil {
				cp.logger.Error("failed to save bindings on shutdown", "error", err)
			}
			cancel()
			return
		}
	}
}
