// ABOUTME: Per-room work lanes for inbound event handling
// ABOUTME: Events of one room run in arrival order; different rooms run concurrently

package matrix

import (
	"context"
	"sync"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// lanes runs one goroutine per busy room. A room's goroutine drains its
// queue and exits when the queue is empty.
type lanes struct {
	mu     sync.Mutex
	queues map[id.RoomID][]func()
	wg     sync.WaitGroup
}

func newLanes() *lanes {
	return &lanes{queues: make(map[id.RoomID][]func())}
}

// submit queues fn behind earlier work for the same room.
func (l *lanes) submit(room id.RoomID, fn func()) {
	l.mu.Lock()
	queue, busy := l.queues[room]
	l.queues[room] = append(queue, fn)
	if busy {
		l.mu.Unlock()
		return
	}
	l.wg.Add(1)
	l.mu.Unlock()

	go l.drain(room)
}

func (l *lanes) drain(room id.RoomID) {
	defer l.wg.Done()
	for {
		l.mu.Lock()
		queue := l.queues[room]
		if len(queue) == 0 {
			delete(l.queues, room)
			l.mu.Unlock()
			return
		}
		fn := queue[0]
		l.queues[room] = queue[1:]
		l.mu.Unlock()

		fn()
	}
}

// wait blocks until every queued handler has run.
func (l *lanes) wait() {
	l.wg.Wait()
}

// dispatch adapts a handler into a syncer callback that runs on the room's lane.
func (b *Bridge) dispatch(handle func(context.Context, *event.Event)) func(context.Context, *event.Event) {
	return func(ctx context.Context, evt *event.Event) {
		b.lanes.submit(evt.RoomID, func() {
			handle(context.WithoutCancel(ctx), evt)
		})
	}
}
