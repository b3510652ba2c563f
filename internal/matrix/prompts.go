// ABOUTME: Remembers which options each sent prompt offers
// ABOUTME: Maps a reaction on a prompt back to the option payload it selects

package matrix

import (
	"sync"

	"maunium.net/go/mautrix/id"

	"github.com/2389/helpdesk-bridge/internal/chat"
)

// promptCapacity bounds how many unanswered prompts are remembered.
const promptCapacity = 256

type prompt struct {
	room    id.RoomID
	options []chat.Option
}

type promptRegistry struct {
	mu       sync.Mutex
	prompts  map[id.EventID]prompt
	order    []id.EventID
	capacity int
}

func newPromptRegistry(capacity int) *promptRegistry {
	return &promptRegistry{
		prompts:  make(map[id.EventID]prompt),
		capacity: capacity,
	}
}

func (r *promptRegistry) remember(evt id.EventID, room id.RoomID, options []chat.Option) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.prompts[evt]; !ok {
		r.order = append(r.order, evt)
	}
	r.prompts[evt] = prompt{room: room, options: options}

	for len(r.prompts) > r.capacity && len(r.order) > 0 {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.prompts, oldest)
	}
}

// resolve returns the payload of the option whose key was reacted with.
// known is false when evt is not a prompt sent to room.
func (r *promptRegistry) resolve(evt id.EventID, room id.RoomID, key string) (payload string, known bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.prompts[evt]
	if !ok || p.room != room {
		return "", false
	}
	for _, opt := range p.options {
		if opt.Key == key {
			return opt.Payload, true
		}
	}
	return "", true
}

func (r *promptRegistry) forget(evt id.EventID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.prompts[evt]; !ok {
		return
	}
	delete(r.prompts, evt)
	for i, e := range r.order {
		if e == evt {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *promptRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prompts)
}
