// ABOUTME: In-memory binding store mapping private conversations to staff threads
// ABOUTME: Enforces one thread per conversation and one conversation per thread

package binding

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/2389/helpdesk-bridge/internal/chat"
)

// ErrThreadBound is returned when a thread is already bound to another conversation.
var ErrThreadBound = errors.New("thread already bound to another conversation")

// ThreadHandle addresses a thread in the staff room by the message that created it.
type ThreadHandle struct {
	Root chat.MessageID
}

// IsZero reports whether the handle is unset.
func (h ThreadHandle) IsZero() bool {
	return h.Root == ""
}

// Binding associates a private conversation with its staff thread.
type Binding struct {
	Conversation chat.ChatID
	Thread       ThreadHandle
	CreatedAt    time.Time
}

// Store holds the open bindings.
//
// Lookups by thread scan every binding. Open tickets are expected to number in
// the tens to low hundreds, so a second index is not kept.
type Store struct {
	mu       sync.RWMutex
	bindings map[chat.ChatID]Binding
	now      func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		bindings: make(map[chat.ChatID]Binding),
		now:      time.Now,
	}
}

// Put binds conv to thread, replacing any thread conv was bound to.
// Returns ErrThreadBound if thread already belongs to a different conversation.
func (s *Store) Put(conv chat.ChatID, thread ThreadHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if other, ok := s.conversationLocked(thread); ok && other != conv {
		return fmt.Errorf("binding %s to %s: %w", conv, thread.Root, ErrThreadBound)
	}

	s.bindings[conv] = Binding{
		Conversation: conv,
		Thread:       thread,
		CreatedAt:    s.now().UTC(),
	}
	return nil
}

// Thread returns the thread bound to conv.
func (s *Store) Thread(conv chat.ChatID) (ThreadHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bindings[conv]
	return b.Thread, ok
}

// Conversation returns the conversation bound to thread.
func (s *Store) Conversation(thread ThreadHandle) (chat.ChatID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.conversationLocked(thread)
}

// conversationLocked must be called with mu held.
func (s *Store) conversationLocked(thread ThreadHandle) (chat.ChatID, bool) {
	if thread.IsZero() {
		return "", false
	}
	for conv, b := range s.bindings {
		if b.Thread == thread {
			return conv, true
		}
	}
	return "", false
}

// RemoveByConversation deletes the binding keyed by conv.
// Reports whether a binding was removed.
func (s *Store) RemoveByConversation(conv chat.ChatID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bindings[conv]; !ok {
		return false
	}
	delete(s.bindings, conv)
	return true
}

// RemoveByThread deletes the binding whose thread is thread.
// Reports whether a binding was removed.
func (s *Store) RemoveByThread(thread ThreadHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversationLocked(thread)
	if !ok {
		return false
	}
	delete(s.bindings, conv)
	return true
}

// Len returns the number of open bindings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bindings)
}

// Snapshot returns a consistent copy of all bindings ordered by creation time.
func (s *Store) Snapshot() []Binding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Binding, 0, len(s.bindings))
	for _, b := range s.bindings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Conversation < out[j].Conversation
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Restore replaces the store contents with bindings, typically a loaded snapshot.
// Entries that would break uniqueness are skipped and returned.
func (s *Store) Restore(bindings []Binding) []Binding {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bindings = make(map[chat.ChatID]Binding, len(bindings))
	var skipped []Binding
	for _, b := range bindings {
		if b.Conversation == "" || b.Thread.IsZero() {
			skipped = append(skipped, b)
			continue
		}
		if _, dup := s.bindings[b.Conversation]; dup {
			skipped = append(skipped, b)
			continue
		}
		if _, taken := s.conversationLocked(b.Thread); taken {
			skipped = append(skipped, b)
			continue
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = s.now().UTC()
		}
		s.bindings[b.Conversation] = b
	}
	return skipped
}
