// ABOUTME: Single-occupancy holder for the support negotiation currently in progress
// ABOUTME: Every check-then-update runs inside one critical section; abandoned entries expire

package negotiation

import (
	"errors"
	"sync"
	"time"

	"github.com/2389/helpdesk-bridge/internal/chat"
)

// Slot errors.
var (
	// ErrBusy means another negotiation holds the slot.
	ErrBusy = errors.New("another negotiation is in progress")

	// ErrNoMatch means the slot is empty, owned by another conversation,
	// or not at the step the caller expected.
	ErrNoMatch = errors.New("no matching negotiation")
)

// ThreadCreationTimeout bounds how long a negotiation may wait for the echo
// of its thread root. It applies instead of the idle ttl when that is shorter,
// since the user has no further step to take once the category is chosen.
const ThreadCreationTimeout = 10 * time.Minute

// Pending is a negotiation that has started but not yet produced a binding.
type Pending struct {
	Conversation chat.ChatID
	Requester    string
	Language     Language
	Category     Category
	StartedAt    time.Time
	UpdatedAt    time.Time
}

// State derives the negotiation step from the selections made so far.
func (p Pending) State() State {
	switch {
	case p.Language == LanguageUnset:
		return StateAwaitingLanguage
	case p.Category == CategoryUnset:
		return StateAwaitingCategory
	default:
		return StateCreatingThread
	}
}

// Slot holds at most one Pending negotiation process-wide.
type Slot struct {
	mu      sync.Mutex
	pending *Pending
	ttl     time.Duration
	now     func() time.Time
}

// NewSlot creates an empty Slot. A negotiation that sees no progress for ttl
// is treated as abandoned; ttl <= 0 disables expiry.
func NewSlot(ttl time.Duration) *Slot {
	return &Slot{
		ttl: ttl,
		now: time.Now,
	}
}

// ReserveIf claims the slot for conv. If an abandoned negotiation was
// occupying the slot it is evicted and returned. allow, when non-nil, is an
// admission check evaluated inside the slot's critical section; a non-nil
// error from it aborts the reservation.
func (s *Slot) ReserveIf(conv chat.ChatID, requester string, allow func() error) (evicted *Pending, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		if !s.expiredLocked() {
			return nil, ErrBusy
		}
		evicted = s.takeLocked()
	}

	if allow != nil {
		if err := allow(); err != nil {
			return evicted, err
		}
	}

	now := s.now()
	s.pending = &Pending{
		Conversation: conv,
		Requester:    requester,
		StartedAt:    now,
		UpdatedAt:    now,
	}
	return evicted, nil
}

// ChooseLanguage records lang for conv's negotiation.
func (s *Slot) ChooseLanguage(conv chat.ChatID, lang Language) (Pending, error) {
	return s.advance(conv, StateAwaitingCategory, func(p *Pending) {
		p.Language = lang
	})
}

// ChooseCategory records c for conv's negotiation.
func (s *Slot) ChooseCategory(conv chat.ChatID, c Category) (Pending, error) {
	return s.advance(conv, StateCreatingThread, func(p *Pending) {
		p.Category = c
	})
}

func (s *Slot) advance(conv chat.ChatID, to State, apply func(*Pending)) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.liveLocked(conv)
	if !ok || !CanTransition(p.State(), to) {
		return Pending{}, ErrNoMatch
	}

	apply(p)
	p.UpdatedAt = s.now()
	return *p, nil
}

// Complete finishes conv's negotiation. commit runs while the slot is still
// held, so nobody can start a new negotiation until the binding exists.
// The slot is cleared only when commit succeeds.
func (s *Slot) Complete(conv chat.ChatID, commit func(Pending) error) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.liveLocked(conv)
	if !ok || !CanTransition(p.State(), StateBound) {
		return Pending{}, ErrNoMatch
	}

	if err := commit(*p); err != nil {
		return *p, err
	}

	return *s.takeLocked(), nil
}

// Release abandons conv's negotiation. Reports whether one was held.
func (s *Slot) Release(conv chat.ChatID) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || s.pending.Conversation != conv {
		return Pending{}, false
	}
	return *s.takeLocked(), true
}

// Current returns the live negotiation, if any.
func (s *Slot) Current() (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || s.expiredLocked() {
		return Pending{}, false
	}
	return *s.pending, true
}

// Expire clears the slot if its negotiation has been abandoned.
func (s *Slot) Expire() (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || !s.expiredLocked() {
		return Pending{}, false
	}
	return *s.takeLocked(), true
}

// liveLocked returns the pending negotiation owned by conv that has not expired.
func (s *Slot) liveLocked(conv chat.ChatID) (*Pending, bool) {
	if s.pending == nil || s.pending.Conversation != conv || s.expiredLocked() {
		return nil, false
	}
	return s.pending, true
}

func (s *Slot) expiredLocked() bool {
	if s.ttl <= 0 {
		return false
	}
	ttl := s.ttl
	if s.pending.State() == StateCreatingThread {
		ttl = max(ttl, ThreadCreationTimeout)
	}
	return s.now().Sub(s.pending.UpdatedAt) >= ttl
}

func (s *Slot) takeLocked() *Pending {
	p := s.pending
	s.pending = nil
	return p
}
