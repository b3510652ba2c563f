// ABOUTME: Tests for the in-memory binding store
// ABOUTME: Covers both lookup directions, uniqueness, removal and snapshots

package binding

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/helpdesk-bridge/internal/chat"
)

func handle(id string) ThreadHandle {
	return ThreadHandle{Root: chat.MessageID(id)}
}

func TestStore_PutAndLookup(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Put("!dm1:example.org", handle("$root1")))

	thread, ok := s.Thread("!dm1:example.org")
	require.True(t, ok)
	assert.Equal(t, handle("$root1"), thread)

	conv, ok := s.Conversation(handle("$root1"))
	require.True(t, ok)
	assert.Equal(t, chat.ChatID("!dm1:example.org"), conv)

	_, ok = s.Thread("!other:example.org")
	assert.False(t, ok)
	_, ok = s.Conversation(handle("$unknown"))
	assert.False(t, ok)
}

func TestStore_Put_OverwritesConversation(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Put("!dm1:example.org", handle("$root1")))
	require.NoError(t, s.Put("!dm1:example.org", handle("$root2")))

	thread, ok := s.Thread("!dm1:example.org")
	require.True(t, ok)
	assert.Equal(t, handle("$root2"), thread)

	// The replaced thread no longer resolves
	_, ok = s.Conversation(handle("$root1"))
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestStore_Put_ThreadAlreadyBound(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Put("!dm1:example.org", handle("$root1")))

	err := s.Put("!dm2:example.org", handle("$root1"))
	assert.ErrorIs(t, err, ErrThreadBound)

	_, ok := s.Thread("!dm2:example.org")
	assert.False(t, ok)

	// Rebinding the same pair is fine
	assert.NoError(t, s.Put("!dm1:example.org", handle("$root1")))
}

func TestStore_Conversation_ZeroHandle(t *testing.T) {
	s := NewStore()
	_, ok := s.Conversation(ThreadHandle{})
	assert.False(t, ok)
}

func TestStore_Remove(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put("!dm1:example.org", handle("$root1")))
	require.NoError(t, s.Put("!dm2:example.org", handle("$root2")))

	assert.True(t, s.RemoveByConversation("!dm1:example.org"))
	assert.False(t, s.RemoveByConversation("!dm1:example.org"), "second removal is a no-op")

	assert.True(t, s.RemoveByThread(handle("$root2")))
	assert.False(t, s.RemoveByThread(handle("$root2")))

	assert.Equal(t, 0, s.Len())
}

func TestStore_Snapshot_Ordered(t *testing.T) {
	s := NewStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	require.NoError(t, s.Put("!b:example.org", handle("$b")))
	require.NoError(t, s.Put("!a:example.org", handle("$a")))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, chat.ChatID("!b:example.org"), snap[0].Conversation)
	assert.Equal(t, chat.ChatID("!a:example.org"), snap[1].Conversation)

	// Snapshot is a copy
	snap[0].Thread = handle("$mutated")
	thread, _ := s.Thread("!b:example.org")
	assert.Equal(t, handle("$b"), thread)
}

func TestStore_Restore_SkipsConflicts(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put("!stale:example.org", handle("$stale")))

	skipped := s.Restore([]Binding{
		{Conversation: "!dm1:example.org", Thread: handle("$root1")},
		{Conversation: "!dm1:example.org", Thread: handle("$root9")},
		{Conversation: "!dm2:example.org", Thread: handle("$root1")},
		{Conversation: "", Thread: handle("$root3")},
		{Conversation: "!dm3:example.org", Thread: handle("$root3")},
	})

	assert.Len(t, skipped, 3)
	assert.Equal(t, 2, s.Len())

	_, ok := s.Thread("!stale:example.org")
	assert.False(t, ok, "restore replaces previous contents")

	b := s.Snapshot()
	for _, entry := range b {
		assert.False(t, entry.CreatedAt.IsZero())
	}
}

func TestStore_ConcurrentPuts_KeepUniqueness(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// All goroutines race for the same thread
			errs <- s.Put(chat.ChatID(fmt.Sprintf("!dm%d:example.org", i)), handle("$shared"))
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrThreadBound)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, s.Len())
}
