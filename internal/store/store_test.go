package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/helpdesk-bridge/internal/binding"
	"github.com/2389/helpdesk-bridge/internal/chat"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func sampleBindings() []binding.Binding {
	base := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)
	return []binding.Binding{
		{
			Conversation: "!alice:example.org",
			Thread:       binding.ThreadHandle{Root: "$root-alice"},
			CreatedAt:    base,
		},
		{
			Conversation: "!bob:example.org",
			Thread:       binding.ThreadHandle{Root: "$root-bob"},
			CreatedAt:    base.Add(time.Minute),
		},
	}
}

func assertSameBindings(t *testing.T, want, got []binding.Binding) {
	t.Helper()
	require.Len(t, got, len(want))
	byConv := make(map[chat.ChatID]binding.Binding, len(got))
	for _, b := range got {
		byConv[b.Conversation] = b
	}
	for _, w := range want {
		g, ok := byConv[w.Conversation]
		require.True(t, ok, "missing %s", w.Conversation)
		assert.Equal(t, w.Thread, g.Thread)
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt), "created_at %v != %v", w.CreatedAt, g.CreatedAt)
	}
}

// Both drivers must satisfy the same contract.
func snapshotters(t *testing.T) map[string]Snapshotter {
	return map[string]Snapshotter{
		"file":   NewFileSnapshot(filepath.Join(t.TempDir(), "state", "bindings.json"), nil),
		"sqlite": setupTestStore(t),
	}
}

func TestSnapshotter_LoadEmpty(t *testing.T) {
	for name, s := range snapshotters(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Load(context.Background())
			require.NoError(t, err)
			assert.Empty(t, got)
			assert.NotNil(t, got)
		})
	}
}

func TestSnapshotter_RoundTrip(t *testing.T) {
	for name, s := range snapshotters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := sampleBindings()

			require.NoError(t, s.Save(ctx, want))

			got, err := s.Load(ctx)
			require.NoError(t, err)
			assertSameBindings(t, want, got)
		})
	}
}

func TestSnapshotter_SaveReplaces(t *testing.T) {
	for name, s := range snapshotters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			all := sampleBindings()

			require.NoError(t, s.Save(ctx, all))
			require.NoError(t, s.Save(ctx, all[1:]))

			got, err := s.Load(ctx)
			require.NoError(t, err)
			assertSameBindings(t, all[1:], got)

			require.NoError(t, s.Save(ctx, nil))
			got, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSnapshotter_RestoresIntoBindingStore(t *testing.T) {
	ctx := context.Background()
	snap := NewFileSnapshot(filepath.Join(t.TempDir(), "bindings.json"), nil)

	live := binding.NewStore()
	require.NoError(t, live.Put("!alice:example.org", binding.ThreadHandle{Root: "$a"}))
	require.NoError(t, live.Put("!bob:example.org", binding.ThreadHandle{Root: "$b"}))
	require.NoError(t, snap.Save(ctx, live.Snapshot()))

	loaded, err := snap.Load(ctx)
	require.NoError(t, err)

	restored := binding.NewStore()
	assert.Empty(t, restored.Restore(loaded))

	conv, ok := restored.Conversation(binding.ThreadHandle{Root: "$b"})
	require.True(t, ok)
	assert.Equal(t, chat.ChatID("!bob:example.org"), conv)
}

func TestFileSnapshot_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewFileSnapshot(path, nil).Load(context.Background())
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestFileSnapshot_WireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.json")
	snap := NewFileSnapshot(path, nil)

	require.NoError(t, snap.Save(context.Background(), sampleBindings()[:1]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"conversation_id": "!alice:example.org"`)
	assert.Contains(t, string(data), `"thread_message_id": "$root-alice"`)

	// No temp files are left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLiteStore_SaveRejectsDuplicateThread(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleBindings()))

	dup := []binding.Binding{
		{Conversation: "!a:example.org", Thread: binding.ThreadHandle{Root: "$same"}, CreatedAt: time.Now()},
		{Conversation: "!b:example.org", Thread: binding.ThreadHandle{Root: "$same"}, CreatedAt: time.Now()},
	}
	err := s.Save(ctx, dup)
	assert.ErrorIs(t, err, ErrPersistence)

	// The failed transaction left the previous snapshot intact
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assertSameBindings(t, sampleBindings(), got)
}
