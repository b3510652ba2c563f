package support

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/2389/helpdesk-bridge/internal/chat"
)

var errBoom = errors.New("boom")

type deletion struct {
	Target chat.ChatID
	ID     chat.MessageID
}

// fakeTransport records every outbound call.
type fakeTransport struct {
	mu       sync.Mutex
	sent     []chat.Outgoing
	deleted  []deletion
	threads  []chat.ThreadRequest
	answered []chat.Selection
	nextID   int

	// failSend fails SendMessage calls whose target matches.
	failSend   map[chat.ChatID]bool
	failThread bool
	failDelete bool
	failAnswer bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failSend: make(map[chat.ChatID]bool)}
}

func (f *fakeTransport) SendMessage(_ context.Context, msg chat.Outgoing) (chat.MessageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend[msg.Target] {
		return "", errBoom
	}
	f.sent = append(f.sent, msg)
	f.nextID++
	return chat.MessageID(fmt.Sprintf("$sent%d", f.nextID)), nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, target chat.ChatID, id chat.MessageID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errBoom
	}
	f.deleted = append(f.deleted, deletion{Target: target, ID: id})
	return nil
}

func (f *fakeTransport) CreateThread(_ context.Context, req chat.ThreadRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failThread {
		return errBoom
	}
	f.threads = append(f.threads, req)
	return nil
}

func (f *fakeTransport) AnswerInteractive(_ context.Context, sel chat.Selection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, sel)
	if f.failAnswer {
		return errBoom
	}
	return nil
}

func (f *fakeTransport) sentTo(target chat.ChatID) []chat.Outgoing {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Outgoing
	for _, m := range f.sent {
		if m.Target == target {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeTransport) lastTo(target chat.ChatID) chat.Outgoing {
	msgs := f.sentTo(target)
	if len(msgs) == 0 {
		return chat.Outgoing{}
	}
	return msgs[len(msgs)-1]
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.deleted = nil
	f.threads = nil
	f.answered = nil
}
