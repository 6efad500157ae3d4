package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ru2chhw/confbot/internal/model"
	"github.com/ru2chhw/confbot/internal/scheduler"
	"github.com/ru2chhw/confbot/internal/store"
)

// memStore is an in-memory NoteStore that counts calls.
type memStore struct {
	mu    sync.Mutex
	notes map[int64]map[string]string
	calls int
	err   error
}

func newMemStore() *memStore {
	return &memStore{notes: map[int64]map[string]string{}}
}

func (m *memStore) SetNote(ctx context.Context, chatID int64, username, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return &store.StoreError{Query: "HSET", Err: m.err}
	}
	if m.notes[chatID] == nil {
		m.notes[chatID] = map[string]string{}
	}
	m.notes[chatID][username] = text
	return nil
}

func (m *memStore) DeleteNote(ctx context.Context, chatID int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return &store.StoreError{Query: "HDEL", Err: m.err}
	}
	delete(m.notes[chatID], username)
	return nil
}

func (m *memStore) GetNote(ctx context.Context, chatID int64, username string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", false, &store.StoreError{Query: "HGET", Err: m.err}
	}
	text, ok := m.notes[chatID][username]
	return text, ok, nil
}

func (m *memStore) GetAllNotes(ctx context.Context, chatID int64) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, &store.StoreError{Query: "HGETALL", Err: m.err}
	}
	out := map[string]string{}
	for k, v := range m.notes[chatID] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *memStore) snapshot(chatID int64) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for k, v := range m.notes[chatID] {
		out[k] = v
	}
	return out
}

type sentMessage struct {
	ChatID int64
	ID     int64
	Text   string
	Opts   model.SendOptions
}

// fakeMessenger records outgoing traffic.
type fakeMessenger struct {
	mu       sync.Mutex
	sent     []sentMessage
	deleted  []int64
	admins   map[int64][]model.User
	adminErr error
	sendErr  error
	nextID   int64
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{admins: map[int64][]model.User{}, nextID: 100}
}

func (f *fakeMessenger) SendMessage(ctx context.Context, chatID int64, text string, opts model.SendOptions) (model.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return model.SentMessage{}, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, ID: f.nextID, Text: text, Opts: opts})
	return model.SentMessage{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeMessenger) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) GetChatAdministrators(ctx context.Context, chatID int64) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.adminErr != nil {
		return nil, f.adminErr
	}
	return f.admins[chatID], nil
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Text)
	}
	return out
}

func (f *fakeMessenger) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeMessenger) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.deleted = nil
}

// fakeRunner captures scheduled tasks so tests can fire them.
type fakeRunner struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []scheduler.Func
}

func (r *fakeRunner) After(d time.Duration, fn scheduler.Func) (*scheduler.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	r.fns = append(r.fns, fn)
	return nil, nil
}

func (r *fakeRunner) runAll() {
	r.mu.Lock()
	fns := r.fns
	r.fns = nil
	r.mu.Unlock()
	for _, fn := range fns {
		fn(context.Background())
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []model.NoteEvent
	err    error
}

func (p *fakePublisher) PublishNoteEvent(ctx context.Context, event model.NoteEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

var errBoom = errors.New("connection reset")
