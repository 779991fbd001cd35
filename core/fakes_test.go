package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pkt.systems/navygator/internal/history"
	"pkt.systems/navygator/internal/kvstore"
	"pkt.systems/navygator/internal/tabstore"
	"pkt.systems/navygator/schema"
)

var errBackendDown = errors.New("backend down")

type failingKV struct {
	*kvstore.Memory
	fail atomic.Bool
}

func newFailingKV() *failingKV {
	return &failingKV{Memory: kvstore.NewMemory()}
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.fail.Load() {
		return errBackendDown
	}
	return f.Memory.Set(ctx, key, value)
}

type fakeIdentity struct {
	mu         sync.Mutex
	email      string
	password   string
	err        error
	signOutErr error
}

func (f *fakeIdentity) CurrentAccountEmail(ctx context.Context) (string, bool) {
	email, ok, err := f.AuthStateSettled(ctx)
	if err != nil {
		return "", false
	}
	return email, ok
}

func (f *fakeIdentity) AuthStateSettled(context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	return f.email, f.email != "", nil
}

func (f *fakeIdentity) SignIn(_ context.Context, email, password, _ string) (string, error) {
	normalized, err := schema.NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if password != f.password {
		return "", schema.ErrInvalidCredentials
	}
	f.email = normalized
	return normalized, nil
}

func (f *fakeIdentity) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.email = ""
	return nil
}

type countingRecorder struct {
	*history.Memory
	calls atomic.Int64
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{Memory: history.NewMemory()}
}

func (r *countingRecorder) CreateHistoryRecord(ctx context.Context, email, url string) error {
	r.calls.Add(1)
	return r.Memory.CreateHistoryRecord(ctx, email, url)
}

type recordingSink struct {
	mu     sync.Mutex
	events []schema.TabEvent
}

func (s *recordingSink) OnTabEvent(event schema.TabEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) types() []schema.TabEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.TabEventType, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.Type)
	}
	return out
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

type testEnv struct {
	kv       kvstore.Store
	store    *tabstore.Store
	identity *fakeIdentity
	recorder *countingRecorder
	sink     *recordingSink
	session  *Session
}

func newTestEnv(t *testing.T, kv kvstore.Store, now func() time.Time) *testEnv {
	t.Helper()
	if kv == nil {
		kv = kvstore.NewMemory()
	}
	store, err := tabstore.New(kv, nil)
	if err != nil {
		t.Fatalf("tabstore: %v", err)
	}
	env := &testEnv{
		kv:       kv,
		store:    store,
		identity: &fakeIdentity{password: "pw"},
		recorder: newCountingRecorder(),
		sink:     &recordingSink{},
	}
	session, err := NewSession(schema.SessionConfig{}, SessionDeps{
		Store:     store,
		Identity:  env.identity,
		History:   env.recorder,
		EventSink: env.sink,
		Now:       now,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	env.session = session
	t.Cleanup(func() {
		_ = session.Close(context.Background())
	})
	return env
}

func (e *testEnv) activate(t *testing.T) *Controller {
	t.Helper()
	ctrl, err := e.session.Activate(context.Background())
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	return ctrl
}

func flush(t *testing.T, ctrl *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ctrl.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func tabIDs(tabs []schema.Tab) []schema.TabID {
	ids := make([]schema.TabID, 0, len(tabs))
	for _, tab := range tabs {
		ids = append(ids, tab.ID)
	}
	return ids
}
