package core

import (
	"context"
	"errors"
	"testing"

	"pkt.systems/navygator/schema"
)

func TestActivateGuestEmptyStoreCreatesDefaultTab(t *testing.T) {
	env := newTestEnv(t, nil, fixedClock(1))
	ctrl := env.activate(t)

	snap := ctrl.Snapshot()
	if snap.Namespace != schema.NamespaceGuest {
		t.Fatalf("expected guest namespace, got %q", snap.Namespace)
	}
	if len(snap.Tabs) != 1 {
		t.Fatalf("expected one default tab, got %+v", snap.Tabs)
	}
	if snap.Tabs[0].ID != 1 || snap.Tabs[0].URL != schema.DefaultHomeURL {
		t.Fatalf("unexpected default tab %+v", snap.Tabs[0])
	}
	if snap.Selected != 1 || snap.Address != schema.DefaultHomeURL {
		t.Fatalf("unexpected selection %d address %q", snap.Selected, snap.Address)
	}

	ctx := context.Background()
	stored := env.store.LoadTabs(ctx, schema.NamespaceGuest)
	if len(stored) != 1 || stored[0].ID != 1 {
		t.Fatalf("expected default tab persisted, got %+v", stored)
	}
	if selected, ok := env.store.SelectedTabID(ctx, schema.NamespaceGuest); !ok || selected != 1 {
		t.Fatalf("expected selection persisted, got %d ok=%v", selected, ok)
	}
	types := env.sink.types()
	if len(types) == 0 || types[0] != schema.TabEventActivated {
		t.Fatalf("expected activated event, got %v", types)
	}
}

func TestResolveTwiceDoesNotAddTabs(t *testing.T) {
	env := newTestEnv(t, nil, fixedClock(1))
	ctx := context.Background()
	first := env.session.Resolver().Resolve(ctx)
	second := env.session.Resolver().Resolve(ctx)
	if len(first.Tabs) != 1 || len(second.Tabs) != 1 {
		t.Fatalf("expected exactly one tab after two resolves, got %d and %d", len(first.Tabs), len(second.Tabs))
	}
	if first.Selected != second.Selected {
		t.Fatalf("selection changed between resolves: %d vs %d", first.Selected, second.Selected)
	}
}

func TestResolveRepairsForeignSelection(t *testing.T) {
	env := newTestEnv(t, nil, fixedClock(1))
	ctx := context.Background()
	tabs := []schema.Tab{{ID: 10, URL: "https://a.example"}, {ID: 20, URL: "https://b.example"}}
	if err := env.store.SaveTabs(ctx, schema.NamespaceGuest, tabs); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := env.store.SetSelectedTabID(ctx, schema.NamespaceGuest, 999); err != nil {
		t.Fatalf("select: %v", err)
	}
	set := env.session.Resolver().Resolve(ctx)
	if set.Selected != 10 {
		t.Fatalf("expected first tab selected, got %d", set.Selected)
	}
	if selected, _ := env.store.SelectedTabID(ctx, schema.NamespaceGuest); selected != 10 {
		t.Fatalf("expected repaired selection persisted, got %d", selected)
	}
}

func TestResolveIdentityFailureFallsBackToGuest(t *testing.T) {
	env := newTestEnv(t, nil, fixedClock(1))
	env.identity.email = "a@example.com"
	env.identity.err = errors.New("identity unavailable")
	ctrl := env.activate(t)
	if ctrl.Session().Namespace != schema.NamespaceGuest {
		t.Fatalf("expected guest fallback, got %q", ctrl.Session().Namespace)
	}
}

func TestSignInAndOutKeepsNamespacesApart(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	guest := env.activate(t)
	guestTab := guest.Snapshot().Tabs[0]

	if _, err := env.session.SignIn(ctx, "a@example.com", "wrong", ""); !errors.Is(err, schema.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	authed, err := env.session.SignIn(ctx, "A@Example.com", "pw", "")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if got := authed.Session(); got.Namespace != schema.NamespaceAuthenticated || got.AccountEmail != "a@example.com" {
		t.Fatalf("unexpected session %+v", got)
	}
	if _, err := guest.Create(ctx); !errors.Is(err, schema.ErrSessionClosed) {
		t.Fatalf("expected previous controller closed, got %v", err)
	}
	if _, err := authed.Create(ctx); err != nil {
		t.Fatalf("create: %v", err)
	}

	back, err := env.session.SignOut(ctx)
	if err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if back.Session().Namespace != schema.NamespaceGuest {
		t.Fatalf("expected guest after sign out")
	}
	guestSnap := back.Snapshot()
	if len(guestSnap.Tabs) != 1 || guestSnap.Tabs[0].ID != guestTab.ID {
		t.Fatalf("guest tabs changed across sign-in: %+v", guestSnap.Tabs)
	}
	if stored := env.store.LoadTabs(ctx, schema.NamespaceAuthenticated); len(stored) != 2 {
		t.Fatalf("expected authenticated tabs kept dormant, got %+v", stored)
	}
	if _, err := env.session.SignOut(ctx); !errors.Is(err, schema.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
}

func TestSessionRoundTripAcrossRestart(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	ctrl := env.activate(t)
	created, err := ctrl.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ctrl.RequestNavigate(ctx, "example.org"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	first := ctrl.Snapshot().Tabs[0]
	if err := ctrl.Select(ctx, first.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	before := ctrl.Snapshot()
	if err := env.session.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	restarted, err := NewSession(schema.SessionConfig{}, SessionDeps{Store: env.store, Identity: env.identity})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer restarted.Close(ctx)
	after, err := restarted.Activate(ctx)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	snap := after.Snapshot()
	if len(snap.Tabs) != len(before.Tabs) {
		t.Fatalf("expected %d tabs, got %d", len(before.Tabs), len(snap.Tabs))
	}
	for i := range before.Tabs {
		if snap.Tabs[i] != before.Tabs[i] {
			t.Fatalf("tab %d mismatch: %+v vs %+v", i, snap.Tabs[i], before.Tabs[i])
		}
	}
	if snap.Selected != first.ID {
		t.Fatalf("expected selection %d restored, got %d", first.ID, snap.Selected)
	}
	if snap.Tabs[1].ID != created.ID {
		t.Fatalf("expected created tab second")
	}
}

func TestSignOutFailureKeepsAuthenticatedController(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	env.activate(t)
	authed, err := env.session.SignIn(ctx, "a@example.com", "pw", "")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	tab, err := authed.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("identity down")
	env.identity.signOutErr = boom
	if _, err := env.session.SignOut(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected sign-out error, got %v", err)
	}
	ctrl := env.session.Controller()
	if ctrl == nil {
		t.Fatalf("expected an active controller after failed sign-out")
	}
	snap := ctrl.Snapshot()
	if snap.Namespace != schema.NamespaceAuthenticated || snap.Selected != tab.ID {
		t.Fatalf("expected authenticated working set restored, got %+v", snap)
	}
	if _, err := ctrl.Create(ctx); err != nil {
		t.Fatalf("expected restored controller to accept operations: %v", err)
	}
}

func TestSignInFailureKeepsGuestController(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	guest := env.activate(t)

	if _, err := env.session.SignIn(ctx, "a@example.com", "wrong", ""); !errors.Is(err, schema.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.session.SignIn(ctx, "not-an-email", "pw", ""); err == nil {
		t.Fatalf("expected invalid email to fail")
	}
	if env.session.Controller() != guest {
		t.Fatalf("expected guest controller to stay active")
	}
	if _, err := guest.Create(ctx); err != nil {
		t.Fatalf("expected guest controller usable after failed sign-in: %v", err)
	}
	if _, err := env.session.SignOut(ctx); !errors.Is(err, schema.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if env.session.Controller() != guest {
		t.Fatalf("expected guest controller untouched by sign-out while signed out")
	}
}

func TestResolveIdentityFailureAfterSignIn(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	env.activate(t)
	if _, err := env.session.SignIn(ctx, "a@example.com", "pw", ""); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	env.identity.mu.Lock()
	env.identity.err = errors.New("identity unavailable")
	env.identity.mu.Unlock()
	ctrl, err := env.session.Activate(ctx)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if ctrl.Session().Namespace != schema.NamespaceGuest {
		t.Fatalf("expected guest when the identity cannot settle, got %q", ctrl.Session().Namespace)
	}
}
