package core

import (
	"context"

	"pkt.systems/navygator/internal/logx"
	"pkt.systems/navygator/internal/tabstore"
	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

// WorkingSet is the resolved state a controller starts from.
type WorkingSet struct {
	Session  schema.SessionContext
	Tabs     []schema.Tab
	Selected schema.TabID
}

// Resolver picks the operating namespace and prepares its working set.
type Resolver struct {
	cfg      schema.SessionConfig
	store    *tabstore.Store
	identity Identity
	ids      *idMinter
}

func newResolver(cfg schema.SessionConfig, store *tabstore.Store, identity Identity, ids *idMinter) *Resolver {
	return &Resolver{cfg: cfg, store: store, identity: identity, ids: ids}
}

// Resolve returns a non-empty working set with a valid selection for the
// namespace that matches the current sign-in state.
func (r *Resolver) Resolve(ctx context.Context) WorkingSet {
	session := r.resolveSession(ctx)
	log := logx.WithSession(ctx, session)
	ctx = logx.ContextWithSessionLogger(ctx, log, session)

	tabs := r.store.LoadTabs(ctx, session.Namespace)
	selected, ok := r.store.SelectedTabID(ctx, session.Namespace)
	if !ok {
		selected = schema.NoTab
	}
	set := WorkingSet{Session: session, Tabs: tabs, Selected: selected}
	set = r.EnsureNonEmpty(ctx, set)
	set = r.EnsureSelection(ctx, set)
	log.Info("session resolved", "tabs", len(set.Tabs), "selected", int64(set.Selected))
	return set
}

func (r *Resolver) resolveSession(ctx context.Context) schema.SessionContext {
	if r.identity == nil {
		return schema.SessionContext{Namespace: schema.NamespaceGuest}
	}
	email, ok, err := r.identity.AuthStateSettled(ctx)
	if err != nil {
		pslog.Ctx(ctx).Warn("session auth state failed", "err", err)
		return schema.SessionContext{Namespace: schema.NamespaceGuest}
	}
	if !ok || email == "" {
		return schema.SessionContext{Namespace: schema.NamespaceGuest}
	}
	return schema.SessionContext{Namespace: schema.NamespaceAuthenticated, AccountEmail: email}
}

// EnsureNonEmpty adds and selects a default tab when the working set is empty.
func (r *Resolver) EnsureNonEmpty(ctx context.Context, set WorkingSet) WorkingSet {
	if len(set.Tabs) > 0 {
		return set
	}
	log := pslog.Ctx(ctx)
	tab := schema.Tab{ID: r.ids.next(nil), URL: r.cfg.HomeURL}
	tabs, err := r.store.AddTab(ctx, set.Session.Namespace, tab)
	if err != nil {
		log.Warn("session default tab persist failed", "err", err)
		tabs = []schema.Tab{tab}
	}
	if err := r.store.SetSelectedTabID(ctx, set.Session.Namespace, tab.ID); err != nil {
		log.Warn("session selection persist failed", "err", err)
	}
	logx.WithTab(log, tab.ID).Info("session default tab created")
	set.Tabs = tabs
	set.Selected = tab.ID
	return set
}

// EnsureSelection points the selection at the first tab when it is missing or
// references a tab outside the working set.
func (r *Resolver) EnsureSelection(ctx context.Context, set WorkingSet) WorkingSet {
	if len(set.Tabs) == 0 {
		set.Selected = schema.NoTab
		return set
	}
	if indexOfTab(set.Tabs, set.Selected) >= 0 {
		return set
	}
	log := pslog.Ctx(ctx)
	previous := set.Selected
	set.Selected = set.Tabs[0].ID
	if err := r.store.SetSelectedTabID(ctx, set.Session.Namespace, set.Selected); err != nil {
		log.Warn("session selection persist failed", "err", err)
	}
	logx.WithTab(log, set.Selected).Debug("session selection repaired", "previous", int64(previous))
	return set
}

func indexOfTab(tabs []schema.Tab, id schema.TabID) int {
	if id == schema.NoTab {
		return -1
	}
	for i, tab := range tabs {
		if tab.ID == id {
			return i
		}
	}
	return -1
}
