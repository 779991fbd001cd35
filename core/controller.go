package core

import (
	"context"
	"errors"
	"strings"
	"sync"

	"pkt.systems/navygator/internal/logx"
	"pkt.systems/navygator/internal/sessionctx"
	"pkt.systems/navygator/internal/tabstore"
	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

// Controller owns the working set of one namespace. Mutations apply to memory
// first and are persisted in order by a background writer.
type Controller struct {
	cfg     schema.SessionConfig
	session schema.SessionContext
	store   *tabstore.Store
	sink    EventSink
	history historyEmitter
	ids     *idMinter
	writer  *writer
	log     pslog.Logger

	mu       sync.Mutex
	tabs     []schema.Tab
	selected schema.TabID
	closed   bool
}

func newController(ctx context.Context, cfg schema.SessionConfig, set WorkingSet, deps SessionDeps, ids *idMinter) *Controller {
	log := deps.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	log = logx.WithSession(pslog.ContextWithLogger(ctx, log), set.Session)
	writerCtx := sessionctx.WithContext(logx.ContextWithSessionLogger(ctx, log, set.Session), set.Session)
	return &Controller{
		cfg:      cfg,
		session:  set.Session,
		store:    deps.Store,
		sink:     deps.EventSink,
		history:  historyEmitter{recorder: deps.History, session: set.Session},
		ids:      ids,
		writer:   newWriter(writerCtx, log),
		log:      log,
		tabs:     schema.CloneTabs(set.Tabs),
		selected: set.Selected,
	}
}

// Session returns the namespace and account the controller operates on.
func (c *Controller) Session() schema.SessionContext {
	return c.session
}

// Snapshot returns the current state for rendering.
func (c *Controller) Snapshot() schema.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() schema.SessionSnapshot {
	return schema.SessionSnapshot{
		Namespace:    c.session.Namespace,
		AccountEmail: c.session.AccountEmail,
		Tabs:         schema.CloneTabs(c.tabs),
		Selected:     c.selected,
		Address:      c.addressLocked(),
	}
}

func (c *Controller) addressLocked() string {
	if idx := indexOfTab(c.tabs, c.selected); idx >= 0 {
		return c.tabs[idx].URL
	}
	return ""
}

// Create appends a tab showing the home page and selects it.
func (c *Controller) Create(ctx context.Context) (schema.Tab, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return schema.Tab{}, schema.ErrSessionClosed
	}
	tab := schema.Tab{ID: c.ids.next(c.tabs), URL: c.cfg.HomeURL}
	c.tabs = append(c.tabs, tab)
	c.selected = tab.ID
	snap := c.snapshotLocked()
	c.enqueueStateLocked("create", true, true)
	c.mu.Unlock()

	logx.WithTab(c.log, tab.ID).Info("tab created", "tabs", len(snap.Tabs))
	c.emit(schema.TabEvent{Type: schema.TabEventCreated, Tab: tab, Tabs: snap.Tabs, Selected: snap.Selected})
	c.emit(schema.TabEvent{Type: schema.TabEventAddress, Tab: tab, Selected: snap.Selected, Address: snap.Address})
	return tab, nil
}

// Close removes the tab with id. A closed selected tab moves the selection to
// the first remaining tab. Closing the last tab replaces it with a fresh home tab.
func (c *Controller) Close(ctx context.Context, id schema.TabID) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return schema.ErrSessionClosed
	}
	idx := indexOfTab(c.tabs, id)
	if idx < 0 {
		c.mu.Unlock()
		return schema.ErrTabNotFound
	}
	closedTab := c.tabs[idx]
	previous := c.tabs
	remaining := make([]schema.Tab, 0, len(c.tabs))
	remaining = append(remaining, c.tabs[:idx]...)
	remaining = append(remaining, c.tabs[idx+1:]...)
	var replacement *schema.Tab
	switch {
	case len(remaining) == 0:
		tab := schema.Tab{ID: c.ids.next(previous), URL: c.cfg.HomeURL}
		remaining = append(remaining, tab)
		c.selected = tab.ID
		replacement = &tab
	case c.selected == id || indexOfTab(remaining, c.selected) < 0:
		c.selected = remaining[0].ID
	}
	c.tabs = remaining
	snap := c.snapshotLocked()
	c.enqueueStateLocked("close", true, true)
	c.mu.Unlock()

	log := logx.WithTab(c.log, id)
	log.Info("tab closed", "tabs", len(snap.Tabs), "selected", int64(snap.Selected))
	c.emit(schema.TabEvent{Type: schema.TabEventClosed, Tab: closedTab, Tabs: snap.Tabs, Selected: snap.Selected})
	if replacement != nil {
		logx.WithTab(c.log, replacement.ID).Info("tab replacement created")
		c.emit(schema.TabEvent{Type: schema.TabEventCreated, Tab: *replacement, Tabs: snap.Tabs, Selected: snap.Selected})
	}
	if selectedTab, ok := snap.SelectedTab(); ok {
		c.emit(schema.TabEvent{Type: schema.TabEventAddress, Tab: selectedTab, Selected: snap.Selected, Address: snap.Address})
	}
	return nil
}

// Select makes id the selected tab.
func (c *Controller) Select(ctx context.Context, id schema.TabID) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return schema.ErrSessionClosed
	}
	idx := indexOfTab(c.tabs, id)
	if idx < 0 {
		c.mu.Unlock()
		return schema.ErrTabNotFound
	}
	c.selected = id
	tab := c.tabs[idx]
	snap := c.snapshotLocked()
	c.enqueueStateLocked("select", false, true)
	c.mu.Unlock()

	logx.WithTab(c.log, id).Debug("tab selected")
	c.emit(schema.TabEvent{Type: schema.TabEventSelected, Tab: tab, Tabs: snap.Tabs, Selected: snap.Selected})
	c.emit(schema.TabEvent{Type: schema.TabEventAddress, Tab: tab, Selected: snap.Selected, Address: snap.Address})
	return nil
}

// RequestNavigate normalizes target and loads it in the selected tab.
// It returns the URL that was loaded.
func (c *Controller) RequestNavigate(ctx context.Context, target string) (string, error) {
	url, err := schema.NormalizeAddress(target, c.cfg)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", schema.ErrSessionClosed
	}
	idx := indexOfTab(c.tabs, c.selected)
	if idx < 0 {
		c.mu.Unlock()
		return "", schema.ErrNoTabs
	}
	c.tabs[idx].URL = url
	tab := c.tabs[idx]
	snap := c.snapshotLocked()
	c.enqueueStateLocked("navigate", true, false)
	c.enqueueHistoryLocked(url)
	c.mu.Unlock()

	logx.WithTab(c.log, tab.ID).Info("tab navigate", "url", url)
	c.emit(schema.TabEvent{Type: schema.TabEventNavigate, Tab: tab, Tabs: snap.Tabs, Selected: snap.Selected})
	c.emit(schema.TabEvent{Type: schema.TabEventAddress, Tab: tab, Selected: snap.Selected, Address: url})
	return url, nil
}

// GoHome loads the home page in the selected tab.
func (c *Controller) GoHome(ctx context.Context) (string, error) {
	return c.RequestNavigate(ctx, c.cfg.HomeURL)
}

// URLChanged records a navigation reported by the rendering surface.
func (c *Controller) URLChanged(ctx context.Context, id schema.TabID, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return schema.ErrEmptyAddress
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return schema.ErrSessionClosed
	}
	idx := indexOfTab(c.tabs, id)
	if idx < 0 {
		c.mu.Unlock()
		return schema.ErrTabNotFound
	}
	changed := c.tabs[idx].URL != url
	c.tabs[idx].URL = url
	tab := c.tabs[idx]
	snap := c.snapshotLocked()
	if changed {
		c.enqueueStateLocked("url", true, false)
	}
	c.enqueueHistoryLocked(url)
	c.mu.Unlock()

	logx.WithTab(c.log, id).Debug("tab url changed", "url", url, "changed", changed)
	if changed {
		c.emit(schema.TabEvent{Type: schema.TabEventUpdated, Tab: tab, Tabs: snap.Tabs, Selected: snap.Selected})
	}
	if snap.Selected == id {
		c.emit(schema.TabEvent{Type: schema.TabEventAddress, Tab: tab, Selected: snap.Selected, Address: url})
	}
	return nil
}

// Flush waits until all persistence and history work queued so far has run.
func (c *Controller) Flush(ctx context.Context) error {
	return c.writer.flush(ctx)
}

// LastPersistError returns the outcome of the most recent persistence write.
func (c *Controller) LastPersistError() error {
	return c.writer.lastError()
}

// Shutdown flushes pending work and stops the controller. Operations after
// Shutdown fail with schema.ErrSessionClosed.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	if err := c.writer.shutdown(ctx); err != nil {
		return err
	}
	c.log.Debug("session controller stopped")
	return nil
}

// enqueueStateLocked schedules a write of the tab list and/or the selection as
// they are now.
func (c *Controller) enqueueStateLocked(name string, list, selection bool) {
	ns := c.session.Namespace
	tabs := schema.CloneTabs(c.tabs)
	selected := c.selected
	store := c.store
	err := c.writer.enqueue(writeTask{
		name:    name,
		persist: true,
		run: func(ctx context.Context) error {
			var errs []error
			if list {
				if err := store.SaveTabs(ctx, ns, tabs); err != nil {
					errs = append(errs, err)
				}
			}
			if selection {
				if err := persistSelection(ctx, store, ns, selected); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	})
	if err != nil {
		c.log.Warn("session write dropped", "task", name, "err", err)
	}
}

func (c *Controller) enqueueHistoryLocked(url string) {
	task, ok := c.history.task(url)
	if !ok {
		return
	}
	if err := c.writer.enqueue(task); err != nil {
		c.log.Warn("session write dropped", "task", task.name, "err", err)
	}
}

func persistSelection(ctx context.Context, store *tabstore.Store, ns schema.Namespace, selected schema.TabID) error {
	if selected == schema.NoTab {
		return store.ClearSelectedTabID(ctx, ns)
	}
	return store.SetSelectedTabID(ctx, ns, selected)
}

func (c *Controller) emit(event schema.TabEvent) {
	if c.sink == nil {
		return
	}
	event.Namespace = c.session.Namespace
	c.sink.OnTabEvent(event)
}
