package navygator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"pkt.systems/navygator/core"
	"pkt.systems/navygator/internal/appconfig"
	"pkt.systems/navygator/internal/auth"
	"pkt.systems/navygator/internal/eventbus"
	"pkt.systems/navygator/internal/history"
	"pkt.systems/navygator/internal/kvstore"
	"pkt.systems/navygator/internal/sessionctx"
	"pkt.systems/navygator/internal/surface/chrome"
	"pkt.systems/navygator/internal/tabstore"
	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

// Option toggles optional browser components.
type Option func(*options)

type options struct {
	enableSurface bool
	sinks         []core.EventSink
	now           func() time.Time
}

// WithSurface renders tabs in Chrome.
func WithSurface() Option {
	return func(o *options) { o.enableSurface = true }
}

// WithEventSink adds a sink that receives every tab event.
func WithEventSink(sink core.EventSink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sink) }
}

// WithClock overrides the clock used to mint tab ids.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Browser composes storage, identity, history, rendering, and the tab session.
type Browser struct {
	cfg      appconfig.Config
	kv       kvstore.Store
	tabs     *tabstore.Store
	accounts *auth.Store
	identity *auth.Provider
	history  history.Store
	bus      *eventbus.Bus
	surface  *chrome.Surface
	session  *core.Session
	logger   pslog.Logger

	mu     sync.Mutex
	closed bool
}

// Open builds every component from cfg and activates the session for the
// current sign-in state.
func Open(ctx context.Context, cfg appconfig.Config, opts ...Option) (*Browser, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := pslog.Ctx(ctx)
	b := &Browser{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = b.Close(context.Background())
		}
	}()

	kv, err := openKV(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	b.kv = kv
	if b.tabs, err = tabstore.New(kv, logger); err != nil {
		return nil, err
	}
	if b.accounts, err = auth.NewStoreWithLogger(cfg.Auth.AccountFile, logger); err != nil {
		return nil, fmt.Errorf("open accounts: %w", err)
	}
	if b.identity, err = auth.NewProvider(b.accounts, kv, logger); err != nil {
		return nil, err
	}
	if b.history, err = history.OpenSQLite(ctx, cfg.History.DBPath, logger); err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	b.bus = eventbus.New(logger)
	sinks := []core.EventSink{b.bus}
	if o.enableSurface {
		surface, err := chrome.New(ctx, chrome.Config{
			Headless:        cfg.Chrome.Headless,
			ExecPath:        cfg.Chrome.ExecPath,
			NavigateTimeout: time.Duration(cfg.Chrome.NavigateTimeoutSeconds) * time.Second,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("start chrome: %w", err)
		}
		b.surface = surface
		sinks = append(sinks, surface)
	}
	sinks = append(sinks, o.sinks...)

	session, err := core.NewSession(cfg.SessionConfig(), core.SessionDeps{
		Store:     b.tabs,
		Identity:  b.identity,
		History:   b.history,
		EventSink: newEventFanout(sinks...),
		Logger:    logger,
		Now:       o.now,
	})
	if err != nil {
		return nil, err
	}
	b.session = session
	if b.surface != nil {
		b.surface.SetReporter(b.reportNavigation)
	}
	if _, err := session.Activate(ctx); err != nil {
		return nil, err
	}
	ok = true
	logger.Info("browser open", "backend", cfg.Storage.Backend, "surface", b.surface != nil)
	return b, nil
}

func openKV(ctx context.Context, cfg appconfig.Config, logger pslog.Logger) (kvstore.Store, error) {
	switch cfg.Storage.Backend {
	case appconfig.BackendSQLite:
		return kvstore.OpenSQLite(ctx, cfg.Storage.SQLitePath, logger)
	case appconfig.BackendFile, "":
		return kvstore.NewFileStoreWithLogger(filepath.Join(cfg.StateDir, "kv"), logger)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

func (b *Browser) reportNavigation(ctx context.Context, id schema.TabID, url string) error {
	ctrl := b.session.Controller()
	if ctrl == nil {
		return schema.ErrSessionClosed
	}
	// Reports from targets opened for the previous namespace are stale.
	if session, ok := sessionctx.FromContext(ctx); ok && session.Namespace != ctrl.Session().Namespace {
		return schema.ErrSessionClosed
	}
	return ctrl.URLChanged(ctx, id, url)
}

// Session returns the tab session.
func (b *Browser) Session() *core.Session { return b.session }

// Controller returns the active controller.
func (b *Browser) Controller() *core.Controller { return b.session.Controller() }

// Tabs returns the tab store shared by both namespaces.
func (b *Browser) Tabs() *tabstore.Store { return b.tabs }

// Accounts returns the local account store.
func (b *Browser) Accounts() *auth.Store { return b.accounts }

// Identity returns the identity provider.
func (b *Browser) Identity() *auth.Provider { return b.identity }

// History returns the history store.
func (b *Browser) History() history.Store { return b.history }

// Events returns the tab event bus.
func (b *Browser) Events() *eventbus.Bus { return b.bus }

// Surface returns the Chrome surface, or nil when disabled.
func (b *Browser) Surface() *chrome.Surface { return b.surface }

// Close flushes the session and releases every component.
func (b *Browser) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	if b.session != nil {
		if err := b.session.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close session: %w", err))
		}
	}
	if b.surface != nil {
		if err := b.surface.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chrome: %w", err))
		}
	}
	if b.history != nil {
		if err := b.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	if b.kv != nil {
		if err := b.kv.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if len(errs) > 0 {
		b.logger.Warn("browser close failed", "err", errors.Join(errs...))
		return errors.Join(errs...)
	}
	b.logger.Debug("browser closed")
	return nil
}
