package core

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

// Session owns the active controller and switches namespaces on sign-in and
// sign-out. The dormant namespace stays in the store untouched.
type Session struct {
	cfg      schema.SessionConfig
	deps     SessionDeps
	ids      *idMinter
	resolver *Resolver
	log      pslog.Logger

	mu     sync.Mutex
	active *Controller
}

// NewSession validates cfg and constructs a session. Call Activate before use.
func NewSession(cfg schema.SessionConfig, deps SessionDeps) (*Session, error) {
	normalized, err := schema.NormalizeSessionConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Store == nil {
		return nil, errors.New("tab store is required")
	}
	if deps.Logger == nil {
		deps.Logger = pslog.Ctx(context.Background())
	}
	ids := newIDMinter(deps.Now)
	return &Session{
		cfg:      normalized,
		deps:     deps,
		ids:      ids,
		resolver: newResolver(normalized, deps.Store, deps.Identity, ids),
		log:      deps.Logger,
	}, nil
}

// Config returns the normalized session configuration.
func (s *Session) Config() schema.SessionConfig {
	return s.cfg
}

// Resolver exposes the namespace resolver.
func (s *Session) Resolver() *Resolver {
	return s.resolver
}

// Controller returns the active controller, or nil before Activate.
func (s *Session) Controller() *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Activate resolves the namespace for the current sign-in state and replaces
// the active controller. The previous controller is flushed and stopped first.
func (s *Session) Activate(ctx context.Context) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.stopActiveLocked(ctx); err != nil {
		return nil, err
	}
	set := s.resolver.Resolve(pslog.ContextWithLogger(ctx, s.log))
	ctrl := newController(ctx, s.cfg, set, s.deps, s.ids)
	s.active = ctrl
	snap := ctrl.Snapshot()
	ctrl.emit(schema.TabEvent{Type: schema.TabEventActivated, Tabs: snap.Tabs, Selected: snap.Selected, Address: snap.Address})
	s.log.Info("session activated", "namespace", string(set.Session.Namespace), "tabs", len(snap.Tabs))
	return ctrl, nil
}

// SignIn authenticates with the identity provider and activates the
// authenticated namespace.
func (s *Session) SignIn(ctx context.Context, email, password, totpCode string) (*Controller, error) {
	if s.deps.Identity == nil {
		return nil, errors.New("identity provider is not configured")
	}
	if _, err := s.deps.Identity.SignIn(ctx, email, password, totpCode); err != nil {
		return nil, err
	}
	return s.Activate(ctx)
}

// SignOut flushes the authenticated controller, signs out, and activates the
// guest namespace.
func (s *Session) SignOut(ctx context.Context) (*Controller, error) {
	if s.deps.Identity == nil {
		return nil, errors.New("identity provider is not configured")
	}
	if _, ok := s.deps.Identity.CurrentAccountEmail(ctx); !ok {
		return nil, schema.ErrNotSignedIn
	}
	s.mu.Lock()
	err := s.stopActiveLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := s.deps.Identity.SignOut(ctx); err != nil {
		// Still signed in: bring the authenticated working set back.
		if _, actErr := s.Activate(ctx); actErr != nil {
			return nil, errors.Join(err, actErr)
		}
		return nil, err
	}
	return s.Activate(ctx)
}

// Close flushes and stops the active controller.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopActiveLocked(ctx)
}

func (s *Session) stopActiveLocked(ctx context.Context) error {
	if s.active == nil {
		return nil
	}
	if err := s.active.Shutdown(ctx); err != nil {
		return err
	}
	s.active = nil
	return nil
}
