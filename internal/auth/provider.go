package auth

import (
	"context"
	"errors"
	"strings"

	"pkt.systems/navygator/internal/kvstore"
	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

// CurrentAccountKey holds the signed-in account email.
const CurrentAccountKey = "auth.current_account"

// Provider tracks the signed-in account on top of the account store.
type Provider struct {
	accounts *Store
	kv       kvstore.Store
	log      pslog.Logger
}

// NewProvider constructs an identity provider.
func NewProvider(accounts *Store, kv kvstore.Store, logger pslog.Logger) (*Provider, error) {
	if accounts == nil {
		return nil, errors.New("account store is required")
	}
	if kv == nil {
		return nil, errors.New("key-value store is required")
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Provider{accounts: accounts, kv: kv, log: logger}, nil
}

// CurrentAccountEmail returns the signed-in account, if any.
func (p *Provider) CurrentAccountEmail(ctx context.Context) (string, bool) {
	email, ok, err := p.AuthStateSettled(ctx)
	if err != nil {
		return "", false
	}
	return email, ok
}

// AuthStateSettled resolves the persisted sign-in state. A marker for an account
// that no longer exists resolves as signed out.
func (p *Provider) AuthStateSettled(ctx context.Context) (string, bool, error) {
	raw, ok, err := p.kv.Get(ctx, CurrentAccountKey)
	if err != nil {
		return "", false, err
	}
	email := strings.TrimSpace(raw)
	if !ok || email == "" {
		return "", false, nil
	}
	if !p.accounts.Exists(email) {
		p.log.Warn("auth signed-in account missing", "account", email)
		return "", false, nil
	}
	return email, true, nil
}

// SignIn authenticates and persists the signed-in account.
func (p *Provider) SignIn(ctx context.Context, email, password, totpCode string) (string, error) {
	normalized, err := p.accounts.Authenticate(email, password, totpCode)
	if err != nil {
		p.log.Warn("auth sign-in rejected", "account", email, "err", err)
		return "", err
	}
	if err := p.kv.Set(ctx, CurrentAccountKey, normalized); err != nil {
		return "", err
	}
	p.log.Info("auth signed in", "account", normalized)
	return normalized, nil
}

// SignOut clears the signed-in account. It fails with schema.ErrNotSignedIn
// when no marker is stored.
func (p *Provider) SignOut(ctx context.Context) error {
	_, ok, err := p.kv.Get(ctx, CurrentAccountKey)
	if err != nil {
		return err
	}
	if !ok {
		return schema.ErrNotSignedIn
	}
	if err := p.kv.Remove(ctx, CurrentAccountKey); err != nil {
		return err
	}
	p.log.Info("auth signed out")
	return nil
}
