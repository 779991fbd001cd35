package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"pkt.systems/navygator/internal/kvstore"
	"pkt.systems/navygator/schema"
)

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, path
}

func TestStoreCreatesFile(t *testing.T) {
	_, path := newTestStore(t)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}
}

func TestStoreRejectsInvalidEmail(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.AddAccount(Account{Email: "not-an-email", PasswordHash: "hash"})
	if !errors.Is(err, schema.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestStoreAddDuplicateAndDelete(t *testing.T) {
	store, path := newTestStore(t)
	if err := store.AddAccount(Account{Email: "Alice@Example.com", PasswordHash: hashPassword(t, "pw")}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.AddAccount(Account{Email: "alice@example.com", PasswordHash: "x"}); !errors.Is(err, schema.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	accounts := store.LoadAccounts()
	if len(accounts) != 1 || accounts[0].Email != "alice@example.com" {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reopened.Exists("alice@example.com") {
		t.Fatalf("expected account to persist")
	}
	if err := reopened.DeleteAccount("alice@example.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := reopened.DeleteAccount("alice@example.com"); !errors.Is(err, schema.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	// The first handle picks up the change from disk.
	if store.Exists("alice@example.com") {
		t.Fatalf("expected refresh to drop deleted account")
	}
}

func TestStoreAuthenticatePassword(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.AddAccount(Account{Email: "bob@example.com", PasswordHash: hashPassword(t, "secret")}); err != nil {
		t.Fatalf("add: %v", err)
	}
	email, err := store.Authenticate(" BOB@example.com ", "secret", "")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if email != "bob@example.com" {
		t.Fatalf("unexpected email %q", email)
	}
	if _, err := store.Authenticate("bob@example.com", "wrong", ""); !errors.Is(err, schema.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := store.Authenticate("nobody@example.com", "secret", ""); !errors.Is(err, schema.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown account, got %v", err)
	}
}

func TestStoreAuthenticateTOTP(t *testing.T) {
	store, _ := newTestStore(t)
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "navygator", AccountName: "carol@example.com"})
	if err != nil {
		t.Fatalf("totp generate: %v", err)
	}
	if err := store.AddAccount(Account{
		Email:        "carol@example.com",
		PasswordHash: hashPassword(t, "pw"),
		TOTPSecret:   key.Secret(),
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.Authenticate("carol@example.com", "pw", "000000x"); !errors.Is(err, schema.ErrInvalidTOTP) {
		t.Fatalf("expected ErrInvalidTOTP, got %v", err)
	}
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if _, err := store.Authenticate("carol@example.com", "pw", code); err != nil {
		t.Fatalf("authenticate with totp: %v", err)
	}
}

func TestProviderSignInOut(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	if err := store.AddAccount(Account{Email: "dave@example.com", PasswordHash: hashPassword(t, "pw")}); err != nil {
		t.Fatalf("add: %v", err)
	}
	kv := kvstore.NewMemory()
	provider, err := NewProvider(store, kv, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, ok := provider.CurrentAccountEmail(ctx); ok {
		t.Fatalf("expected signed out initially")
	}
	if _, err := provider.SignIn(ctx, "dave@example.com", "nope", ""); err == nil {
		t.Fatalf("expected sign-in failure")
	}
	email, err := provider.SignIn(ctx, "Dave@Example.com", "pw", "")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	got, ok := provider.CurrentAccountEmail(ctx)
	if !ok || got != email {
		t.Fatalf("expected %q signed in, got %q ok=%v", email, got, ok)
	}
	if err := provider.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, ok := provider.CurrentAccountEmail(ctx); ok {
		t.Fatalf("expected signed out")
	}
	if err := provider.SignOut(ctx); !errors.Is(err, schema.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn on second sign out, got %v", err)
	}
}

func TestProviderIgnoresStaleMarker(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	kv := kvstore.NewMemory()
	if err := kv.Set(ctx, CurrentAccountKey, "ghost@example.com"); err != nil {
		t.Fatalf("set: %v", err)
	}
	provider, err := NewProvider(store, kv, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	email, ok, err := provider.AuthStateSettled(ctx)
	if err != nil {
		t.Fatalf("settled: %v", err)
	}
	if ok || email != "" {
		t.Fatalf("expected stale marker to resolve as signed out, got %q", email)
	}
}
