// Package auth implements a local identity provider backed by an account file.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"pkt.systems/navygator/internal/kvstore"
	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

// Account represents a stored account.
type Account struct {
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	TOTPSecret   string `json:"totp_secret,omitempty"`
}

// Store manages accounts stored on disk.
type Store struct {
	path      string
	mu        sync.RWMutex
	accounts  map[string]Account
	fileState fileState
	log       pslog.Logger
}

// NewStore loads or creates the account store.
func NewStore(path string) (*Store, error) {
	return NewStoreWithLogger(path, nil)
}

// NewStoreWithLogger loads or creates the account store with logging.
func NewStoreWithLogger(path string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("account file path is required")
	}
	if logger != nil {
		logger = logger.With("account_file", path)
	}
	store := &Store{
		path:     path,
		accounts: make(map[string]Account),
		log:      logger,
	}
	if err := store.ensureFile(); err != nil {
		return nil, err
	}
	if err := store.loadFromDisk(); err != nil {
		return nil, err
	}
	return store, nil
}

// Authenticate verifies email, password, and (when enrolled) the TOTP code.
// It returns the normalized email on success.
func (s *Store) Authenticate(email, password, totpCode string) (string, error) {
	if err := s.refreshIfNeeded(); err != nil {
		return "", err
	}
	normalized, err := schema.NormalizeEmail(email)
	if err != nil {
		return "", schema.ErrInvalidCredentials
	}
	s.mu.RLock()
	account, ok := s.accounts[normalized]
	s.mu.RUnlock()
	if !ok {
		return "", schema.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", schema.ErrInvalidCredentials
	}
	if account.TOTPSecret != "" && !totp.Validate(strings.TrimSpace(totpCode), account.TOTPSecret) {
		return "", schema.ErrInvalidTOTP
	}
	return normalized, nil
}

// Exists reports whether an account is registered for email.
func (s *Store) Exists(email string) bool {
	if err := s.refreshIfNeeded(); err != nil && s.log != nil {
		s.log.Warn("auth store refresh failed", "err", err)
	}
	normalized, err := schema.NormalizeEmail(email)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[normalized]
	return ok
}

// LoadAccounts returns a snapshot of accounts sorted by email.
func (s *Store) LoadAccounts() []Account {
	if err := s.refreshIfNeeded(); err != nil && s.log != nil {
		s.log.Warn("auth store refresh failed", "err", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := make([]Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Email < accounts[j].Email })
	return accounts
}

// AddAccount inserts a new account and persists the store.
func (s *Store) AddAccount(account Account) error {
	if err := s.refreshIfNeeded(); err != nil {
		return err
	}
	email, err := schema.NormalizeEmail(account.Email)
	if err != nil {
		return err
	}
	if strings.TrimSpace(account.PasswordHash) == "" {
		return errors.New("password hash is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[email]; ok {
		return schema.ErrAccountExists
	}
	account.Email = email
	s.accounts[email] = account
	if err := s.saveLocked(); err != nil {
		delete(s.accounts, email)
		if s.log != nil {
			s.log.Warn("auth account add failed", "account", email, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Info("auth account added", "account", email)
	}
	return nil
}

// DeleteAccount removes an account.
func (s *Store) DeleteAccount(email string) error {
	if err := s.refreshIfNeeded(); err != nil {
		return err
	}
	normalized, err := schema.NormalizeEmail(email)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[normalized]
	if !ok {
		return schema.ErrAccountNotFound
	}
	delete(s.accounts, normalized)
	if err := s.saveLocked(); err != nil {
		s.accounts[normalized] = account
		if s.log != nil {
			s.log.Warn("auth account delete failed", "account", normalized, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Info("auth account deleted", "account", normalized)
	}
	return nil
}

func (s *Store) ensureFile() error {
	if _, statErr := os.Stat(s.path); statErr == nil {
		return nil
	} else if !os.IsNotExist(statErr) {
		return statErr
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, []byte("[]\n"), 0o600); err != nil {
		return err
	}
	if s.log != nil {
		s.log.Info("auth store initialized")
	}
	return nil
}

func (s *Store) saveLocked() error {
	accounts := make([]Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Email < accounts[j].Email })
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return err
	}
	if err := kvstore.WriteFileAtomic(s.path, data); err != nil {
		return err
	}
	if info, err := os.Stat(s.path); err == nil {
		s.fileState = fileStateFromInfo(info)
	}
	if s.log != nil {
		s.log.Debug("auth store save ok", "accounts", len(accounts))
	}
	return nil
}

type fileState struct {
	modTime time.Time
	size    int64
	inode   uint64
	dev     uint64
}

func fileStateFromInfo(info os.FileInfo) fileState {
	state := fileState{
		modTime: info.ModTime(),
		size:    info.Size(),
	}
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		state.inode = uint64(stat.Ino)
		state.dev = uint64(stat.Dev)
	}
	return state
}

func (s fileState) equal(other fileState) bool {
	return s.size == other.size &&
		s.modTime.Equal(other.modTime) &&
		s.inode == other.inode &&
		s.dev == other.dev
}

func (s *Store) refreshIfNeeded() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return err
	}
	latest := fileStateFromInfo(info)
	s.mu.RLock()
	current := s.fileState
	s.mu.RUnlock()
	if current.equal(latest) {
		return nil
	}
	return s.loadFromDisk()
}

func (s *Store) loadFromDisk() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		if s.log != nil {
			s.log.Warn("auth store load failed", "err", err)
		}
		return fmt.Errorf("parse account file: %w", err)
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return err
	}
	next := make(map[string]Account, len(accounts))
	for _, account := range accounts {
		email, err := schema.NormalizeEmail(account.Email)
		if err != nil {
			return fmt.Errorf("account %q: %w", account.Email, err)
		}
		account.Email = email
		next[email] = account
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = next
	s.fileState = fileStateFromInfo(info)
	if s.log != nil {
		s.log.Debug("auth store load ok", "accounts", len(accounts))
	}
	return nil
}
