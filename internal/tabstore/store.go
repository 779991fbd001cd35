// Package tabstore persists each namespace's tab list and selection in a key-value store.
package tabstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pkt.systems/navygator/internal/kvstore"
	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

// Store reads and writes namespace-qualified tab state.
type Store struct {
	kv  kvstore.Store
	log pslog.Logger
}

// New constructs a tab store over kv.
func New(kv kvstore.Store, logger pslog.Logger) (*Store, error) {
	if kv == nil {
		return nil, errors.New("key-value store is required")
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Store{kv: kv, log: logger}, nil
}

// TabsKey returns the key holding the tab list of ns.
func TabsKey(ns schema.Namespace) string {
	return "tabs." + string(ns)
}

// SelectedKey returns the key holding the selected tab id of ns.
func SelectedKey(ns schema.Namespace) string {
	return "selected_tab." + string(ns)
}

// LoadTabs returns the stored tabs of ns. Missing, unreadable, or corrupt values
// yield an empty list.
func (s *Store) LoadTabs(ctx context.Context, ns schema.Namespace) []schema.Tab {
	log := s.log.With("namespace", ns)
	raw, ok, err := s.kv.Get(ctx, TabsKey(ns))
	if err != nil {
		log.Warn("tabs load failed", "err", err)
		return []schema.Tab{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		log.Debug("tabs load miss")
		return []schema.Tab{}
	}
	var stored []schema.Tab
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Warn("tabs load failed", "err", err)
		return []schema.Tab{}
	}
	tabs := sanitizeTabs(stored)
	if dropped := len(stored) - len(tabs); dropped > 0 {
		log.Warn("tabs load dropped invalid entries", "dropped", dropped)
	}
	log.Debug("tabs load ok", "tabs", len(tabs))
	return tabs
}

// SaveTabs overwrites the stored tab list of ns.
func (s *Store) SaveTabs(ctx context.Context, ns schema.Namespace, tabs []schema.Tab) error {
	if tabs == nil {
		tabs = []schema.Tab{}
	}
	data, err := json.Marshal(tabs)
	if err != nil {
		return fmt.Errorf("encode tabs: %w", err)
	}
	if err := s.kv.Set(ctx, TabsKey(ns), string(data)); err != nil {
		return fmt.Errorf("save tabs: %w", err)
	}
	s.log.Trace("tabs saved", "namespace", ns, "tabs", len(tabs))
	return nil
}

// AddTab appends tab to the stored list of ns and returns the new list.
func (s *Store) AddTab(ctx context.Context, ns schema.Namespace, tab schema.Tab) ([]schema.Tab, error) {
	tabs := append(s.LoadTabs(ctx, ns), tab)
	if err := s.SaveTabs(ctx, ns, tabs); err != nil {
		return tabs, err
	}
	return tabs, nil
}

// RemoveTab removes id from the stored list of ns and returns the new list.
func (s *Store) RemoveTab(ctx context.Context, ns schema.Namespace, id schema.TabID) ([]schema.Tab, error) {
	current := s.LoadTabs(ctx, ns)
	tabs := make([]schema.Tab, 0, len(current))
	for _, tab := range current {
		if tab.ID != id {
			tabs = append(tabs, tab)
		}
	}
	if err := s.SaveTabs(ctx, ns, tabs); err != nil {
		return tabs, err
	}
	return tabs, nil
}

// SelectedTabID returns the stored selection of ns. It never writes.
func (s *Store) SelectedTabID(ctx context.Context, ns schema.Namespace) (schema.TabID, bool) {
	log := s.log.With("namespace", ns)
	raw, ok, err := s.kv.Get(ctx, SelectedKey(ns))
	if err != nil {
		log.Warn("selected tab load failed", "err", err)
		return schema.NoTab, false
	}
	if !ok {
		return schema.NoTab, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		log.Warn("selected tab load failed", "value", raw, "err", err)
		return schema.NoTab, false
	}
	return schema.TabID(id), true
}

// SetSelectedTabID stores id as the selection of ns without validating it.
func (s *Store) SetSelectedTabID(ctx context.Context, ns schema.Namespace, id schema.TabID) error {
	if err := s.kv.Set(ctx, SelectedKey(ns), strconv.FormatInt(int64(id), 10)); err != nil {
		return fmt.Errorf("save selected tab: %w", err)
	}
	s.log.Trace("selected tab saved", "namespace", ns, "tab", id)
	return nil
}

// ClearSelectedTabID removes the stored selection of ns.
func (s *Store) ClearSelectedTabID(ctx context.Context, ns schema.Namespace) error {
	if err := s.kv.Remove(ctx, SelectedKey(ns)); err != nil {
		return fmt.Errorf("clear selected tab: %w", err)
	}
	return nil
}

func sanitizeTabs(stored []schema.Tab) []schema.Tab {
	tabs := make([]schema.Tab, 0, len(stored))
	seen := make(map[schema.TabID]struct{}, len(stored))
	for _, tab := range stored {
		if tab.ID <= schema.NoTab {
			continue
		}
		if _, dup := seen[tab.ID]; dup {
			continue
		}
		seen[tab.ID] = struct{}{}
		tabs = append(tabs, tab)
	}
	return tabs
}
