package core

import (
	"sync"
	"time"

	"pkt.systems/navygator/schema"
)

// idMinter mints tab ids from the wall clock in milliseconds. Ids are strictly
// increasing and always above every id passed as existing.
type idMinter struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func newIDMinter(now func() time.Time) *idMinter {
	if now == nil {
		now = time.Now
	}
	return &idMinter{now: now}
}

func (m *idMinter) next(existing []schema.Tab) schema.TabID {
	m.mu.Lock()
	defer m.mu.Unlock()
	candidate := m.now().UnixMilli()
	if candidate <= m.last {
		candidate = m.last + 1
	}
	for _, tab := range existing {
		if int64(tab.ID) >= candidate {
			candidate = int64(tab.ID) + 1
		}
	}
	if candidate <= 0 {
		candidate = 1
	}
	m.last = candidate
	return schema.TabID(candidate)
}
