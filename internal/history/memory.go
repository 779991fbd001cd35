package history

import (
	"context"
	"sync"
	"time"

	"pkt.systems/navygator/schema"
)

// Memory is an in-process history store.
type Memory struct {
	mu      sync.Mutex
	records map[string]schema.HistoryRecord
	order   []string
	now     func() time.Time
}

// NewMemory constructs an empty in-memory history store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]schema.HistoryRecord), now: time.Now}
}

func (m *Memory) CreateHistoryRecord(ctx context.Context, email, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validPair(email, url) {
		return nil
	}
	id := RecordID(email, url)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; ok {
		return nil
	}
	m.records[id] = schema.HistoryRecord{ID: id, Email: email, URL: url, CreatedAt: m.now().UTC()}
	m.order = append(m.order, id)
	return nil
}

func (m *Memory) List(ctx context.Context, email string) ([]schema.HistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]schema.HistoryRecord, 0)
	for _, id := range m.order {
		if rec := m.records[id]; rec.Email == email {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, email, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := RecordID(email, url)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return nil
	}
	delete(m.records, id)
	for i, current := range m.order {
		if current == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *Memory) Close() error { return nil }
