package eventbus

import (
	"context"
	"sync"

	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

// Bus fans out tab events to per-namespace subscribers.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.Namespace]map[chan schema.TabEvent]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.Namespace]map[chan schema.TabEvent]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the namespace and returns a channel + cancel.
func (b *Bus) Subscribe(ns schema.Namespace) (<-chan schema.TabEvent, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan schema.TabEvent, b.depth)
	b.mu.Lock()
	nsSubs := b.subs[ns]
	if nsSubs == nil {
		nsSubs = make(map[chan schema.TabEvent]struct{})
		b.subs[ns] = nsSubs
	}
	nsSubs[ch] = struct{}{}
	count := len(nsSubs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.With("namespace", string(ns)).Debug("eventbus subscribe", "subs", count)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[ns]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, ns)
				}
			}
			b.mu.Unlock()
			close(ch)
			if b.log != nil {
				b.log.With("namespace", string(ns)).Debug("eventbus unsubscribe")
			}
		})
	}
}

// OnTabEvent publishes a tab event.
func (b *Bus) OnTabEvent(event schema.TabEvent) {
	if b == nil {
		return
	}
	b.mu.Lock()
	nsSubs := b.subs[event.Namespace]
	subs := make([]chan schema.TabEvent, 0, len(nsSubs))
	for sub := range nsSubs {
		subs = append(subs, sub)
	}
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 && b.log != nil {
		b.log.With("namespace", string(event.Namespace)).Trace("eventbus dropped", "count", dropped, "type", string(event.Type))
	}
}
