package navygator

import (
	"pkt.systems/navygator/core"
	"pkt.systems/navygator/schema"
)

// eventFanout delivers each tab event to every sink in registration order.
type eventFanout []core.EventSink

func newEventFanout(sinks ...core.EventSink) eventFanout {
	out := make(eventFanout, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			out = append(out, sink)
		}
	}
	return out
}

func (f eventFanout) OnTabEvent(event schema.TabEvent) {
	for _, sink := range f {
		sink.OnTabEvent(event)
	}
}
