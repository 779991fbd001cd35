package core

import "pkt.systems/navygator/schema"

// EventSink receives tab events from the session controller.
type EventSink interface {
	OnTabEvent(event schema.TabEvent)
}
