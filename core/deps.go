package core

import (
	"time"

	"pkt.systems/navygator/internal/tabstore"
	"pkt.systems/pslog"
)

// SessionDeps captures the collaborators of a session.
type SessionDeps struct {
	Store     *tabstore.Store
	Identity  Identity
	History   HistoryRecorder
	EventSink EventSink
	Logger    pslog.Logger
	// Now overrides the clock used to mint tab ids.
	Now func() time.Time
}
