package core

import (
	"context"
	"strings"

	"pkt.systems/navygator/schema"
)

// historyEmitter turns accepted navigations into history record tasks for
// authenticated sessions.
type historyEmitter struct {
	recorder HistoryRecorder
	session  schema.SessionContext
}

func (h historyEmitter) task(url string) (writeTask, bool) {
	if h.recorder == nil || !h.session.Authenticated() {
		return writeTask{}, false
	}
	email := h.session.AccountEmail
	url = strings.TrimSpace(url)
	if email == "" || url == "" {
		return writeTask{}, false
	}
	recorder := h.recorder
	return writeTask{
		name: "history",
		run: func(ctx context.Context) error {
			return recorder.CreateHistoryRecord(ctx, email, url)
		},
	}, true
}
