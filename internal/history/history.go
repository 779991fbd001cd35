// Package history stores visited URLs per account.
package history

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"pkt.systems/navygator/schema"
)

// recordSpace scopes deterministic record ids.
var recordSpace = uuid.MustParse("6c1d2f0e-8a57-4f1b-9a53-2f4d7c0b8e41")

// Store is a history document store.
type Store interface {
	// CreateHistoryRecord records url for email. Repeating a pair is a no-op.
	CreateHistoryRecord(ctx context.Context, email, url string) error
	// List returns the records of email, oldest first.
	List(ctx context.Context, email string) ([]schema.HistoryRecord, error)
	// Delete removes the record for the (email, url) pair.
	Delete(ctx context.Context, email, url string) error
	Close() error
}

// RecordID derives the stable id of the (email, url) pair.
func RecordID(email, url string) string {
	return uuid.NewSHA1(recordSpace, []byte(email+"\n"+url)).String()
}

func validPair(email, url string) bool {
	return strings.TrimSpace(email) != "" && strings.TrimSpace(url) != ""
}
