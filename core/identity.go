package core

import "context"

// Identity reports and changes the signed-in account.
type Identity interface {
	// CurrentAccountEmail returns the signed-in account, if any.
	CurrentAccountEmail(ctx context.Context) (string, bool)
	// AuthStateSettled blocks until the sign-in state is known.
	AuthStateSettled(ctx context.Context) (string, bool, error)
	SignIn(ctx context.Context, email, password, totpCode string) (string, error)
	SignOut(ctx context.Context) error
}

// HistoryRecorder creates per-account history records. Repeating a call for the
// same (email, url) pair must not create a second record.
type HistoryRecorder interface {
	CreateHistoryRecord(ctx context.Context, email, url string) error
}
