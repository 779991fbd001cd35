package schema

import "errors"

var (
	// ErrTabNotFound indicates a requested tab could not be found.
	ErrTabNotFound = errors.New("tab not found")
	// ErrNoTabs indicates the working set has no tabs.
	ErrNoTabs = errors.New("no tabs")
	// ErrEmptyAddress indicates a navigation request without text.
	ErrEmptyAddress = errors.New("empty address")
	// ErrInvalidNamespace indicates an unknown namespace name.
	ErrInvalidNamespace = errors.New("invalid namespace")
	// ErrInvalidEmail indicates an account email that cannot be used.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidCredentials indicates a failed sign-in.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidTOTP indicates a wrong or missing second factor.
	ErrInvalidTOTP = errors.New("invalid totp")
	// ErrAccountExists indicates an account already exists.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound indicates an account could not be found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNotSignedIn indicates an operation that requires an account.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrSessionClosed indicates the controller has been shut down.
	ErrSessionClosed = errors.New("session closed")
)
