package schema

// Namespace identifies one of the two independent tab sets.
type Namespace string

const (
	// NamespaceGuest holds tabs for anonymous sessions.
	NamespaceGuest Namespace = "guest"
	// NamespaceAuthenticated holds tabs for signed-in sessions.
	NamespaceAuthenticated Namespace = "authenticated"
)

// TabID identifies a tab within a namespace. Zero means no tab.
type TabID int64

// NoTab is the zero TabID used for an absent selection.
const NoTab TabID = 0

// Tab is one browsing surface.
type Tab struct {
	ID  TabID  `json:"id"`
	URL string `json:"url"`
}

// SessionContext carries the resolved namespace and account for a session.
type SessionContext struct {
	Namespace    Namespace
	AccountEmail string
}

// Authenticated reports whether the context belongs to a signed-in account.
func (c SessionContext) Authenticated() bool {
	return c.Namespace == NamespaceAuthenticated && c.AccountEmail != ""
}

// CloneTabs returns a copy of tabs that shares no backing array.
func CloneTabs(tabs []Tab) []Tab {
	if tabs == nil {
		return nil
	}
	out := make([]Tab, len(tabs))
	copy(out, tabs)
	return out
}
