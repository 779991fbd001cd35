package schema

// SessionSnapshot is a read-only view of the active working set for rendering.
type SessionSnapshot struct {
	Namespace    Namespace `json:"namespace"`
	AccountEmail string    `json:"account,omitempty"`
	Tabs         []Tab     `json:"tabs"`
	Selected     TabID     `json:"selected,omitempty"`
	Address      string    `json:"address"`
}

// SelectedTab returns the selected tab if the selection is valid.
func (s SessionSnapshot) SelectedTab() (Tab, bool) {
	if s.Selected == NoTab {
		return Tab{}, false
	}
	for _, tab := range s.Tabs {
		if tab.ID == s.Selected {
			return tab, true
		}
	}
	return Tab{}, false
}
