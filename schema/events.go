package schema

// TabEventType describes tab lifecycle or state changes.
type TabEventType string

const (
	// TabEventActivated indicates a namespace working set was loaded.
	TabEventActivated TabEventType = "activated"
	// TabEventCreated indicates a tab was created.
	TabEventCreated TabEventType = "created"
	// TabEventClosed indicates a tab was closed.
	TabEventClosed TabEventType = "closed"
	// TabEventSelected indicates the selection changed.
	TabEventSelected TabEventType = "selected"
	// TabEventUpdated indicates a tab URL changed.
	TabEventUpdated TabEventType = "updated"
	// TabEventNavigate asks the rendering surface to load Tab.URL in Tab.ID.
	TabEventNavigate TabEventType = "navigate"
	// TabEventAddress carries new address-bar text for the selected tab.
	TabEventAddress TabEventType = "address"
)

// TabEvent represents a tab change for UI and rendering consumers.
type TabEvent struct {
	Namespace Namespace
	Type      TabEventType
	Tab       Tab
	Tabs      []Tab
	Selected  TabID
	Address   string
}
