package doc

// EventType distinguishes change notifications.
type EventType int

const (
	// EventCreated fires after the first save of a document.
	EventCreated EventType = iota + 1
	// EventUpdated fires after every later save.
	EventUpdated
)

// String returns the event name used in logs.
func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Event is a change notification delivered by the storage collaborator
// after a save has committed.
type Event struct {
	Type     EventType
	Document Document
}

// Listener receives change events. Implementations must return quickly;
// they run on the saving goroutine.
type Listener func(Event)
