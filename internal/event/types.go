package event

// StatusEvent reports a terminal transition of one change.
type StatusEvent struct {
	ChangeID string

	// Status is the new status name, "accepted" or "rejected".
	Status string

	// Pending is the number of changes still awaiting review after the
	// transition.
	Pending int
}

// StoreEventType identifies what happened to the tracked change set.
type StoreEventType uint8

const (
	// StoreAdded indicates changes were added.
	StoreAdded StoreEventType = iota

	// StoreRemoved indicates changes were removed without resolution.
	StoreRemoved

	// StoreShifted indicates change ranges moved after an edit.
	StoreShifted

	// StoreDropped indicates changes were discarded because an edit
	// destroyed their text.
	StoreDropped

	// StoreResolved indicates changes were accepted or rejected.
	StoreResolved

	// StoreCleared indicates every change was removed.
	StoreCleared
)

// String returns the event type name.
func (t StoreEventType) String() string {
	switch t {
	case StoreAdded:
		return "added"
	case StoreRemoved:
		return "removed"
	case StoreShifted:
		return "shifted"
	case StoreDropped:
		return "dropped"
	case StoreResolved:
		return "resolved"
	case StoreCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// StoreEvent names the changes touched by one store update.
// IDs is empty for StoreCleared.
type StoreEvent struct {
	Type StoreEventType
	IDs  []string
}
