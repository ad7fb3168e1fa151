package run

// Status is the lifecycle state carried by a progress event.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
	StatusError      Status = "ERROR"
)

// EventKind distinguishes item transitions from batch boundaries.
type EventKind int

const (
	// EventItem is one item transition (started/succeeded/failed).
	EventItem EventKind = iota + 1
	// EventBatch marks a batch boundary before its first item.
	EventBatch
)

// Event is one progress notification. Events are emitted in the exact
// order items are attempted; consumers reconstruct run state without
// racing ahead of it.
type Event struct {
	Kind      EventKind
	Batch     int    // 1-based batch number; 0 for second-pass relation updates
	ItemKey   string // "table/documentId", empty for batch events
	Operation string // CREATE | UPDATE | DELETE | RELATION_UPDATE
	Status    Status
	Message   string
}

// Sink consumes progress events. The executor calls it synchronously
// from the run goroutine; a nil sink discards events.
type Sink func(Event)

func (s Sink) emit(ev Event) {
	if s != nil {
		s(ev)
	}
}

// Outcome is the terminal per-selection state of one run.
type Outcome struct {
	ItemKey string
	Success bool
	Message string
}
