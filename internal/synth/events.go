// Package synth drives per-chapter text-to-speech rendering across a
// bounded worker pool. Workers communicate with the controlling
// goroutine exclusively through a typed event channel; no other state
// is shared.
package synth

// EventKind discriminates the five worker event variants.
type EventKind string

const (
	EventStart    EventKind = "start"
	EventProgress EventKind = "progress"
	EventDone     EventKind = "done"
	EventError    EventKind = "error"
	EventLog      EventKind = "log"
)

// Event is one message from a worker to the controller. WorkerID is
// always set; the remaining fields depend on Kind:
//
//	Start:    Title, TotalUnits, TotalChars
//	Progress: UnitsAdvanced, CurrentUnit, TotalUnits, UnitChars
//	Done:     (no payload)
//	Error:    Title, Message, Detail
//	Log:      Text
type Event struct {
	Kind     EventKind
	WorkerID int

	Title      string
	TotalUnits int
	TotalChars int

	UnitsAdvanced int
	CurrentUnit   int
	UnitChars     int

	Message string
	Detail  string

	Text string
}
