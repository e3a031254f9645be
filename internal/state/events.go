package state

import (
	"time"

	"github.com/pavadmin/pavadmin/internal/rcon"
)

// Event records one connection lifecycle transition or reconnect failure.
type Event struct {
	Time   time.Time `json:"time"`
	Type   string    `json:"type"` // state, reconnect_failed
	From   string    `json:"from,omitempty"`
	To     string    `json:"to,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// EventLog keeps the most recent lifecycle events in memory. Command payloads
// are never recorded.
type EventLog struct {
	rcon.NopObserver
	ring *Ring[Event]
	now  func() time.Time
}

// NewEventLog creates a log holding up to capacity events.
func NewEventLog(capacity int) *EventLog {
	return &EventLog{ring: NewRing[Event](capacity), now: time.Now}
}

// StateChanged implements rcon.Observer.
func (l *EventLog) StateChanged(from, to rcon.State, reason error) {
	ev := Event{Time: l.now(), Type: "state", From: from.String(), To: to.String()}
	if reason != nil {
		ev.Reason = reason.Error()
	}
	l.ring.Push(ev)
}

// ReconnectFailed implements rcon.Observer.
func (l *EventLog) ReconnectFailed(err error) {
	l.ring.Push(Event{Time: l.now(), Type: "reconnect_failed", Reason: err.Error()})
}

// Recent returns up to n events, oldest first.
func (l *EventLog) Recent(n int) []Event {
	return l.ring.Tail(n)
}
