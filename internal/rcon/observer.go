package rcon

import "time"

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDisconnecting:
		return "disconnecting"
	}
	return "unknown"
}

// Observer receives client events. Methods must be safe for concurrent use and
// must not block or call back into the client.
type Observer interface {
	StateChanged(from, to State, reason error)
	CommandCompleted(kind ErrorKind, elapsed time.Duration)
	KeepaliveEchoed()
	OrphanedReply(size int)
	ReconnectFailed(err error)
}

// NopObserver ignores every event. Embed it to implement a subset of Observer.
type NopObserver struct{}

func (NopObserver) StateChanged(State, State, error)          {}
func (NopObserver) CommandCompleted(ErrorKind, time.Duration) {}
func (NopObserver) KeepaliveEchoed()                          {}
func (NopObserver) OrphanedReply(int)                         {}
func (NopObserver) ReconnectFailed(error)                     {}

type multiObserver []Observer

// Observers fans events out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) StateChanged(from, to State, reason error) {
	for _, o := range m {
		o.StateChanged(from, to, reason)
	}
}

func (m multiObserver) CommandCompleted(kind ErrorKind, elapsed time.Duration) {
	for _, o := range m {
		o.CommandCompleted(kind, elapsed)
	}
}

func (m multiObserver) KeepaliveEchoed() {
	for _, o := range m {
		o.KeepaliveEchoed()
	}
}

func (m multiObserver) OrphanedReply(size int) {
	for _, o := range m {
		o.OrphanedReply(size)
	}
}

func (m multiObserver) ReconnectFailed(err error) {
	for _, o := range m {
		o.ReconnectFailed(err)
	}
}
