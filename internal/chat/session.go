package chat

import "time"

// State is the lifecycle stage of a connection.
type State int

const (
	// StateConnected is a live transport that has not sent a valid join yet.
	StateConnected State = iota
	// StateActive is a connection that joined with a display name.
	StateActive
	// StateClosed is a connection whose transport has gone away. Terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the server-side record of one connection.
type Session struct {
	ConnectionID string
	DisplayName  string
	JoinedAt     time.Time
	State        State
}

// Active reports whether the session has joined and is still connected.
func (s Session) Active() bool {
	return s.State == StateActive
}
