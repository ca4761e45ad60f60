// Package server defines the hub's event types and utility helpers shared by
// the hub and client logic.
package server

import "strings"

// eventKind enumerates everything the hub reacts to.
type eventKind int

const (
	eventConnect eventKind = iota
	eventJoin
	eventMessage
	eventDisconnect
	eventQuery
)

func (k eventKind) String() string {
	switch k {
	case eventConnect:
		return "connect"
	case eventJoin:
		return "join"
	case eventMessage:
		return "message"
	case eventDisconnect:
		return "disconnect"
	case eventQuery:
		return "query"
	default:
		return "unknown"
	}
}

// hubEvent is one unit of work for the hub loop. payload is the raw display
// name for joins and the raw content for messages; query is set only for
// eventQuery and runs on the hub goroutine.
type hubEvent struct {
	kind    eventKind
	client  *Client
	payload string
	query   func()
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	// Online is the number of joined connections.
	Online int `json:"online"`
	// Connections counts every live connection, joined or not.
	Connections int `json:"connections"`
	// History is the number of messages available for replay.
	History int `json:"history"`
	// Accepted counts chat and system messages appended since start.
	Accepted uint64 `json:"accepted"`
	// Dropped counts inbound events rejected by validation or state checks.
	Dropped uint64 `json:"dropped"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
