// Package server implements the relay's HTTP and WebSocket surface around a
// single Hub.
//
// The hub goroutine owns the session registry, the message history and the
// client table; clients only submit events to it and drain their own send
// queue. The implementation is organized into specialized files for hub
// management, clients, origin checks, routing, and HTTP handlers.
package server
