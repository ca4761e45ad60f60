// Package chat holds the state of a broadcast chat room: the session registry,
// the bounded message history, the message model and the JSON envelope spoken
// on the wire.
//
// None of the types in this package are safe for concurrent use. They are
// owned by a single goroutine (the server hub), which is what gives every
// participant the same ordering of joins, messages and leaves.
package chat
