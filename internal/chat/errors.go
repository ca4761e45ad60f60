package chat

import "errors"

var (
	// ErrValidation reports an empty or oversized display name or message body.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated reports a chat message from a connection that has not joined.
	ErrUnauthenticated = errors.New("connection has not joined")

	// ErrNotRegistered reports an operation on a connection id the registry does not know.
	ErrNotRegistered = errors.New("connection not registered")

	// ErrAlreadyRegistered reports a second registration of a live connection id.
	ErrAlreadyRegistered = errors.New("connection already registered")

	// ErrAlreadyJoined reports a join on a connection that is already active.
	ErrAlreadyJoined = errors.New("connection already joined")

	// ErrUnknownEvent reports an inbound envelope with an event name we do not handle.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrMalformedEvent reports an inbound frame that is not a valid envelope.
	ErrMalformedEvent = errors.New("malformed event")
)
