package chat

import "errors"

var (
	// ErrNotFound indicates the referenced room or peer does not exist.
	ErrNotFound = errors.New("room or peer not found")
	// ErrNetwork indicates a REST call failed at the transport level or
	// returned a non-2xx status.
	ErrNetwork = errors.New("network failure")
	// ErrTransport indicates the socket connect or handshake failed.
	ErrTransport = errors.New("socket transport failure")
	// ErrMalformedFrame indicates an inbound socket payload could not be
	// parsed. Handled internally, never surfaced to callers.
	ErrMalformedFrame = errors.New("malformed inbound frame")
	// ErrNoActiveRoom indicates an operation that requires an active room
	// was invoked without one.
	ErrNoActiveRoom = errors.New("no active room")
)
