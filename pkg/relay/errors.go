package relay

import "errors"

// Common errors returned by the relay core.
var (
	// ErrNoConnection is returned when an event is handled while no
	// frontend connection is active.
	ErrNoConnection = errors.New("relay: no active connection with frontend")

	// ErrTransport wraps failures writing to the frontend transport.
	// Transport failures are fatal to the connection; all other failure
	// classes are recovered locally.
	ErrTransport = errors.New("relay: transport failure")
)
