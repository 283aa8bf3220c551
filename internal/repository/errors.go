package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Callers translate it
// into the protocol error appropriate for their context; raw store errors
// are never surfaced to clients.
var ErrNotFound = errors.New("not found")
