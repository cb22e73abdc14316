package model

import "github.com/oklog/ulid/v2"

// NewID returns a new ULID string used as the identifier for projects,
// quotes, change requests, tasks and outbox messages.
func NewID() string {
	return ulid.Make().String()
}
