package repository

import "errors"

// Sentinel errors shared by the repositories.  Handlers map these onto HTTP
// status codes; anything else is treated as an internal failure.
var (
	ErrEmailExists = errors.New("email already exists")
	ErrNotFound    = errors.New("not found")
	ErrNoFields    = errors.New("no updatable fields")
)
