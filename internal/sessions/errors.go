package sessions

import "errors"

var (
	ErrNotFound    = errors.New("session not found")
	ErrExists      = errors.New("session already exists")
	ErrInvalidName = errors.New("invalid session name")
	ErrNoSession   = errors.New("no active session")
)
