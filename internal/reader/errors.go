package reader

import "errors"

// Sentinel errors for session lifecycle and configuration operations.
// Command handlers match on these to produce user-facing replies.
var (
	// ErrAlreadyConnected is returned when a session is created for a
	// guild that already has one.
	ErrAlreadyConnected = errors.New("reader: already connected in this guild")

	// ErrNotConnected is returned when an operation requires a live
	// session but the guild has none.
	ErrNotConnected = errors.New("reader: not connected in this guild")

	// ErrIndexOutOfRange is returned when a dictionary rule removal
	// references an index outside the current rule list.
	ErrIndexOutOfRange = errors.New("reader: dictionary index out of range")
)
