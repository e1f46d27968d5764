package terminal

import "errors"

// Sentinel errors for the terminal package.
var (
	// ErrSessionClosed is returned when writing to a session whose child
	// has exited or which has been closed.
	ErrSessionClosed = errors.New("terminal session is closed")

	// ErrNoCommand is returned by Spawn for an empty argv.
	ErrNoCommand = errors.New("no command to run")
)
