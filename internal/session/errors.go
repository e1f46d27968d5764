package session

import "errors"

// Errors returned by structural operations. Each is also reported as the
// manager's status message.
var (
	// ErrUnsavedChanges refuses to close an editor with modifications.
	ErrUnsavedChanges = errors.New("unsaved changes")

	// ErrNoWorkspace indicates the manager holds no workspaces.
	ErrNoWorkspace = errors.New("no workspace")

	// ErrLastWindow refuses to move the only window out of a workspace.
	ErrLastWindow = errors.New("cannot move the only window of a workspace")

	// ErrInvalidWorkspace indicates a workspace index out of range.
	ErrInvalidWorkspace = errors.New("invalid workspace")
)
