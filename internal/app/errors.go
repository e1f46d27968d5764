package app

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAlreadyRunning = errors.New("application already running")
	ErrNoBackend      = errors.New("no display backend")

	// ErrNoEditor is reported for editor keys pressed over another pane.
	ErrNoEditor = errors.New("no active editor")

	// ErrNoLanguageServer is reported for language keys in a buffer no
	// server handles.
	ErrNoLanguageServer = errors.New("no language server for this file")

	// ErrInputEnded is returned by Run when the keyboard source closes.
	ErrInputEnded = errors.New("input closed")
)

// OperationError is a failed editor action as shown on the status line:
// "save main.go (autosave): permission denied".
type OperationError struct {
	Op     string
	Target string // file or buffer name, may be empty
	Detail string // how the action was triggered, may be empty
	Err    error
}

func NewOperationError(op, target string, err error) *OperationError {
	return &OperationError{Op: op, Target: target, Err: err}
}

// Because records what triggered the action.
func (e *OperationError) Because(detail string) *OperationError {
	e.Detail = detail
	return e
}

func (e *OperationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Target != "" {
		b.WriteString(" " + e.Target)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *OperationError) Unwrap() error { return e.Err }

// ComponentError is a startup or teardown failure of one part of the
// application. Shutdown collects one per failing component.
type ComponentError struct {
	Component string // "session", "lsp", "filewatch", "metrics", "backend"
	Action    string
	Err       error
}

func NewComponentError(component, action string, err error) *ComponentError {
	return &ComponentError{Component: component, Action: action, Err: err}
}

func (e *ComponentError) Error() string {
	parts := []string{e.Component}
	if e.Action != "" {
		parts = append(parts, e.Action)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ComponentError) Unwrap() error { return e.Err }
