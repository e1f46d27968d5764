// Package session holds the editor's window tree: a Manager owning ordered
// workspaces, each owning ordered windows, each window owning exactly one
// pane (editor, terminal or explorer).
//
// Every structural operation recomputes the geometry of all workspaces
// with package layout, resizes terminal sessions to their new content
// area and requests a full redraw. Closing a window releases its pane
// synchronously: terminal children are killed and reaped, language server
// documents are closed.
//
// The tree is not safe for concurrent use. It is mutated only by the
// reactor goroutine in package app.
package session
