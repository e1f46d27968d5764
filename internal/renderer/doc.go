// Package renderer draws the active workspace of a session tree onto a
// backend.
//
// Every frame is drawn from scratch: each window gets its border (when
// the workspace shows more than one window) and its pane content, then
// the overlays of the active editor, then the status line on the last
// row. The renderer keeps no copy of the tree; it reads the manager on
// the reactor goroutine and is not safe for concurrent use.
//
// Usage:
//
//	b, _ := backend.NewTerminal()
//	r := renderer.New(b, renderer.WithTheme(theme))
//	r.Draw(manager)
package renderer
