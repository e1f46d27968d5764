// Package lsp is a single-threaded Language Server Protocol client.
//
// Servers are child processes wired to raw pipes. Nothing here blocks or
// starts goroutines: the reactor polls each Connection's output descriptor
// and calls Service when it is readable, and calls Manager.Tick during
// housekeeping to reap exited servers, forward their stderr to the log
// and enforce the startup retry budget.
//
// # Lifecycle
//
// A Connection moves NotStarted → Starting → Ready → ShuttingDown → Dead.
// Starting begins with the initialize request; the matching response makes
// it Ready, after which initialized and a didOpen for every bound document
// are sent. A closed output stream or a reaped child moves it to Dead and
// drops every pending request. Dead connections stay dead until
// Manager.Restart.
//
// # Documents
//
// Manager.Open binds a Document to the shared server for its language.
// Each local edit goes through Manager.Change, which bumps the version and
// sends the full text. publishDiagnostics replaces a document's diagnostics
// wholesale unless it names an older version.
//
// # Requests
//
// Feature calls (Hover, Completion, Definition, References, Rename,
// DocumentSymbols) return immediately with the request id, or ErrNotReady
// when the server cannot take requests. Results arrive later through the
// Handler, decoded into typed values. Columns are bytes on the editor side
// and code points on the wire; see ToProtocol and FromProtocol.
package lsp
