package lsp

import (
	"fmt"

	"go.lsp.dev/protocol"
)

// State is the lifecycle state of a Connection.
type State int

const (
	StateNotStarted State = iota
	StateStarting
	StateReady
	StateShuttingDown
	StateDead
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting down"
	case StateDead:
		return "dead"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Readable reports whether the reactor should poll the server's output.
func (s State) Readable() bool {
	return s == StateStarting || s == StateReady
}

// RequestKind identifies how a response must be decoded and applied.
type RequestKind int

const (
	KindInitialize RequestKind = iota
	KindCompletion
	KindDefinition
	KindReferences
	KindRename
	KindHover
	KindDocumentSymbol
	KindShutdown
)

// String returns the kind name used in status messages.
func (k RequestKind) String() string {
	switch k {
	case KindInitialize:
		return "initialize"
	case KindCompletion:
		return "completion"
	case KindDefinition:
		return "definition"
	case KindReferences:
		return "references"
	case KindRename:
		return "rename"
	case KindHover:
		return "hover"
	case KindDocumentSymbol:
		return "documentSymbol"
	case KindShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Method returns the protocol method a request of this kind calls.
func (k RequestKind) Method() string {
	switch k {
	case KindInitialize:
		return protocol.MethodInitialize
	case KindCompletion:
		return protocol.MethodTextDocumentCompletion
	case KindDefinition:
		return protocol.MethodTextDocumentDefinition
	case KindReferences:
		return protocol.MethodTextDocumentReferences
	case KindRename:
		return protocol.MethodTextDocumentRename
	case KindHover:
		return protocol.MethodTextDocumentHover
	case KindDocumentSymbol:
		return protocol.MethodTextDocumentDocumentSymbol
	case KindShutdown:
		return protocol.MethodShutdown
	default:
		return ""
	}
}

// pendingRequest is an outstanding request awaiting its response.
type pendingRequest struct {
	kind    RequestKind
	doc     *Document
	version int32
}

// TextSource is the buffer behind a document.
type TextSource interface {
	Text() string
	Line(row int) string
}

// Handler receives decoded server results. Every response kind has its
// own method so dispatch stays exhaustive.
type Handler interface {
	Diagnostics(doc *Document)
	Completion(doc *Document, items []CompletionItem)
	Definition(doc *Document, locations []protocol.Location)
	References(doc *Document, locations []protocol.Location)
	Rename(doc *Document, edit WorkspaceEdit)
	Hover(doc *Document, text string)
	DocumentSymbols(doc *Document, symbols []Symbol)
	RequestFailed(doc *Document, kind RequestKind, err error)
	StateChanged(conn *Connection, prev, next State)
}
