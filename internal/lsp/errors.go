package lsp

import (
	"errors"
	"fmt"
)

// Standard errors returned by the LSP layer.
var (
	// ErrNoServer indicates no server is configured for the language.
	ErrNoServer = errors.New("no server configured for language")

	// ErrNotReady indicates the connection has not finished initializing,
	// or has died. Requests are skipped rather than queued.
	ErrNotReady = errors.New("language server not ready")

	// ErrServerDead indicates the server process exited or never answered
	// initialize within the retry budget.
	ErrServerDead = errors.New("language server dead")

	// ErrStartupTimeout indicates initialize went unanswered.
	ErrStartupTimeout = errors.New("language server startup timed out")

	// ErrServerExited indicates the server closed its output.
	ErrServerExited = errors.New("language server exited")

	// ErrDocumentNotOpen indicates the document is not bound to a connection.
	ErrDocumentNotOpen = errors.New("document not open")

	// ErrInvalidResponse indicates a result could not be decoded.
	ErrInvalidResponse = errors.New("invalid response from server")

	// ErrStaleResponse indicates the document was edited after the
	// request was sent, so the result's ranges no longer apply.
	ErrStaleResponse = errors.New("document changed since the request")

	// ErrMalformedHeader indicates a frame header without a usable
	// Content-Length. The decoder drops the header and resynchronizes.
	ErrMalformedHeader = errors.New("malformed message header")
)

// ServerError represents an error related to a server's lifecycle.
type ServerError struct {
	LanguageID string
	Err        error
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server %s: %v", e.LanguageID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServerError) Unwrap() error {
	return e.Err
}

// RequestError is a failed request, either rejected by the server or
// undecodable on our side.
type RequestError struct {
	Kind RequestKind
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request: %v", e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
