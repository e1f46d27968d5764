package lsp

import (
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Document is the synchronization state of one open editor buffer.
type Document struct {
	URI        uri.URI
	Path       string
	LanguageID string

	// Version increases with every local edit.
	Version int32

	// Diagnostics is replaced wholesale by each accepted server push.
	Diagnostics []protocol.Diagnostic

	// NeedsUpdate is set while the server has not seen the latest text.
	NeedsUpdate bool

	source TextSource
	conn   *Connection
	opened bool
}

func newDocument(path, languageID string, src TextSource) *Document {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return &Document{
		URI:        uri.File(abs),
		Path:       abs,
		LanguageID: languageID,
		Version:    1,
		source:     src,
	}
}

// Connection returns the connection the document is bound to, or nil
// once closed.
func (d *Document) Connection() *Connection {
	return d.conn
}

// Source returns the text source backing the document.
func (d *Document) Source() TextSource {
	return d.source
}

// Ready reports whether feature requests can be sent for the document.
func (d *Document) Ready() bool {
	return d.conn != nil && d.conn.state == StateReady
}

// DiagnosticsOnLine returns the diagnostics whose range starts on row.
func (d *Document) DiagnosticsOnLine(row int) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for _, diag := range d.Diagnostics {
		if int(diag.Range.Start.Line) == row {
			out = append(out, diag)
		}
	}
	return out
}

// Counts returns the number of error and warning diagnostics.
func (d *Document) Counts() (errors, warnings int) {
	for _, diag := range d.Diagnostics {
		switch diag.Severity {
		case protocol.DiagnosticSeverityError:
			errors++
		case protocol.DiagnosticSeverityWarning:
			warnings++
		}
	}
	return errors, warnings
}

func (d *Document) matches(u uri.URI) bool {
	if u == d.URI {
		return true
	}
	if p, ok := uriPath(u); ok {
		return p == d.Path
	}
	return false
}

// uriPath returns the file path of a file URI.
func uriPath(u uri.URI) (string, bool) {
	if !strings.HasPrefix(string(u), uri.FileScheme+"://") {
		return "", false
	}
	return filepath.Clean(u.Filename()), true
}

// PathOf returns the file path for a file URI, or "" for other schemes.
func PathOf(u uri.URI) string {
	p, _ := uriPath(u)
	return p
}
