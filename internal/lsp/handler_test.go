package lsp

import (
	"strings"

	"go.lsp.dev/protocol"
)

// recorder is a Handler that keeps everything it is given.
type recorder struct {
	events      []string
	diagnostics map[*Document]int
	completions [][]CompletionItem
	locations   [][]protocol.Location
	hovers      []string
	symbols     [][]Symbol
	renames     []WorkspaceEdit
	failures    []error
	states      []State
}

func newRecorder() *recorder {
	return &recorder{diagnostics: make(map[*Document]int)}
}

func (r *recorder) Diagnostics(doc *Document) {
	r.events = append(r.events, "diagnostics")
	r.diagnostics[doc]++
}

func (r *recorder) Completion(_ *Document, items []CompletionItem) {
	r.events = append(r.events, "completion")
	r.completions = append(r.completions, items)
}

func (r *recorder) Definition(_ *Document, locs []protocol.Location) {
	r.events = append(r.events, "definition")
	r.locations = append(r.locations, locs)
}

func (r *recorder) References(_ *Document, locs []protocol.Location) {
	r.events = append(r.events, "references")
	r.locations = append(r.locations, locs)
}

func (r *recorder) Rename(_ *Document, edit WorkspaceEdit) {
	r.events = append(r.events, "rename")
	r.renames = append(r.renames, edit)
}

func (r *recorder) Hover(_ *Document, text string) {
	r.events = append(r.events, "hover")
	r.hovers = append(r.hovers, text)
}

func (r *recorder) DocumentSymbols(_ *Document, syms []Symbol) {
	r.events = append(r.events, "symbols")
	r.symbols = append(r.symbols, syms)
}

func (r *recorder) RequestFailed(_ *Document, kind RequestKind, err error) {
	r.events = append(r.events, "failed:"+kind.String())
	r.failures = append(r.failures, err)
}

func (r *recorder) StateChanged(_ *Connection, _, next State) {
	r.states = append(r.states, next)
}

// stringSource is a TextSource over a fixed string.
type stringSource string

func (s stringSource) Text() string { return string(s) }

func (s stringSource) Line(row int) string {
	lines := strings.Split(string(s), "\n")
	if row < 0 || row >= len(lines) {
		return ""
	}
	return lines[row]
}
