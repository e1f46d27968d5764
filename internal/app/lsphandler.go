package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/dshills/weft/internal/buffer"
	"github.com/dshills/weft/internal/lsp"
	"github.com/dshills/weft/internal/session"
)

// languageHandler applies server results to the session tree. Results
// for documents no editor shows any more are dropped.
type languageHandler struct {
	app *Application
}

var _ lsp.Handler = (*languageHandler)(nil)

// target returns the active editor when it shows doc, else any editor
// showing doc.
func (h *languageHandler) target(doc *lsp.Document) *session.EditorPane {
	if p := h.app.activeEditor(); p != nil && p.Doc == doc {
		return p
	}
	if panes := h.app.session.EditorsFor(doc); len(panes) > 0 {
		return panes[0]
	}
	return nil
}

func (h *languageHandler) Diagnostics(doc *lsp.Document) {
	errs, warns := doc.Counts()
	h.app.log.Debug("diagnostics",
		zap.String("path", doc.Path),
		zap.Int("errors", errs),
		zap.Int("warnings", warns))
	h.app.session.MarkDirty()
}

func (h *languageHandler) Completion(doc *lsp.Document, items []lsp.CompletionItem) {
	p := h.target(doc)
	if p == nil {
		return
	}
	if len(items) == 0 {
		h.app.session.SetStatus("no completions")
		return
	}
	row, _ := p.Buffer.Cursor()
	_, start := p.Buffer.WordPrefix()
	popup := &session.Popup{
		Kind:   session.PopupCompletion,
		Title:  "Completions",
		Anchor: buffer.Point{Row: row, Col: start},
	}
	for i := range items {
		popup.Items = append(popup.Items, session.PopupItem{
			Label:      items[i].Label,
			Detail:     items[i].Detail,
			Completion: &items[i],
		})
	}
	p.Hover = ""
	p.Popup = popup
}

func (h *languageHandler) Definition(doc *lsp.Document, locations []protocol.Location) {
	p := h.target(doc)
	if p == nil {
		return
	}
	switch len(locations) {
	case 0:
		h.app.session.SetStatus("no definition found")
	case 1:
		item := h.locationItem(locations[0])
		h.app.jump(item.Path, item.Row, item.Col)
	default:
		h.showLocations(p, "Definitions", locations)
	}
}

func (h *languageHandler) References(doc *lsp.Document, locations []protocol.Location) {
	p := h.target(doc)
	if p == nil {
		return
	}
	if len(locations) == 0 {
		h.app.session.SetStatus("no references found")
		return
	}
	h.showLocations(p, fmt.Sprintf("References (%d)", len(locations)), locations)
}

func (h *languageHandler) showLocations(p *session.EditorPane, title string, locations []protocol.Location) {
	row, col := p.Buffer.Cursor()
	popup := &session.Popup{
		Kind:   session.PopupLocations,
		Title:  title,
		Anchor: buffer.Point{Row: row, Col: col},
	}
	for _, loc := range locations {
		popup.Items = append(popup.Items, h.locationItem(loc))
	}
	p.Hover = ""
	p.Popup = popup
}

// locationItem converts a protocol location to a popup row labelled with
// the path relative to the root and the 1-based position.
func (h *languageHandler) locationItem(loc protocol.Location) session.PopupItem {
	path := lsp.PathOf(loc.URI)
	line := h.lineOf(path, int(loc.Range.Start.Line))
	row, col := lsp.FromProtocol(line, loc.Range.Start)

	label := path
	if rel, err := filepath.Rel(h.app.opts.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
		label = rel
	}
	return session.PopupItem{
		Label:  fmt.Sprintf("%s:%d:%d", label, row+1, col+1),
		Detail: strings.TrimSpace(line),
		Path:   path,
		Row:    row,
		Col:    col,
	}
}

// lineOf returns line row of path, from an open editor when there is one.
func (h *languageHandler) lineOf(path string, row int) string {
	var line string
	found := false
	h.app.eachEditor(func(_ *session.Window, p *session.EditorPane) {
		if !found && p.Buffer.Path() == path {
			line, found = p.Buffer.Line(row), true
		}
	})
	if found {
		return line
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	if row < 0 || row >= len(lines) {
		return ""
	}
	return strings.TrimSuffix(lines[row], "\r")
}

func (h *languageHandler) Hover(doc *lsp.Document, text string) {
	p := h.target(doc)
	if p == nil {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		h.app.session.SetStatus("no hover information")
		return
	}
	p.Popup = nil
	p.Hover = text
}

func (h *languageHandler) DocumentSymbols(doc *lsp.Document, symbols []lsp.Symbol) {
	p := h.target(doc)
	if p == nil {
		return
	}
	if len(symbols) == 0 {
		h.app.session.SetStatus("no symbols")
		return
	}
	row, col := p.Buffer.Cursor()
	popup := &session.Popup{
		Kind:   session.PopupLocations,
		Title:  fmt.Sprintf("Symbols (%d)", len(symbols)),
		Anchor: buffer.Point{Row: row, Col: col},
	}
	for _, sym := range symbols {
		srow, scol := lsp.FromProtocol(p.Buffer.Line(int(sym.Range.Start.Line)), sym.Range.Start)
		popup.Items = append(popup.Items, session.PopupItem{
			Label:  strings.Repeat("  ", sym.Depth) + sym.Name,
			Detail: sym.Detail,
			Path:   p.Buffer.Path(),
			Row:    srow,
			Col:    scol,
		})
	}
	p.Hover = ""
	p.Popup = popup
}

// Rename applies the edit to every file open in an editor. Files no
// editor shows are left alone and counted as skipped.
func (h *languageHandler) Rename(doc *lsp.Document, edit lsp.WorkspaceEdit) {
	if edit.EditCount() == 0 {
		h.app.session.SetStatus("rename: nothing to change")
		return
	}
	var applied, files, skipped int
	for _, u := range edit.URIs() {
		path := lsp.PathOf(u)
		p := h.editorFor(path)
		if p == nil {
			skipped++
			h.app.log.Info("rename skipped unopened file", zap.String("path", path))
			continue
		}
		edits := make([]buffer.Edit, 0, len(edit.Changes[u]))
		for _, te := range edit.Changes[u] {
			sr, sc, er, ec := lsp.RangeToBytes(p.Buffer, te.Range)
			edits = append(edits, buffer.NewReplace(
				buffer.Point{Row: sr, Col: sc},
				buffer.Point{Row: er, Col: ec},
				te.NewText))
		}
		if err := p.Buffer.ApplyEdits(edits); err != nil {
			h.app.report(NewOperationError("rename", p.Buffer.Name(), err))
			return
		}
		h.app.lsp.Change(p.Doc)
		applied += len(edits)
		files++
	}
	msg := fmt.Sprintf("renamed: %d edits in %d files", applied, files)
	if skipped > 0 {
		msg += fmt.Sprintf(", %d skipped", skipped)
	}
	h.app.session.SetStatus("%s", msg)
	h.app.log.Info("rename applied",
		zap.String("path", doc.Path),
		zap.Int("edits", applied),
		zap.Int("files", files),
		zap.Int("skipped", skipped))
}

// editorFor returns an editor showing path in any workspace.
func (h *languageHandler) editorFor(path string) *session.EditorPane {
	var found *session.EditorPane
	h.app.eachEditor(func(_ *session.Window, p *session.EditorPane) {
		if found == nil && p.Buffer.Path() == path {
			found = p
		}
	})
	return found
}

func (h *languageHandler) RequestFailed(doc *lsp.Document, kind lsp.RequestKind, err error) {
	h.app.log.Warn("request failed",
		zap.String("kind", kind.String()),
		zap.String("path", doc.Path),
		zap.Error(err))
	h.app.session.SetStatus("%s failed: %v", kind, err)
}

func (h *languageHandler) StateChanged(conn *lsp.Connection, prev, next lsp.State) {
	h.app.log.Info("server state",
		zap.String("server", conn.Name()),
		zap.Stringer("from", prev),
		zap.Stringer("to", next))
	switch next {
	case lsp.StateReady:
		h.app.session.SetStatus("%s ready", conn.Name())
	case lsp.StateDead:
		if err := conn.Err(); err != nil {
			h.app.session.SetStatus("%s stopped: %v", conn.Name(), err)
		} else {
			h.app.session.SetStatus("%s stopped", conn.Name())
		}
	}
	h.app.session.MarkDirty()
}
