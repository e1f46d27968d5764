package lsp

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// CompletionItem is a single completion suggestion.
type CompletionItem struct {
	Label      string
	Detail     string
	Kind       protocol.CompletionItemKind
	InsertText string

	// Edit replaces a range instead of the identifier prefix when present.
	Edit *protocol.TextEdit
}

// Text returns the text to insert when the item is accepted.
func (c CompletionItem) Text() string {
	switch {
	case c.Edit != nil:
		return c.Edit.NewText
	case c.InsertText != "":
		return c.InsertText
	default:
		return c.Label
	}
}

// Symbol is a flattened document symbol. Depth is the nesting level for
// hierarchical results and 0 for flat ones.
type Symbol struct {
	Name   string
	Detail string
	Kind   protocol.SymbolKind
	Range  protocol.Range
	Depth  int
}

// WorkspaceEdit groups text edits by document.
type WorkspaceEdit struct {
	Changes map[uri.URI][]protocol.TextEdit
}

// URIs returns the edited documents in a stable order.
func (w WorkspaceEdit) URIs() []uri.URI {
	out := make([]uri.URI, 0, len(w.Changes))
	for u := range w.Changes {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EditCount returns the total number of text edits.
func (w WorkspaceEdit) EditCount() int {
	n := 0
	for _, edits := range w.Changes {
		n += len(edits)
	}
	return n
}

func parseResult(raw []byte) (gjson.Result, error) {
	if len(raw) == 0 {
		return gjson.Result{Type: gjson.Null}, nil
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, ErrInvalidResponse
	}
	return gjson.ParseBytes(raw), nil
}

func parsePosition(r gjson.Result) protocol.Position {
	return protocol.Position{
		Line:      uint32(r.Get("line").Uint()),
		Character: uint32(r.Get("character").Uint()),
	}
}

func parseRange(r gjson.Result) protocol.Range {
	return protocol.Range{
		Start: parsePosition(r.Get("start")),
		End:   parsePosition(r.Get("end")),
	}
}

func parseTextEdit(r gjson.Result) protocol.TextEdit {
	rng := r.Get("range")
	if !rng.Exists() {
		// InsertReplaceEdit
		rng = r.Get("replace")
	}
	return protocol.TextEdit{Range: parseRange(rng), NewText: r.Get("newText").String()}
}

// ParseCompletionResult decodes CompletionItem[], CompletionList or null.
func ParseCompletionResult(raw []byte) ([]CompletionItem, error) {
	res, err := parseResult(raw)
	if err != nil {
		return nil, err
	}
	items := res
	if res.IsObject() {
		items = res.Get("items")
	}
	if !items.IsArray() {
		return nil, nil
	}

	var out []CompletionItem
	for _, it := range items.Array() {
		item := CompletionItem{
			Label:      it.Get("label").String(),
			Detail:     it.Get("detail").String(),
			Kind:       protocol.CompletionItemKind(it.Get("kind").Float()),
			InsertText: it.Get("insertText").String(),
		}
		if te := it.Get("textEdit"); te.IsObject() {
			edit := parseTextEdit(te)
			item.Edit = &edit
		}
		out = append(out, item)
	}
	return out, nil
}

// ParseLocationResult decodes Location, Location[], LocationLink[] or null.
func ParseLocationResult(raw []byte) ([]protocol.Location, error) {
	res, err := parseResult(raw)
	if err != nil {
		return nil, err
	}

	var entries []gjson.Result
	switch {
	case res.IsArray():
		entries = res.Array()
	case res.IsObject():
		entries = []gjson.Result{res}
	default:
		return nil, nil
	}

	out := make([]protocol.Location, 0, len(entries))
	for _, e := range entries {
		if target := e.Get("targetUri"); target.Exists() {
			rng := e.Get("targetSelectionRange")
			if !rng.Exists() {
				rng = e.Get("targetRange")
			}
			out = append(out, protocol.Location{URI: uri.URI(target.String()), Range: parseRange(rng)})
			continue
		}
		out = append(out, protocol.Location{URI: uri.URI(e.Get("uri").String()), Range: parseRange(e.Get("range"))})
	}
	return out, nil
}

// ParseHoverResult flattens the hover contents to plain text. The contents
// may be a string, a MarkedString, MarkupContent or an array of those.
func ParseHoverResult(raw []byte) (string, error) {
	res, err := parseResult(raw)
	if err != nil {
		return "", err
	}
	if !res.IsObject() {
		return "", nil
	}
	return strings.TrimSpace(hoverText(res.Get("contents"))), nil
}

func hoverText(c gjson.Result) string {
	switch {
	case c.IsArray():
		parts := make([]string, 0, len(c.Array()))
		for _, p := range c.Array() {
			if s := hoverText(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n\n")
	case c.IsObject():
		return c.Get("value").String()
	default:
		return c.String()
	}
}

// ParseSymbolResult decodes DocumentSymbol[] (flattened depth first) or
// SymbolInformation[].
func ParseSymbolResult(raw []byte) ([]Symbol, error) {
	res, err := parseResult(raw)
	if err != nil {
		return nil, err
	}
	if !res.IsArray() {
		return nil, nil
	}

	var out []Symbol
	var walk func(nodes []gjson.Result, depth int)
	walk = func(nodes []gjson.Result, depth int) {
		for _, n := range nodes {
			sym := Symbol{
				Name:   n.Get("name").String(),
				Detail: n.Get("detail").String(),
				Kind:   protocol.SymbolKind(n.Get("kind").Float()),
				Depth:  depth,
			}
			if loc := n.Get("location"); loc.Exists() {
				sym.Range = parseRange(loc.Get("range"))
				if c := n.Get("containerName").String(); c != "" {
					sym.Detail = c
				}
			} else {
				sym.Range = parseRange(n.Get("selectionRange"))
			}
			out = append(out, sym)
			if kids := n.Get("children"); kids.IsArray() {
				walk(kids.Array(), depth+1)
			}
		}
	}
	walk(res.Array(), 0)
	return out, nil
}

// ParseWorkspaceEdit decodes both the changes map and documentChanges forms.
// Resource operations (create, rename, delete file) are ignored.
func ParseWorkspaceEdit(raw []byte) (WorkspaceEdit, error) {
	edit := WorkspaceEdit{Changes: make(map[uri.URI][]protocol.TextEdit)}
	res, err := parseResult(raw)
	if err != nil {
		return edit, err
	}
	if !res.IsObject() {
		return edit, nil
	}

	res.Get("changes").ForEach(func(key, value gjson.Result) bool {
		u := uri.URI(key.String())
		for _, e := range value.Array() {
			edit.Changes[u] = append(edit.Changes[u], parseTextEdit(e))
		}
		return true
	})
	for _, dc := range res.Get("documentChanges").Array() {
		if dc.Get("kind").Exists() {
			continue
		}
		u := uri.URI(dc.Get("textDocument.uri").String())
		for _, e := range dc.Get("edits").Array() {
			edit.Changes[u] = append(edit.Changes[u], parseTextEdit(e))
		}
	}
	return edit, nil
}

// initializeParams builds the initialize request parameters. Raw user
// initialization options are spliced in unchanged.
func initializeParams(root string, initOptions string) (string, error) {
	rootURI := string(uri.File(root))
	params := "{}"
	sets := []struct {
		path  string
		value any
	}{
		{"processId", os.Getpid()},
		{"clientInfo.name", "weft"},
		{"rootUri", rootURI},
		{"rootPath", root},
		{"workspaceFolders", []map[string]string{{"uri": rootURI, "name": filepath.Base(root)}}},
		{"capabilities.general.positionEncodings", []string{"utf-32"}},
		{"capabilities.textDocument.synchronization.dynamicRegistration", false},
		{"capabilities.textDocument.publishDiagnostics.versionSupport", true},
		{"capabilities.textDocument.hover.contentFormat", []string{"plaintext", "markdown"}},
		{"capabilities.textDocument.completion.completionItem.snippetSupport", false},
		{"capabilities.textDocument.definition.linkSupport", true},
		{"capabilities.textDocument.documentSymbol.hierarchicalDocumentSymbolSupport", true},
		{"capabilities.textDocument.rename.prepareSupport", false},
		{"capabilities.workspace.workspaceEdit.documentChanges", true},
		{"capabilities.workspace.configuration", true},
	}

	var err error
	for _, s := range sets {
		if params, err = sjson.Set(params, s.path, s.value); err != nil {
			return "", fmt.Errorf("initialize params %s: %w", s.path, err)
		}
	}
	if initOptions != "" {
		if !gjson.Valid(initOptions) {
			return "", fmt.Errorf("initialization options: %w", ErrInvalidResponse)
		}
		if params, err = sjson.SetRaw(params, "initializationOptions", initOptions); err != nil {
			return "", fmt.Errorf("initialize params initializationOptions: %w", err)
		}
	}
	return params, nil
}

// DetectLanguageID returns the protocol language identifier for a path, or
// "" if the extension is unknown.
func DetectLanguageID(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return string(protocol.GoLanguage)
	case ".c", ".h":
		return string(protocol.CLanguage)
	case ".cpp", ".cc", ".cxx", ".hpp", ".hh":
		return "cpp"
	case ".rs":
		return "rust"
	case ".py":
		return "python"
	case ".ts":
		return "typescript"
	case ".tsx":
		return "typescriptreact"
	case ".js":
		return "javascript"
	case ".jsx":
		return "javascriptreact"
	case ".java":
		return "java"
	case ".rb":
		return "ruby"
	case ".lua":
		return "lua"
	case ".zig":
		return "zig"
	case ".sh", ".bash":
		return "shellscript"
	default:
		return ""
	}
}
