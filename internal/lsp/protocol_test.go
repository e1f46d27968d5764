package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

func TestParseCompletionResult(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		labels []string
		texts  []string
	}{
		{"null", `null`, nil, nil},
		{"empty", ``, nil, nil},
		{"array", `[{"label":"Println","insertText":"Println()"},{"label":"Printf"}]`,
			[]string{"Println", "Printf"}, []string{"Println()", "Printf"}},
		{"list", `{"isIncomplete":false,"items":[{"label":"Sprintf","kind":3}]}`,
			[]string{"Sprintf"}, []string{"Sprintf"}},
		{"text edit", `[{"label":"fmt","textEdit":{"range":{"start":{"line":0,"character":0},"end":{"line":0,"character":2}},"newText":"fmt."}}]`,
			[]string{"fmt"}, []string{"fmt."}},
		{"insert replace edit", `[{"label":"x","textEdit":{"insert":{"start":{"line":0,"character":0},"end":{"line":0,"character":1}},"replace":{"start":{"line":0,"character":0},"end":{"line":0,"character":3}},"newText":"xyz"}}]`,
			[]string{"x"}, []string{"xyz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseCompletionResult([]byte(tt.raw))
			require.NoError(t, err)
			var labels, texts []string
			for _, it := range items {
				labels = append(labels, it.Label)
				texts = append(texts, it.Text())
			}
			assert.Equal(t, tt.labels, labels)
			assert.Equal(t, tt.texts, texts)
		})
	}
}

func TestParseCompletionResultKindAndRange(t *testing.T) {
	items, err := ParseCompletionResult([]byte(`[{"label":"x","kind":3,"textEdit":{"insert":{"start":{"line":0,"character":0},"end":{"line":0,"character":1}},"replace":{"start":{"line":1,"character":2},"end":{"line":1,"character":5}},"newText":"xyz"}}]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, protocol.CompletionItemKindFunction, items[0].Kind)
	require.NotNil(t, items[0].Edit)
	assert.Equal(t, protocol.Position{Line: 1, Character: 2}, items[0].Edit.Range.Start)
	assert.Equal(t, protocol.Position{Line: 1, Character: 5}, items[0].Edit.Range.End)
}

func TestParseCompletionResultInvalid(t *testing.T) {
	_, err := ParseCompletionResult([]byte(`{"items":[`))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestParseLocationResult(t *testing.T) {
	const loc = `{"uri":"file:///tmp/a.go","range":{"start":{"line":4,"character":1},"end":{"line":4,"character":6}}}`
	want := protocol.Location{
		URI: uri.URI("file:///tmp/a.go"),
		Range: protocol.Range{
			Start: protocol.Position{Line: 4, Character: 1},
			End:   protocol.Position{Line: 4, Character: 6},
		},
	}

	tests := []struct {
		name string
		raw  string
		want []protocol.Location
	}{
		{"null", `null`, nil},
		{"single", loc, []protocol.Location{want}},
		{"array", `[` + loc + `,` + loc + `]`, []protocol.Location{want, want}},
		{"empty array", `[]`, []protocol.Location{}},
		{"link", `[{"targetUri":"file:///tmp/a.go","targetRange":{"start":{"line":0,"character":0},"end":{"line":9,"character":0}},"targetSelectionRange":{"start":{"line":4,"character":1},"end":{"line":4,"character":6}}}]`,
			[]protocol.Location{want}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocationResult([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHoverResult(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"null", `null`, ""},
		{"string", `{"contents":"func Println(a ...any)"}`, "func Println(a ...any)"},
		{"marked string", `{"contents":{"language":"go","value":"var x int"}}`, "var x int"},
		{"markup", `{"contents":{"kind":"markdown","value":"  **doc**\n"}}`, "**doc**"},
		{"array", `{"contents":["one",{"language":"go","value":"two"},""]}`, "one\n\ntwo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHoverResult([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSymbolResultHierarchical(t *testing.T) {
	raw := `[{"name":"Server","kind":23,"range":{"start":{"line":2,"character":0},"end":{"line":9,"character":1}},"selectionRange":{"start":{"line":2,"character":5},"end":{"line":2,"character":11}},
		"children":[{"name":"addr","detail":"string","kind":8,"range":{"start":{"line":3,"character":1},"end":{"line":3,"character":12}},"selectionRange":{"start":{"line":3,"character":1},"end":{"line":3,"character":5}}}]},
		{"name":"main","kind":12,"range":{"start":{"line":11,"character":0},"end":{"line":13,"character":1}},"selectionRange":{"start":{"line":11,"character":5},"end":{"line":11,"character":9}}}]`

	syms, err := ParseSymbolResult([]byte(raw))
	require.NoError(t, err)
	require.Len(t, syms, 3)

	assert.Equal(t, "Server", syms[0].Name)
	assert.Equal(t, 0, syms[0].Depth)
	assert.Equal(t, protocol.SymbolKindStruct, syms[0].Kind)
	assert.Equal(t, uint32(2), syms[0].Range.Start.Line)
	assert.Equal(t, uint32(5), syms[0].Range.Start.Character)

	assert.Equal(t, "addr", syms[1].Name)
	assert.Equal(t, "string", syms[1].Detail)
	assert.Equal(t, 1, syms[1].Depth)

	assert.Equal(t, "main", syms[2].Name)
	assert.Equal(t, 0, syms[2].Depth)
}

func TestParseSymbolResultFlat(t *testing.T) {
	raw := `[{"name":"Run","kind":6,"containerName":"Server","location":{"uri":"file:///tmp/a.go","range":{"start":{"line":7,"character":0},"end":{"line":7,"character":3}}}}]`

	syms, err := ParseSymbolResult([]byte(raw))
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "Run", syms[0].Name)
	assert.Equal(t, "Server", syms[0].Detail)
	assert.Equal(t, protocol.SymbolKindMethod, syms[0].Kind)
	assert.Equal(t, uint32(7), syms[0].Range.Start.Line)
}

func TestParseWorkspaceEdit(t *testing.T) {
	raw := `{
		"changes":{"file:///tmp/a.go":[{"range":{"start":{"line":1,"character":0},"end":{"line":1,"character":3}},"newText":"bar"}]},
		"documentChanges":[
			{"textDocument":{"uri":"file:///tmp/b.go","version":4},"edits":[
				{"range":{"start":{"line":0,"character":0},"end":{"line":0,"character":3}},"newText":"bar"},
				{"range":{"start":{"line":5,"character":2},"end":{"line":5,"character":5}},"newText":"bar"}]},
			{"kind":"rename","oldUri":"file:///tmp/c.go","newUri":"file:///tmp/d.go"}
		]}`

	edit, err := ParseWorkspaceEdit([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []uri.URI{"file:///tmp/a.go", "file:///tmp/b.go"}, edit.URIs())
	assert.Equal(t, 3, edit.EditCount())
	assert.Equal(t, "bar", edit.Changes["file:///tmp/b.go"][1].NewText)
	assert.Equal(t, uint32(5), edit.Changes["file:///tmp/b.go"][1].Range.Start.Line)
}

func TestInitializeParams(t *testing.T) {
	params, err := initializeParams("/work/project", `{"usePlaceholders":false,"analyses":{"unusedparams":true}}`)
	require.NoError(t, err)
	require.True(t, gjson.Valid(params))

	res := gjson.Parse(params)
	assert.Equal(t, "file:///work/project", res.Get("rootUri").String())
	assert.Equal(t, "project", res.Get("workspaceFolders.0.name").String())
	assert.Equal(t, "utf-32", res.Get("capabilities.general.positionEncodings.0").String())
	assert.True(t, res.Get("capabilities.textDocument.publishDiagnostics.versionSupport").Bool())
	assert.True(t, res.Get("initializationOptions.analyses.unusedparams").Bool())
	assert.False(t, res.Get("initializationOptions.usePlaceholders").Bool())
}

func TestInitializeParamsRejectsBadOptions(t *testing.T) {
	_, err := initializeParams("/work", `{"broken":`)
	assert.Error(t, err)
}

func TestDetectLanguageID(t *testing.T) {
	tests := map[string]string{
		"main.go":     "go",
		"x/Y.RS":      "rust",
		"a.tsx":       "typescriptreact",
		"lib.h":       "c",
		"lib.hpp":     "cpp",
		"README":      "",
		"notes.txt":   "",
		"script.bash": "shellscript",
	}
	for path, want := range tests {
		assert.Equal(t, want, DetectLanguageID(path), path)
	}
}
