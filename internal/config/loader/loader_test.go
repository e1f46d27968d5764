package loader

import (
	"errors"
	"io/fs"
	"reflect"
	"testing"
	"time"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	return nil, fs.ErrNotExist
}

func TestTOMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/config.toml", `
shell = "/bin/zsh"
tick = "20ms"

[lsp]
max_retries = 3

[lsp.servers.go]
command = "gopls"
args = ["serve"]
`)

	config, err := ForFile(memfs, "/config.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config["shell"] != "/bin/zsh" {
		t.Errorf("shell = %v, want /bin/zsh", config["shell"])
	}
	lsp, ok := config["lsp"].(map[string]any)
	if !ok {
		t.Fatal("expected lsp to be a map")
	}
	if lsp["max_retries"] != int64(3) {
		t.Errorf("max_retries = %v (%T), want 3", lsp["max_retries"], lsp["max_retries"])
	}
	servers := lsp["servers"].(map[string]any)
	goServer := servers["go"].(map[string]any)
	if !reflect.DeepEqual(goServer["args"], []any{"serve"}) {
		t.Errorf("args = %#v", goServer["args"])
	}
}

func TestTOMLLoader_Missing(t *testing.T) {
	config, err := NewTOMLLoaderWithFS(NewMemFS(), "/nope.toml").Load()
	if err != nil || config != nil {
		t.Errorf("Load() = %v, %v; want nil, nil", config, err)
	}
}

func TestTOMLLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "shell = \"/bin/sh\"\nlayout = \n")

	_, err := NewTOMLLoaderWithFS(memfs, "/bad.toml").Load()
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Path != "/bad.toml" {
		t.Errorf("Path = %q", perr.Path)
	}
	if perr.Line != 2 {
		t.Errorf("Line = %d, want 2", perr.Line)
	}
}

func TestYAMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/weft.yaml", `
layout: grid
theme:
  border: "#444444"
`)

	config, err := ForFile(memfs, "/weft.yaml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config["layout"] != "grid" {
		t.Errorf("layout = %v", config["layout"])
	}
	theme := config["theme"].(map[string]any)
	if theme["border"] != "#444444" {
		t.Errorf("border = %v", theme["border"])
	}

	memfs.AddFile("/bad.yml", "layout: [grid\n")
	if _, err := ForFile(memfs, "/bad.yml").Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestEnvLoader_Load(t *testing.T) {
	l := NewEnvLoader("WEFT_", map[string]string{
		"WEFT_LOG_LEVEL":       "log_level",
		"WEFT_LSP_MAX_RETRIES": "lsp.max_retries",
		"WEFT_CONFIG":          "",
	})
	l.environ = func() []string {
		return []string{
			"HOME=/home/me",
			"WEFT_LOG_LEVEL=debug",
			"WEFT_LSP_MAX_RETRIES=5",
			"WEFT_THEME_ACTIVE_BORDER=#ff0000",
			"WEFT_TICK=10ms",
			"WEFT_=ignored",
			"WEFT_CONFIG=/etc/weft.toml",
			"WEFTY=ignored",
		}
	}

	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := map[string]any{
		"log_level": "debug",
		"lsp":       map[string]any{"max_retries": int64(5)},
		"theme":     map[string]any{"active_border": "#ff0000"},
		"tick":      10 * time.Millisecond,
	}
	if !reflect.DeepEqual(config, want) {
		t.Errorf("Load() = %#v\nwant %#v", config, want)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", ""},
		{"true", true},
		{"Off", false},
		{"42", int64(42)},
		{"1.5", 1.5},
		{"250ms", 250 * time.Millisecond},
		{"/bin/bash -l", "/bin/bash -l"},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"shell": "/bin/sh",
		"lsp":   map[string]any{"max_retries": 10, "retry_delay": "1s"},
	}
	src := map[string]any{
		"shell": "/bin/zsh",
		"lsp":   map[string]any{"max_retries": 2},
		"theme": map[string]any{"border": "#111111"},
	}
	got := DeepMerge(dst, src)
	want := map[string]any{
		"shell": "/bin/zsh",
		"lsp":   map[string]any{"max_retries": 2, "retry_delay": "1s"},
		"theme": map[string]any{"border": "#111111"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DeepMerge() = %#v", got)
	}
	if got := DeepMerge(nil, nil); len(got) != 0 {
		t.Errorf("DeepMerge(nil, nil) = %#v", got)
	}
}

func TestSetPath(t *testing.T) {
	m := map[string]any{"lsp": "scalar"}
	SetPath(m, "lsp.servers.go.command", "gopls")
	SetPath(m, "layout", "grid")
	want := map[string]any{
		"layout": "grid",
		"lsp": map[string]any{
			"servers": map[string]any{"go": map[string]any{"command": "gopls"}},
		},
	}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("SetPath result = %#v", m)
	}
}
