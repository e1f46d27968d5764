package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/dshills/weft/internal/layout"
)

type envMap map[string]any

func (e envMap) Load() (map[string]any, error) { return e, nil }

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("SHELL", "/bin/sh")
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)
	cfg, err := Load(Options{Env: envMap{}})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, filepath.Join(dir, "state", "weft", "weft.log"), cfg.LogFile)
	assert.Equal(t, 50*time.Millisecond, cfg.Tick)
	assert.Equal(t, []string{"/bin/sh"}, cfg.ShellArgv())
	assert.Equal(t, layout.Vertical, cfg.LayoutMode())
}

func TestLoadDefaultPathTOML(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config", "weft", "config.toml"), `
shell = "/bin/zsh -l"
layout = "grid"
autosave_interval = "30s"

[lsp]
retry_delay = "250ms"

[lsp.servers.go]
command = "gopls"
args = ["serve", "-rpc.trace"]
initialization_options = { staticcheck = true }

[lsp.servers.lua]
command = "lua-language-server"

[theme]
active_border = "#ffaf00"
`)

	cfg, err := Load(Options{Env: envMap{}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/bin/zsh", "-l"}, cfg.ShellArgv())
	assert.Equal(t, layout.Grid, cfg.LayoutMode())
	assert.Equal(t, 30*time.Second, cfg.AutosaveInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.LSP.RetryDelay)
	assert.Equal(t, Default().LSP.MaxRetries, cfg.LSP.MaxRetries)
	assert.Equal(t, "#ffaf00", cfg.Theme.ActiveBorder)
	assert.Equal(t, Default().Theme.Border, cfg.Theme.Border)

	servers, err := cfg.Servers()
	require.NoError(t, err)
	assert.Equal(t, []string{"serve", "-rpc.trace"}, servers["go"].Args)
	assert.JSONEq(t, `{"staticcheck": true}`, servers["go"].InitializationOptions)
	assert.Equal(t, "lua-language-server", servers["lua"].Command)
	assert.Contains(t, servers, "rust")
}

func TestLoadExplicitYAML(t *testing.T) {
	isolate(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "weft.yml"), `
layout: mainstack
log_level: debug
theme:
  border: "#101010"
`)
	cfg, err := Load(Options{Path: path, Env: envMap{}})
	require.NoError(t, err)
	assert.Equal(t, layout.MainStack, cfg.LayoutMode())
	assert.Equal(t, "debug", cfg.LogLevel)

	border, _, _ := cfg.Theme.Colors()
	r, g, b := border.RGB255()
	assert.Equal(t, [3]uint8{0x10, 0x10, 0x10}, [3]uint8{r, g, b})
}

func TestLoadPrecedence(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config", "weft", "config.toml"), `
shell = "/bin/zsh"
tick = "80ms"
log_level = "warn"
`)
	cfg, err := Load(Options{
		Env: envMap{
			"shell": "/bin/bash",
			"tick":  10 * time.Millisecond,
		},
		Overrides: map[string]any{
			"shell":           "/bin/fish",
			"lsp.max_retries": 3,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "/bin/fish", cfg.Shell)
	assert.Equal(t, 10*time.Millisecond, cfg.Tick)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 3, cfg.LSP.MaxRetries)
}

func TestLoadErrors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	_, err := Load(Options{Path: filepath.Join(dir, "missing.toml"), Env: envMap{}})
	assert.ErrorIs(t, err, ErrFileNotFound)

	unknown := writeFile(t, filepath.Join(dir, "unknown.toml"), "[theme]\ncolour = \"#000000\"\n")
	_, err = Load(Options{Path: unknown, Env: envMap{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")

	broken := writeFile(t, filepath.Join(dir, "broken.toml"), "layout = [\n")
	_, err = Load(Options{Path: broken, Env: envMap{}})
	assert.Error(t, err)

	invalid := writeFile(t, filepath.Join(dir, "invalid.toml"), "layout = \"spiral\"\n")
	_, err = Load(Options{Path: invalid, Env: envMap{}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "layout", verr.Key)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Shell = "  "
	cfg.Tick = 0
	cfg.AutosaveInterval = -time.Second
	cfg.LogLevel = "loud"
	cfg.LSP.MaxRetries = 0
	cfg.LSP.Servers = map[string]ServerConfig{"broken": {}}
	cfg.Theme.StatusLine = "blue"
	cfg.MetricsAddr = "9464"

	errs := multierr.Errors(cfg.Validate())
	keys := make([]string, 0, len(errs))
	for _, err := range errs {
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), err.Error())
		keys = append(keys, verr.Key)
	}
	assert.ElementsMatch(t, []string{
		"shell",
		"tick",
		"autosave_interval",
		"log_level",
		"lsp.max_retries",
		"lsp.servers.broken.command",
		"theme.status_line",
		"metrics_addr",
	}, keys)
}
