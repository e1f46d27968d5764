package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/dshills/weft/internal/config/loader"
	"github.com/dshills/weft/internal/layout"
	"github.com/dshills/weft/internal/lsp"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WEFT_"

// envMapping routes top-level keys whose names contain underscores.
// WEFT_CONFIG names the file itself and is read by the command.
var envMapping = map[string]string{
	"WEFT_SHELL":             "shell",
	"WEFT_LAYOUT":            "layout",
	"WEFT_TICK":              "tick",
	"WEFT_AUTOSAVE_INTERVAL": "autosave_interval",
	"WEFT_LOG_FILE":          "log_file",
	"WEFT_LOG_LEVEL":         "log_level",
	"WEFT_STARTUP_SCRIPT":    "startup_script",
	"WEFT_METRICS_ADDR":      "metrics_addr",
	"WEFT_CONFIG":            "",
}

// Config is the fully resolved editor configuration.
type Config struct {
	// Shell is the command line of new terminal windows.
	Shell string `yaml:"shell"`

	// Layout is the layout mode of new workspaces.
	Layout string `yaml:"layout"`

	// Tick bounds how long the reactor waits for input.
	Tick time.Duration `yaml:"tick"`

	// AutosaveInterval saves modified file buffers periodically. Zero
	// disables autosave.
	AutosaveInterval time.Duration `yaml:"autosave_interval"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`

	// StartupScript is a Lua file run once the first workspace exists.
	StartupScript string `yaml:"startup_script"`

	// MetricsAddr serves Prometheus metrics over HTTP when set, for
	// example "127.0.0.1:9464".
	MetricsAddr string `yaml:"metrics_addr"`

	LSP   LSPConfig `yaml:"lsp"`
	Theme Theme     `yaml:"theme"`
}

// LSPConfig configures language servers.
type LSPConfig struct {
	RetryDelay time.Duration `yaml:"retry_delay"`
	MaxRetries int           `yaml:"max_retries"`

	// Servers add to or replace the built-in server table by name.
	Servers map[string]ServerConfig `yaml:"servers"`
}

// ServerConfig is one language server entry.
type ServerConfig struct {
	Command               string            `yaml:"command"`
	Args                  []string          `yaml:"args"`
	Env                   map[string]string `yaml:"env"`
	Languages             []string          `yaml:"languages"`
	InitializationOptions map[string]any    `yaml:"initialization_options"`
}

// Theme holds colours as hex strings ("#rrggbb").
type Theme struct {
	Border       string `yaml:"border"`
	ActiveBorder string `yaml:"active_border"`
	StatusLine   string `yaml:"status_line"`
}

// Default returns the built-in configuration.
func Default() *Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Config{
		Shell:    shell,
		Layout:   layout.Vertical.String(),
		Tick:     50 * time.Millisecond,
		LogFile:  defaultLogFile(),
		LogLevel: "info",
		LSP: LSPConfig{
			RetryDelay: lsp.DefaultRetryDelay,
			MaxRetries: lsp.DefaultMaxRetries,
		},
		Theme: Theme{
			Border:       "#5f5f5f",
			ActiveBorder: "#5fafff",
			StatusLine:   "#303030",
		},
	}
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, fallback)
}

func defaultLogFile() string {
	return filepath.Join(xdgDir("XDG_STATE_HOME", ".local/state"), "weft", "weft.log")
}

// DefaultPath returns the first existing user configuration file,
// config.toml then config.yaml in $XDG_CONFIG_HOME/weft. It returns the
// TOML path when neither exists.
func DefaultPath() string {
	dir := filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "weft")
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(dir, "config.toml")
}

// Options controls Load.
type Options struct {
	// Path is an explicit configuration file; it must exist. Empty means
	// DefaultPath, which may be missing.
	Path string

	// Overrides are dotted keys set from command-line flags. They win
	// over every other source.
	Overrides map[string]any

	// FS reads configuration files. Defaults to the OS.
	FS loader.FileSystem

	// Env loads environment overrides. Defaults to WEFT_* variables.
	Env loader.Loader
}

// Load resolves the configuration: defaults, then the file, then the
// environment, then the overrides. The result is validated.
func Load(opts Options) (*Config, error) {
	if opts.FS == nil {
		opts.FS = loader.DefaultFS()
	}
	if opts.Env == nil {
		opts.Env = loader.NewEnvLoader(EnvPrefix, envMapping)
	}
	path := opts.Path
	if path == "" {
		path = DefaultPath()
	} else if _, err := opts.FS.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	merged, err := loader.ForFile(opts.FS, path).Load()
	if err != nil {
		return nil, err
	}
	env, err := opts.Env.Load()
	if err != nil {
		return nil, err
	}
	merged = loader.DeepMerge(merged, env)
	for key, val := range opts.Overrides {
		loader.SetPath(merged, key, val)
	}

	cfg := Default()
	if err := decode(merged, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode applies a merged map onto cfg. Unknown keys are errors.
func decode(merged map[string]any, cfg *Config) error {
	if len(merged) == 0 {
		return nil
	}
	data, err := yaml.Marshal(merged)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var err error
	invalid := func(key string, value any, msg string) {
		err = multierr.Append(err, &ValidationError{Key: key, Value: value, Message: msg})
	}

	if len(c.ShellArgv()) == 0 {
		invalid("shell", c.Shell, "must not be empty")
	}
	if _, perr := layout.ParseMode(c.Layout); perr != nil {
		invalid("layout", c.Layout, "must be vertical, horizontal, mainstack or grid")
	}
	if c.Tick <= 0 {
		invalid("tick", c.Tick, "must be positive")
	}
	if c.AutosaveInterval < 0 {
		invalid("autosave_interval", c.AutosaveInterval, "must not be negative")
	}
	if !slices.Contains(logLevels, c.LogLevel) {
		invalid("log_level", c.LogLevel, "must be one of "+strings.Join(logLevels, ", "))
	}
	if c.MetricsAddr != "" {
		if _, _, aerr := net.SplitHostPort(c.MetricsAddr); aerr != nil {
			invalid("metrics_addr", c.MetricsAddr, "must be host:port")
		}
	}
	if c.LSP.RetryDelay <= 0 {
		invalid("lsp.retry_delay", c.LSP.RetryDelay, "must be positive")
	}
	if c.LSP.MaxRetries <= 0 {
		invalid("lsp.max_retries", c.LSP.MaxRetries, "must be positive")
	}
	for name, srv := range c.LSP.Servers {
		if srv.Command == "" {
			invalid("lsp.servers."+name+".command", srv.Command, "must not be empty")
		}
	}
	for key, hex := range map[string]string{
		"theme.border":        c.Theme.Border,
		"theme.active_border": c.Theme.ActiveBorder,
		"theme.status_line":   c.Theme.StatusLine,
	} {
		if _, cerr := colorful.Hex(hex); cerr != nil {
			invalid(key, hex, "must be a #rrggbb colour")
		}
	}
	return err
}

// ShellArgv splits Shell into a command and its arguments.
func (c *Config) ShellArgv() []string {
	return strings.Fields(c.Shell)
}

// LayoutMode returns the parsed layout mode, Vertical when invalid.
func (c *Config) LayoutMode() layout.Mode {
	mode, _ := layout.ParseMode(c.Layout)
	return mode
}

// Servers returns the built-in servers with the configured ones merged
// over them by name.
func (c *Config) Servers() (map[string]lsp.ServerConfig, error) {
	servers := lsp.DefaultServers()
	for name, srv := range c.LSP.Servers {
		cfg := lsp.ServerConfig{
			Command:     srv.Command,
			Args:        srv.Args,
			Env:         srv.Env,
			LanguageIDs: srv.Languages,
		}
		if len(srv.InitializationOptions) > 0 {
			raw, err := json.Marshal(srv.InitializationOptions)
			if err != nil {
				return nil, fmt.Errorf("lsp.servers.%s.initialization_options: %w", name, err)
			}
			cfg.InitializationOptions = string(raw)
		}
		servers[name] = cfg
	}
	return servers, nil
}

// Colors returns the parsed theme colours.
func (t Theme) Colors() (border, active, status colorful.Color) {
	border, _ = colorful.Hex(t.Border)
	active, _ = colorful.Hex(t.ActiveBorder)
	status, _ = colorful.Hex(t.StatusLine)
	return border, active, status
}
