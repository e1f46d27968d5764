package lsp

import (
	"os/exec"
	"slices"
	"sort"
)

// ServerConfig describes how to launch a language server.
type ServerConfig struct {
	// Command is the executable to run.
	Command string

	// Args are command-line arguments.
	Args []string

	// Env are additional environment variables.
	Env map[string]string

	// WorkDir is the working directory (defaults to the workspace root).
	WorkDir string

	// LanguageIDs that this server handles (e.g., "go"). When empty the
	// server name is used as the only language.
	LanguageIDs []string

	// InitializationOptions is raw JSON sent verbatim in initialize.
	InitializationOptions string
}

// Handles reports whether the server serves languageID.
func (c ServerConfig) Handles(name, languageID string) bool {
	if len(c.LanguageIDs) == 0 {
		return name == languageID
	}
	return slices.Contains(c.LanguageIDs, languageID)
}

// DefaultServers returns configurations for common language servers.
func DefaultServers() map[string]ServerConfig {
	return map[string]ServerConfig{
		"go": {
			Command: "gopls",
			Args:    []string{"serve"},
		},
		"rust": {
			Command: "rust-analyzer",
		},
		"typescript": {
			Command:     "typescript-language-server",
			Args:        []string{"--stdio"},
			LanguageIDs: []string{"typescript", "typescriptreact", "javascript", "javascriptreact"},
		},
		"python": {
			Command: "pylsp",
		},
		"clangd": {
			Command:     "clangd",
			LanguageIDs: []string{"c", "cpp"},
		},
		"zig": {
			Command: "zls",
		},
	}
}

// AvailableServers filters servers down to those whose command is on PATH.
func AvailableServers(servers map[string]ServerConfig) map[string]ServerConfig {
	available := make(map[string]ServerConfig, len(servers))
	for name, cfg := range servers {
		if _, err := exec.LookPath(cfg.Command); err == nil {
			available[name] = cfg
		}
	}
	return available
}

func serverNames(servers map[string]ServerConfig) []string {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
