// Package config resolves the editor configuration.
//
// Sources are applied in order, later ones winning:
//
//  1. Built-in defaults (Default)
//  2. The user file, TOML or YAML ($XDG_CONFIG_HOME/weft/config.toml)
//  3. WEFT_* environment variables
//  4. Command-line flags, passed as Options.Overrides
//
// Durations are written as strings ("50ms", "2s"). Unknown keys and
// invalid values are reported with the key that caused them.
//
// Example config.toml:
//
//	shell = "/bin/zsh -l"
//	layout = "grid"
//	autosave_interval = "30s"
//
//	[lsp]
//	retry_delay = "250ms"
//
//	[lsp.servers.go]
//	command = "gopls"
//	args = ["serve"]
//	initialization_options = { staticcheck = true }
//
//	[theme]
//	active_border = "#ffaf00"
package config
