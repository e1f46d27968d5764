// Package statusline provides the bottom status line and the prompt that
// temporarily replaces it.
package statusline

import (
	"fmt"

	"github.com/dshills/weft/internal/renderer/backend"
	"github.com/dshills/weft/internal/renderer/core"
)

// Styles configures the status line colours.
type Styles struct {
	Bar    core.Style // background of the whole line
	Accent core.Style // workspace indicator
	Error  core.Style // diagnostic counts
	Prompt core.Style
}

// DefaultStyles returns styles built on the given bar background.
func DefaultStyles(bar core.Color) Styles {
	base := core.DefaultStyle().WithBackground(bar)
	return Styles{
		Bar:    base,
		Accent: base.With(core.AttrBold).With(core.AttrReverse),
		Error:  base.WithForeground(core.ColorFromIndex(9)).With(core.AttrBold),
		Prompt: core.DefaultStyle(),
	}
}

// StatusLine renders one row of editor state. Callers set the fields for
// the current frame and call Render.
type StatusLine struct {
	// Workspace indicator
	workspace  int // 1-indexed
	workspaces int
	layout     string

	// Active window
	title    string
	modified bool
	line     int // 1-indexed, 0 hides the position
	col      int
	errors   int
	warnings int
	server   string

	message string

	// Prompt state
	promptActive bool
	promptLabel  string
	promptInput  string

	styles Styles
	width  int
}

// New creates a new status line.
func New(styles Styles) *StatusLine {
	return &StatusLine{styles: styles}
}

// SetWorkspace updates the workspace indicator. index is 0-based.
func (s *StatusLine) SetWorkspace(index, count int, layout string) {
	s.workspace = index + 1
	s.workspaces = count
	s.layout = layout
}

// SetWindow updates the title of the active window.
func (s *StatusLine) SetWindow(title string, modified bool) {
	s.title = title
	s.modified = modified
}

// SetPosition updates the cursor position (1-indexed). Zero hides it.
func (s *StatusLine) SetPosition(line, col int) {
	s.line = line
	s.col = col
}

// SetDiagnostics updates the error and warning counts and the language
// server state shown next to them.
func (s *StatusLine) SetDiagnostics(errors, warnings int, server string) {
	s.errors = errors
	s.warnings = warnings
	s.server = server
}

// SetMessage displays a status message.
func (s *StatusLine) SetMessage(msg string) {
	s.message = msg
}

// SetPrompt shows a prompt instead of the status bar.
func (s *StatusLine) SetPrompt(active bool, label, input string) {
	s.promptActive = active
	s.promptLabel = label
	s.promptInput = input
}

// Resize updates the status line width.
func (s *StatusLine) Resize(width int) {
	s.width = width
}

// Render draws the status line to the backend at the given row.
func (s *StatusLine) Render(b backend.Backend, row int) {
	if s.promptActive {
		s.renderPrompt(b, row)
		return
	}
	s.renderStatusBar(b, row)
}

func (s *StatusLine) renderStatusBar(b backend.Backend, row int) {
	backend.Fill(b, 0, row, s.width, 1, ' ', s.styles.Bar)

	col := 0
	if s.workspaces > 0 {
		ind := fmt.Sprintf(" %d/%d %s ", s.workspace, s.workspaces, s.layout)
		col += backend.SetString(b, col, row, ind, s.styles.Accent, s.width)
		col++
	}

	right := s.formatPosition()
	diag := s.formatDiagnostics()
	rightWidth := core.StringWidth(right)
	if diag != "" {
		rightWidth += core.StringWidth(diag) + 1
	}
	rightStart := max(s.width-rightWidth-1, col)

	left := s.title
	if left == "" {
		left = "[No Name]"
	}
	if s.modified {
		left += " [+]"
	}
	if s.message != "" {
		left += "  " + s.message
	}
	avail := rightStart - col - 1
	col += backend.SetString(b, col, row, core.Truncate(left, avail), s.styles.Bar, max(avail, 0))

	x := rightStart
	if diag != "" {
		x += backend.SetString(b, x, row, diag, s.styles.Error, s.width-x) + 1
	}
	backend.SetString(b, x, row, right, s.styles.Bar, s.width-x)
}

func (s *StatusLine) renderPrompt(b backend.Backend, row int) {
	backend.Fill(b, 0, row, s.width, 1, ' ', s.styles.Prompt)
	text := s.promptLabel + s.promptInput
	n := backend.SetString(b, 0, row, text, s.styles.Prompt, s.width)
	b.ShowCursor(min(n, s.width-1), row)
}

// formatPosition formats the position info for the right side.
func (s *StatusLine) formatPosition() string {
	if s.line == 0 {
		return ""
	}
	return fmt.Sprintf("Ln %d, Col %d", s.line, s.col)
}

func (s *StatusLine) formatDiagnostics() string {
	switch {
	case s.errors > 0 || s.warnings > 0:
		return fmt.Sprintf("E:%d W:%d", s.errors, s.warnings)
	case s.server != "":
		return s.server
	}
	return ""
}
