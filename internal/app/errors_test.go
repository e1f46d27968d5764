package app

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/weft/internal/lsp"
	"github.com/dshills/weft/internal/session"
)

func TestOperationErrorMessage(t *testing.T) {
	for _, tc := range []struct {
		err  *OperationError
		want string
	}{
		{&OperationError{Op: "save"}, "save"},
		{&OperationError{Op: "reload", Target: "/src/main.go"}, "reload /src/main.go"},
		{NewOperationError("save", "main.go", nil).Because("autosave"), "save main.go (autosave)"},
		{NewOperationError("save", "main.go", fs.ErrPermission).Because("autosave"), "save main.go (autosave): permission denied"},
		{NewOperationError("symbols", "", lsp.ErrNotReady), "symbols: language server not ready"},
	} {
		assert.Equal(t, tc.want, tc.err.Error())
	}
}

func TestOperationErrorWraps(t *testing.T) {
	err := error(NewOperationError("rename", "main.c", lsp.ErrNotReady))

	assert.ErrorIs(t, err, lsp.ErrNotReady)
	assert.NotErrorIs(t, err, lsp.ErrServerDead)

	var op *OperationError
	assert.ErrorAs(t, fmt.Errorf("key F2: %w", err), &op)
	assert.Equal(t, "rename", op.Op)
}

func TestComponentErrorMessage(t *testing.T) {
	for _, tc := range []struct {
		err  *ComponentError
		want string
	}{
		{&ComponentError{Component: "lsp"}, "lsp"},
		{&ComponentError{Component: "lsp", Action: "shutdown"}, "lsp: shutdown"},
		{NewComponentError("session", "close", errors.New("kill failed")), "session: close: kill failed"},
		{&ComponentError{Component: "filewatch", Err: errors.New("closed")}, "filewatch: closed"},
	} {
		assert.Equal(t, tc.want, tc.err.Error())
	}
}

func TestComponentErrorUnwrapsChain(t *testing.T) {
	inner := fmt.Errorf("close window: %w", session.ErrUnsavedChanges)
	err := NewComponentError("session", "close", inner)

	assert.Same(t, inner, errors.Unwrap(err))
	assert.ErrorIs(t, err, session.ErrUnsavedChanges)
}

func TestSentinelsDistinct(t *testing.T) {
	sentinels := []error{ErrAlreadyRunning, ErrNoBackend, ErrNoEditor, ErrNoLanguageServer, ErrInputEnded}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
}
