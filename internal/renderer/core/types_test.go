package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
		err  bool
	}{
		{"#ff8000", ColorFromRGB(255, 128, 0), false},
		{"ff8000", ColorFromRGB(255, 128, 0), false},
		{"#fff", ColorFromRGB(255, 255, 255), false},
		{"", ColorDefault, false},
		{"default", ColorDefault, false},
		{"#12", Color{}, true},
		{"#gggggg", Color{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equals(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestColorEquals(t *testing.T) {
	assert.True(t, ColorDefault.Equals(Color{Default: true, R: 9}))
	assert.False(t, ColorDefault.Equals(ColorFromRGB(0, 0, 0)))
	assert.True(t, ColorFromIndex(3).Equals(Color{R: 3, G: 7, Indexed: true}))
	assert.False(t, ColorFromIndex(3).Equals(ColorFromRGB(3, 0, 0)))
}

func TestColorBlend(t *testing.T) {
	black := ColorFromRGB(0, 0, 0)
	white := ColorFromRGB(255, 255, 255)

	start := black.Blend(white, 0)
	assert.InDelta(t, 0, int(start.R), 1)
	end := black.Blend(white, 1)
	assert.InDelta(t, 255, int(end.G), 1)
	mid := black.Blend(white, 0.5)
	assert.Greater(t, mid.R, uint8(50))
	assert.Less(t, mid.R, uint8(200))

	idx := ColorFromIndex(4)
	assert.Equal(t, idx, idx.Blend(white, 0.5))
}

func TestColorString(t *testing.T) {
	assert.Equal(t, "default", ColorDefault.String())
	assert.Equal(t, "idx(12)", ColorFromIndex(12).String())
	assert.Equal(t, "#0a0b0c", ColorFromRGB(10, 11, 12).String())
}

func TestStyle(t *testing.T) {
	s := DefaultStyle().WithForeground(ColorFromIndex(1)).With(AttrBold).With(AttrReverse)
	assert.True(t, s.Attributes.Has(AttrBold))
	assert.True(t, s.Attributes.Has(AttrReverse))
	assert.False(t, s.Attributes.Has(AttrItalic))
	assert.True(t, s.Background.Default)
	assert.False(t, s.Equals(DefaultStyle()))
	assert.True(t, DefaultStyle().Equals(Style{Foreground: ColorDefault, Background: ColorDefault}))
}

func TestRuneWidth(t *testing.T) {
	assert.Equal(t, 1, RuneWidth('a'))
	assert.Equal(t, 2, RuneWidth('世'))
	assert.Equal(t, 1, RuneWidth('\x01'))
	assert.Equal(t, 2, NewCell('世', DefaultStyle()).Width)
	assert.False(t, EmptyCell().IsContinuation())
	assert.True(t, Cell{}.IsContinuation())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 6, "hello…"},
		{"世界世界", 5, "世界…"},
		{"abc", 0, ""},
		{"abc", 1, "…"},
	}
	for _, tt := range tests {
		got := Truncate(tt.in, tt.width)
		assert.Equal(t, tt.want, got, "Truncate(%q, %d)", tt.in, tt.width)
		assert.LessOrEqual(t, StringWidth(got), max(tt.width, 0))
	}
}
