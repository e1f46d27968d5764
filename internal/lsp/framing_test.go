package lsp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
)

func TestDecoderSplitFrames(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`
	frame := Frame([]byte(body))

	// Split inside the header name, inside the separator and inside the body.
	splits := []int{3, len("Content-Length: 45\r\n"), len(frame) - 5}
	for _, at := range splits {
		var d Decoder
		d.Write(frame[:at])

		got, err := d.Next()
		require.NoError(t, err)
		assert.Nil(t, got, "split at %d produced a message early", at)

		d.Write(frame[at:])
		got, err = d.Next()
		require.NoError(t, err)
		assert.Equal(t, body, string(got), "split at %d", at)
		assert.Zero(t, d.Buffered())
	}
}

// One message cut inside the header name, between the two length digits
// and in the middle of the body decodes exactly once.
func TestDecoderThreeCuts(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`
	frame := Frame([]byte(body))
	require.Equal(t, "Content-Length: 45\r\n\r\n", string(frame[:len(frame)-len(body)]))

	digits := len("Content-Length: 4")
	mid := len(frame) - len(body)/2
	pieces := [][]byte{frame[:3], frame[3:digits], frame[digits:mid], frame[mid:]}

	var d Decoder
	var got [][]byte
	for _, piece := range pieces {
		d.Write(piece)
		for {
			msg, err := d.Next()
			require.NoError(t, err)
			if msg == nil {
				break
			}
			got = append(got, msg)
		}
	}
	require.Len(t, got, 1)
	assert.Equal(t, []byte(body), got[0])
	assert.Zero(t, d.Buffered())
}

func TestDecoderByteAtATime(t *testing.T) {
	first := Frame([]byte(`{"a":1}`))
	second := Frame([]byte(`{"b":2}`))
	stream := append(append([]byte{}, first...), second...)

	var d Decoder
	var got []string
	for _, b := range stream {
		d.Write([]byte{b})
		for {
			body, err := d.Next()
			require.NoError(t, err)
			if body == nil {
				break
			}
			got = append(got, string(body))
		}
	}
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, got)
}

func TestDecoderMultipleInOneWrite(t *testing.T) {
	var d Decoder
	d.Write(append(Frame([]byte(`[1]`)), Frame([]byte(`[2]`))...))

	first, err := d.Next()
	require.NoError(t, err)
	second, err := d.Next()
	require.NoError(t, err)
	third, err := d.Next()
	require.NoError(t, err)

	assert.Equal(t, "[1]", string(first))
	assert.Equal(t, "[2]", string(second))
	assert.Nil(t, third)
}

func TestDecoderHeaders(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"lowercase name", "content-length: 2\r\n\r\n{}", "{}", false},
		{"extra header", "Content-Type: application/vscode-jsonrpc; charset=utf-8\r\nContent-Length: 2\r\n\r\n{}", "{}", false},
		{"missing length", "Content-Type: x\r\n\r\n{}", "", true},
		{"bad length", "Content-Length: abc\r\n\r\n{}", "", true},
		{"negative length", "Content-Length: -4\r\n\r\n{}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decoder
			d.Write([]byte(tt.input))
			got, err := d.Next()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrMalformedHeader), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestDecoderResyncAfterMalformedHeader(t *testing.T) {
	var d Decoder
	d.Write([]byte("garbage\r\n\r\n"))
	d.Write(Frame([]byte(`{"ok":1}`)))

	_, err := d.Next()
	require.ErrorIs(t, err, ErrMalformedHeader)

	body, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"ok":1}`, string(body))
}

func TestEncodeRoundTrip(t *testing.T) {
	call, err := jsonrpc2.NewCall(jsonrpc2.NewNumberID(7), "textDocument/hover", map[string]int{"line": 3})
	require.NoError(t, err)

	data, err := Encode(call)
	require.NoError(t, err)

	var d Decoder
	d.Write(data)
	body, err := d.Next()
	require.NoError(t, err)

	msg, err := jsonrpc2.DecodeMessage(body)
	require.NoError(t, err)
	got, ok := msg.(*jsonrpc2.Call)
	require.True(t, ok, "decoded %T", msg)
	assert.Equal(t, "textDocument/hover", got.Method())
	assert.Equal(t, jsonrpc2.NewNumberID(7), got.ID())
	assert.JSONEq(t, `{"line":3}`, string(got.Params()))
}
