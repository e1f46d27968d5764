package lsp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.lsp.dev/jsonrpc2"
)

var headerSeparator = []byte(jsonrpc2.HdrContentSeparator)

// Decoder reassembles framed messages from a byte stream that arrives in
// arbitrary chunks. Bytes that do not yet form a complete header and body
// stay buffered until the next Write.
type Decoder struct {
	buf []byte
}

// Write appends raw bytes read from the server.
func (d *Decoder) Write(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes waiting for a complete frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Reset discards all buffered bytes.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

// Next extracts the next complete message body. It returns (nil, nil) when
// more bytes are needed. A header block without a valid Content-Length is
// dropped and reported as ErrMalformedHeader; calling Next again continues
// with whatever follows it.
func (d *Decoder) Next() ([]byte, error) {
	end := bytes.Index(d.buf, headerSeparator)
	if end < 0 {
		return nil, nil
	}
	bodyStart := end + len(headerSeparator)

	length, err := contentLength(d.buf[:end])
	if err != nil {
		d.consume(bodyStart)
		return nil, err
	}
	if len(d.buf)-bodyStart < length {
		return nil, nil
	}

	body := make([]byte, length)
	copy(body, d.buf[bodyStart:bodyStart+length])
	d.consume(bodyStart + length)
	return body, nil
}

// consume drops n bytes from the front, keeping the backing array.
func (d *Decoder) consume(n int) {
	rest := copy(d.buf, d.buf[n:])
	d.buf = d.buf[:rest]
}

func contentLength(header []byte) (int, error) {
	for _, line := range strings.Split(string(header), "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(name), jsonrpc2.HdrContentLength) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %s %q", ErrMalformedHeader, jsonrpc2.HdrContentLength, value)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: missing %s", ErrMalformedHeader, jsonrpc2.HdrContentLength)
}

// Encode serializes msg with its Content-Length header.
func Encode(msg jsonrpc2.Message) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return Frame(body), nil
}

// Frame prefixes body with its header block.
func Frame(body []byte) []byte {
	var b bytes.Buffer
	b.Grow(len(body) + 32)
	fmt.Fprintf(&b, "%s: %d%s", jsonrpc2.HdrContentLength, len(body), jsonrpc2.HdrContentSeparator)
	b.Write(body)
	return b.Bytes()
}
