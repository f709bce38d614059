// Package sse implements the byte-level Server-Sent-Events framer used by
// every streaming provider adapter. It is deliberately not built on
// bufio.Scanner: the framer must expose "has a complete event arrived yet"
// as a non-blocking query driven by whatever bytes the transport handed it
// this tick, not by blocking on an io.Reader inside a Scan loop.
package sse

// Framer accumulates raw bytes from a streaming HTTP body and extracts
// complete SSE events, each delimited by a blank line ("\n\n").
type Framer struct {
	buf []byte
}

// NewFramer returns an empty framer.
func NewFramer() *Framer {
	return &Framer{buf: make([]byte, 0, 4096)}
}

// Feed appends bytes to the internal buffer. An empty feed is a no-op.
func (f *Framer) Feed(b []byte) {
	if len(b) == 0 {
		return
	}
	f.buf = append(f.buf, b...)
}

// TakeEvent returns the next complete event (everything up to, but not
// including, the first "\n\n"), consuming it and any bytes up to and
// including the delimiter. It returns ("", false) when no complete event
// is buffered yet.
func (f *Framer) TakeEvent() (string, bool) {
	idx, delimLen := indexDoubleNewline(f.buf)
	if idx < 0 {
		return "", false
	}
	event := string(f.buf[:idx])
	rest := f.buf[idx+delimLen:]
	// Retain the tail bytes that belong to the next event. Re-slicing
	// in place (rather than a fresh allocation every call) keeps this
	// cheap for the common case of many small events in one buffer.
	f.buf = append(f.buf[:0], rest...)
	return event, true
}

// indexDoubleNewline finds the first blank-line delimiter, tolerating both
// "\n\n" and "\r\n\r\n" since providers commonly emit CRLF line endings.
// It returns the start index and the length of the delimiter found.
func indexDoubleNewline(b []byte) (int, int) {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\r' && i+3 < len(b) && b[i+1] == '\n' && b[i+2] == '\r' && b[i+3] == '\n' {
			return i, 4
		}
		if b[i] == '\n' && b[i+1] == '\n' {
			return i, 2
		}
	}
	return -1, 0
}
