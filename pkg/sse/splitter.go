// Package sse provides a minimal, purpose-built SSE (Server-Sent Events)
// line splitter for the conseil streaming client. It is designed to be fed
// raw byte chunks exactly as they arrive from the network, so a single
// logical line may span several chunks and one chunk may carry several
// lines.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// Splitter converts an ordered sequence of raw byte chunks into an ordered
// sequence of complete, newline-terminated lines. Bytes after the last
// newline of a chunk are retained and prepended to the next chunk, so a
// multi-byte UTF-8 sequence split across two reads is reassembled before it
// is ever decoded. Assistant payloads are French-first, so this matters in
// practice, not just in theory.
//
// A Splitter is owned by exactly one stream and is not safe for concurrent
// use.
type Splitter struct {
	// rest holds the bytes of the current unterminated line.
	// Invariant: rest never contains a '\n'.
	rest []byte
}

// NewSplitter returns an empty Splitter.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Push feeds one raw chunk and returns every line completed by it, in
// arrival order, with the trailing newline (and any preceding '\r')
// stripped. Lines are only emitted once their terminating newline has been
// seen; the residual partial line stays buffered.
//
// Invalid UTF-8 sequences inside a complete line are replaced with U+FFFD
// rather than surfaced as an error.
func (s *Splitter) Push(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}

	data := chunk
	if len(s.rest) > 0 {
		data = append(s.rest, chunk...)
	}

	var lines []string
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}

		line := data[:idx]
		// SSE allows CRLF line endings.
		line = bytes.TrimSuffix(line, []byte("\r"))
		lines = append(lines, decodeLine(line))

		data = data[idx+1:]
	}

	// Copy the residue: data aliases the caller's chunk.
	s.rest = append(s.rest[:0:0], data...)

	return lines
}

// Pending returns the current unterminated residue. A well-formed server
// always terminates its final line, so anything still pending at
// end-of-stream is a truncated frame and is deliberately dropped rather
// than surfaced as a line.
func (s *Splitter) Pending() string {
	return string(s.rest)
}

// Reset discards any buffered residue so the Splitter can be reused for a
// fresh stream.
func (s *Splitter) Reset() {
	s.rest = nil
}

// decodeLine converts a complete line to a string, substituting U+FFFD for
// any invalid UTF-8.
func decodeLine(line []byte) string {
	if utf8.Valid(line) {
		return string(line)
	}
	return strings.ToValidUTF8(string(line), string(utf8.RuneError))
}
