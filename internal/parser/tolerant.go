package parser

import (
	"bufio"
	"io"
)

// commaLookaheadLimit bounds how far newTolerantJSONReader will peek past
// a comma to decide whether it precedes a closing bracket; real exports
// never have runs of whitespace/comments this long between a value and
// its container's close.
const commaLookaheadLimit = 64 * 1024

// newTolerantJSONReader wraps r so encoding/json's Decoder can consume
// "//" line comments and trailing commas before a closing '}' or ']',
// both of which spec §6 requires tolerating but which encoding/json
// rejects outright. It runs as a single pass over r with a small bounded
// lookahead, so it keeps the outer decoder's streaming, bounded-memory
// behavior instead of buffering the whole export.
type tolerantJSONReader struct {
	src      *bufio.Reader
	out      []byte
	inString bool
	escaped  bool
	err      error
}

func newTolerantJSONReader(r io.Reader) *tolerantJSONReader {
	return &tolerantJSONReader{src: bufio.NewReaderSize(r, commaLookaheadLimit)}
}

func (t *tolerantJSONReader) Read(p []byte) (int, error) {
	for len(t.out) == 0 && t.err == nil {
		t.fill()
	}
	if len(t.out) == 0 {
		return 0, t.err
	}
	n := copy(p, t.out)
	t.out = t.out[n:]
	return n, nil
}

// fill processes exactly one source byte (more, if it turns out to start
// a comment) into t.out, or records the terminal error once src is
// exhausted.
func (t *tolerantJSONReader) fill() {
	b, err := t.src.ReadByte()
	if err != nil {
		t.err = err
		return
	}

	if t.inString {
		t.out = append(t.out, b)
		switch {
		case t.escaped:
			t.escaped = false
		case b == '\\':
			t.escaped = true
		case b == '"':
			t.inString = false
		}
		return
	}

	switch {
	case b == '"':
		t.inString = true
		t.out = append(t.out, b)
	case b == '/' && t.peekIsSlash():
		t.src.ReadByte() // consume the second '/'
		t.skipLineComment()
	case b == ',' && t.nextSignificantIsClose():
		// drop the trailing comma
	default:
		t.out = append(t.out, b)
	}
}

func (t *tolerantJSONReader) peekIsSlash() bool {
	next, err := t.src.Peek(1)
	return err == nil && len(next) == 1 && next[0] == '/'
}

// skipLineComment discards bytes through (and including) the next
// newline, or EOF, without writing them to t.out.
func (t *tolerantJSONReader) skipLineComment() {
	for {
		b, err := t.src.ReadByte()
		if err != nil {
			return
		}
		if b == '\n' {
			t.out = append(t.out, '\n')
			return
		}
	}
}

// nextSignificantIsClose peeks past any run of whitespace and complete
// "//" comments, without consuming them, to see whether the next
// meaningful byte is a '}' or ']' — i.e. whether the comma just read is
// a trailing one that encoding/json would otherwise reject.
func (t *tolerantJSONReader) nextSignificantIsClose() bool {
	for n := 16; n <= commaLookaheadLimit; n *= 2 {
		buf, _ := t.src.Peek(n)
		if b, ok := scanPastWhitespaceAndComments(buf); ok {
			return b == '}' || b == ']'
		}
		if len(buf) < n {
			return false // ran out of source before finding a significant byte
		}
	}
	return false
}

// scanPastWhitespaceAndComments walks buf from its start, skipping ASCII
// whitespace and full "//...\n" line comments. ok is false when buf ends
// before a significant byte (or a comment's terminating newline) is
// found, meaning the caller needs to peek further ahead.
func scanPastWhitespaceAndComments(buf []byte) (b byte, ok bool) {
	i := 0
	for i < len(buf) {
		c := buf[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '/' && i+1 < len(buf) && buf[i+1] == '/':
			i += 2
			for i < len(buf) && buf[i] != '\n' {
				i++
			}
			if i >= len(buf) {
				return 0, false
			}
			i++ // skip the newline itself
		case c == '/' && i+1 >= len(buf):
			return 0, false // ambiguous: buf ends right after a lone '/'
		default:
			return c, true
		}
	}
	return 0, false
}
