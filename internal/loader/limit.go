package loader

import (
	"io"
	"strconv"
	"strings"
)

// MinLimit is the smallest budget of LimitReader.
//
// A zero limit is raised to MinLimit, so LimitReader(s, 0) still yields one byte.
// Callers rely on that, keep it.
const MinLimit = 1

// LimitReader reads from underlying stream but stops with EOF after N bytes.
type LimitReader struct {
	S Stream
	N int64 // remaining budget
}

// NewLimitReader wraps s, allowing at most limit bytes to be read.
func NewLimitReader(s Stream, limit int64) *LimitReader {
	if limit <= 0 {
		limit = MinLimit
	}
	return &LimitReader{S: s, N: limit}
}

func (l *LimitReader) Read(p []byte) (n int, err error) {
	if l.N <= 0 {
		// Already read everything.
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if int64(len(p)) > l.N {
		p = p[:l.N] // limit p to l.N bytes
	}
	n, err = l.S.Read(p)
	l.N -= int64(n)
	return n, err
}

// ReadLine reads a line of at most n bytes from the remaining budget.
// Non-positive n means the whole remaining budget.
func (l *LimitReader) ReadLine(n int) ([]byte, error) {
	if l.N <= 0 {
		return nil, io.EOF
	}
	if n <= 0 || int64(n) > l.N {
		n = int(l.N)
	}
	line, err := l.S.ReadLine(n)
	l.N -= int64(len(line))
	return line, err
}

// Remaining returns the number of bytes still allowed to be read.
func (l *LimitReader) Remaining() int64 { return l.N }

// Close closes underlying stream.
func (l *LimitReader) Close() error {
	return l.S.Close()
}

// WrapStream limits s to declaredLength bytes if it is a positive integer.
//
// Missing, malformed, zero or negative lengths mean "length unknown" and
// s is returned as is.
func WrapStream(s Stream, declaredLength string) Stream {
	n, err := strconv.ParseInt(strings.TrimSpace(declaredLength), 10, 64)
	if err != nil || n <= 0 {
		return s
	}
	return NewLimitReader(s, n)
}

var _ Stream = (*LimitReader)(nil)
