package loader

import (
	"bufio"
	"io"
)

// Stream is a byte stream returned by BlockLoader.
//
// Every backend (local files, packaged resources, HTTP bodies) and
// LimitReader satisfy it, so callers do not depend on where bytes come from.
type Stream interface {
	io.ReadCloser
	// ReadLine reads up to and including the next '\n', but at most n bytes.
	// Non-positive n means no size limit. Returns io.EOF only if nothing was read.
	ReadLine(n int) ([]byte, error)
}

// NewStream adapts rc to Stream by buffering it.
func NewStream(rc io.ReadCloser) Stream {
	if s, ok := rc.(Stream); ok {
		return s
	}
	return &bufferedStream{
		br: bufio.NewReader(rc),
		c:  rc,
	}
}

type bufferedStream struct {
	br *bufio.Reader
	c  io.Closer
}

func (s *bufferedStream) Read(p []byte) (int, error) {
	return s.br.Read(p)
}

func (s *bufferedStream) ReadLine(n int) ([]byte, error) {
	return readLine(s.br, n)
}

func (s *bufferedStream) Close() error {
	return s.c.Close()
}

func readLine(br *bufio.Reader, n int) ([]byte, error) {
	var line []byte
	for n <= 0 || len(line) < n {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				return line, nil
			}
			return line, err
		}
		line = append(line, b)
		if b == '\n' {
			break
		}
	}
	return line, nil
}
