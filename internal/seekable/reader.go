// Package seekable provides size-aware seekable reader over local text
// files, used as a substrate for binary search over sorted lines.
package seekable

import (
	"bufio"
	"io"
	"os"

	"github.com/go-faster/errors"
)

// Reader reads local file and knows its total size.
//
// Size is captured once on Open and does not change even if the file does.
type Reader struct {
	f    *os.File
	br   *bufio.Reader
	name string
	size int64
}

// Open file for reading.
func Open(name string) (*Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "stat")
	}
	return &Reader{
		f:    f,
		br:   bufio.NewReader(f),
		name: name,
		size: stat.Size(),
	}, nil
}

// Name of the file.
func (r *Reader) Name() string { return r.name }

// Size of the file at open time.
func (r *Reader) Size() int64 { return r.size }

func (r *Reader) Read(p []byte) (int, error) {
	return r.br.Read(p)
}

// ReadAll reads the rest of the file from the current position.
func (r *Reader) ReadAll() ([]byte, error) {
	data, err := io.ReadAll(r.br)
	if err != nil {
		return data, errors.Wrap(err, "read")
	}
	return data, nil
}

// ReadLine reads until and including '\n' or end of file.
// Returns io.EOF if nothing was read.
func (r *Reader) ReadLine() ([]byte, error) {
	line, err := r.br.ReadBytes('\n')
	if err == io.EOF && len(line) > 0 {
		return line, nil
	}
	return line, err
}

// Seek implements io.Seeker, discarding buffered data.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent {
		// Underlying file is ahead of the logical position by buffered bytes.
		offset -= int64(r.br.Buffered())
	}
	n, err := r.f.Seek(offset, whence)
	if err != nil {
		return n, errors.Wrap(err, "seek")
	}
	r.br.Reset(r.f)
	return n, nil
}

func (r *Reader) Close() error {
	return r.f.Close()
}

var _ io.ReadSeekCloser = (*Reader)(nil)
