// Package origin implements HTTP origin serving byte ranges of files
// from a directory, optionally guarded by signed cookies.
package origin

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type FileNotFoundErr struct {
	File string
}

func (e *FileNotFoundErr) Error() string {
	return "file not found: " + e.File
}

// Store of files served by origin.
type Store struct {
	dir string

	trace        trace.Tracer
	bytesServed  metric.Int64Counter
	requests     metric.Int64Counter
	authRejected metric.Int64Counter
}

func NewStore(dir string, tracerProvider trace.TracerProvider, meterProvider metric.MeterProvider) (*Store, error) {
	const name = "blockload.origin"

	meter := meterProvider.Meter(name)
	bytesServed, err := meter.Int64Counter("origin.bytes.served")
	if err != nil {
		return nil, errors.Wrap(err, "bytes served")
	}
	requests, err := meter.Int64Counter("origin.requests")
	if err != nil {
		return nil, errors.Wrap(err, "requests")
	}
	authRejected, err := meter.Int64Counter("origin.auth.rejected")
	if err != nil {
		return nil, errors.Wrap(err, "auth rejected")
	}

	return &Store{
		dir: dir,

		trace:        tracerProvider.Tracer(name),
		bytesServed:  bytesServed,
		requests:     requests,
		authRejected: authRejected,
	}, nil
}

// path returns file path of name, which never escapes store directory.
func (s *Store) path(name string) string {
	return filepath.Join(s.dir, filepath.FromSlash(path.Clean("/"+name)))
}

// Block is an opened file of Store.
type Block struct {
	f    *os.File
	info fs.FileInfo

	ctx         context.Context
	bytesServed metric.Int64Counter
}

func (b *Block) Read(p []byte) (int, error) {
	n, err := b.f.Read(p)
	b.bytesServed.Add(b.ctx, int64(n))
	return n, err
}

func (b *Block) Seek(offset int64, whence int) (int64, error) {
	return b.f.Seek(offset, whence)
}

func (b *Block) Close() error { return b.f.Close() }

// Info of opened file.
func (b *Block) Info() fs.FileInfo { return b.info }

var _ io.ReadSeekCloser = (*Block)(nil)

// Open file for serving. Reads of returned block are accounted to ctx.
func (s *Store) Open(ctx context.Context, name string) (_ *Block, rerr error) {
	reqCtx := ctx
	ctx, span := s.trace.Start(ctx, "Store.Open",
		trace.WithAttributes(attribute.String("name", name)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
		}
		span.End()
	}()
	s.requests.Add(ctx, 1)

	f, err := os.Open(s.path(name))
	if os.IsNotExist(err) {
		return nil, &FileNotFoundErr{File: name}
	}
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "stat")
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, &FileNotFoundErr{File: name}
	}

	return &Block{
		f:           f,
		info:        info,
		ctx:         reqCtx,
		bytesServed: s.bytesServed,
	}, nil
}
