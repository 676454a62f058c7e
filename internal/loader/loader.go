// Package loader implements range-addressable loading of local files,
// packaged resources and HTTP(S) resources.
package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"syscall"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ernado/blockload/internal/cookie"
)

const filePrefix = "file://"

// HTTPClient performs HTTP requests, *http.Client implements it.
type HTTPClient interface {
	Do(r *http.Request) (*http.Response, error)
}

// BlockLoader streams blocks of content given an identifier, offset and
// optional length.
//
// Supported identifiers:
//
//	http://..., https://...   HTTP range request
//	file://path               local file only
//	path                      local file, then packaged resource "namespace/rel/path"
type BlockLoader struct {
	cookies   cookie.Maker
	http      HTTPClient
	resolver  ResourceResolver
	limitHTTP bool
	tracer    trace.Tracer
}

// Option configures BlockLoader.
type Option func(b *BlockLoader)

// WithCookieMaker sets maker of Cookie header for every HTTP request.
// The maker is shared and may be used by many loaders.
func WithCookieMaker(m cookie.Maker) Option {
	return func(b *BlockLoader) { b.cookies = m }
}

// WithHTTPClient sets client for HTTP backend, http.DefaultClient by default.
func WithHTTPClient(c HTTPClient) Option {
	return func(b *BlockLoader) { b.http = c }
}

// WithResolver sets packaged resource resolver.
// Without resolver, bare paths have no fallback.
func WithResolver(r ResourceResolver) Option {
	return func(b *BlockLoader) { b.resolver = r }
}

// WithLimitHTTP wraps HTTP response bodies in LimitReader when length is
// set, like local streams. By default the server is trusted to honor Range.
func WithLimitHTTP(enabled bool) Option {
	return func(b *BlockLoader) { b.limitHTTP = enabled }
}

// WithTracerProvider sets tracer provider, noop by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(b *BlockLoader) { b.tracer = tp.Tracer("blockload.loader") }
}

// New creates new BlockLoader.
func New(opts ...Option) *BlockLoader {
	b := &BlockLoader{
		http:   http.DefaultClient,
		tracer: noop.NewTracerProvider().Tracer(""),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// IsHTTP reports whether identifier is loaded over HTTP.
func IsHTTP(identifier string) bool {
	return strings.HasPrefix(identifier, "http://") || strings.HasPrefix(identifier, "https://")
}

// RangeHeader returns value of Range header for offset and length.
// Non-positive length means open-ended range.
func RangeHeader(offset, length int64) string {
	if length > 0 {
		return fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	}
	return fmt.Sprintf("bytes=%d-", offset)
}

// Load opens identifier and returns stream of length bytes starting at offset.
// Negative length means "until the end of resource".
//
// Caller must close returned stream.
func (b *BlockLoader) Load(ctx context.Context, identifier string, offset, length int64) (_ Stream, rerr error) {
	backend := "local"
	if IsHTTP(identifier) {
		backend = "http"
	}
	ctx, span := b.tracer.Start(ctx, "loader.Load",
		trace.WithAttributes(
			attribute.String("identifier", identifier),
			attribute.String("backend", backend),
			attribute.Int64("offset", offset),
			attribute.Int64("length", length),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if offset < 0 {
		return nil, errors.Errorf("negative offset: %d", offset)
	}
	if backend == "http" {
		return b.loadHTTP(ctx, identifier, offset, length)
	}
	return b.loadLocal(identifier, offset, length)
}

func (b *BlockLoader) open(identifier string) (io.ReadCloser, error) {
	name, fileOnly := strings.CutPrefix(identifier, filePrefix)

	// First, try as file.
	f, err := openFile(name)
	if err == nil {
		return f, nil
	}
	if fileOnly {
		return nil, &NotFoundErr{Identifier: identifier, Err: err}
	}

	// Then, try as namespace/path packaged resource.
	namespace, rel, ok := strings.Cut(name, "/")
	if !ok || b.resolver == nil {
		return nil, &NotFoundErr{Identifier: identifier, Err: err}
	}
	r, resolveErr := b.resolver.Open(namespace, rel)
	if resolveErr != nil {
		return nil, &NotFoundErr{Identifier: identifier, Err: resolveErr}
	}
	return r, nil
}

// openFile opens regular file, directories are reported as open failure.
func openFile(name string) (*os.File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if stat.IsDir() {
		_ = f.Close()
		return nil, &fs.PathError{Op: "open", Path: name, Err: syscall.EISDIR}
	}
	return f, nil
}

func (b *BlockLoader) loadLocal(identifier string, offset, length int64) (Stream, error) {
	f, err := b.open(identifier)
	if err != nil {
		return nil, err
	}
	if offset > 0 {
		if err := seek(f, offset); err != nil {
			_ = f.Close()
			return nil, errors.Wrap(err, "seek")
		}
	}

	s := NewStream(f)
	if length >= 0 {
		return NewLimitReader(s, length), nil
	}
	return s, nil
}

// seek moves r to absolute offset, discarding data if r is not seekable.
func seek(r io.Reader, offset int64) error {
	if s, ok := r.(io.Seeker); ok {
		_, err := s.Seek(offset, io.SeekStart)
		return err
	}
	if _, err := io.CopyN(io.Discard, r, offset); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (b *BlockLoader) loadHTTP(ctx context.Context, u string, offset, length int64) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Range", RangeHeader(offset, length))
	if b.cookies != nil {
		// Fresh token for every request.
		req.Header.Set("Cookie", b.cookies.Make(""))
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, &TransportErr{URL: u, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, &TransportErr{URL: u, StatusCode: resp.StatusCode}
	}

	s := NewStream(resp.Body)
	if b.limitHTTP && length >= 0 {
		return NewLimitReader(s, length), nil
	}
	return s, nil
}
