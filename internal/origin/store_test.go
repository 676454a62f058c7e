package origin

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	noopMeter "go.opentelemetry.io/otel/metric/noop"
	noopTracer "go.opentelemetry.io/otel/trace/noop"
)

func newStore(t *testing.T, files map[string]string) *Store {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	}
	store, err := NewStore(dir, noopTracer.NewTracerProvider(), noopMeter.NewMeterProvider())
	require.NoError(t, err)
	return store
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, map[string]string{
		"warcs/a.warc": "hello, world.",
	})

	block, err := store.Open(ctx, "warcs/a.warc")
	require.NoError(t, err)
	require.Equal(t, int64(13), block.Info().Size())

	_, err = block.Seek(7, io.SeekStart)
	require.NoError(t, err)
	data, err := io.ReadAll(block)
	require.NoError(t, err)
	require.Equal(t, "world.", string(data))
	require.NoError(t, block.Close())

	for _, name := range []string{"missing", "warcs", "../missing"} {
		_, err = store.Open(ctx, name)
		var nf *FileNotFoundErr
		require.ErrorAs(t, err, &nf, name)
	}
}

func TestStorePathEscape(t *testing.T) {
	store := newStore(t, nil)
	require.Equal(t, filepath.Join(store.dir, "etc", "passwd"), store.path("../../etc/passwd"))
}

type requestKey struct{}

func TestStoreBlockContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), requestKey{}, "request")
	store := newStore(t, map[string]string{"blob.bin": "data"})

	block, err := store.Open(ctx, "blob.bin")
	require.NoError(t, err)
	t.Cleanup(func() { _ = block.Close() })
	require.True(t, block.ctx == ctx, "block must use request context, not span context")
}
