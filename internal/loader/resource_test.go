package loader

import (
	"io"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestFSResolver(t *testing.T) {
	r := NewFSResolver()
	r.Register("app", fstest.MapFS{
		"static/index.txt": {Data: []byte("index")},
	})

	f, err := r.Open("app", "static/index.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Equal(t, "index", string(data))

	_, err = r.Open("app", "static/missing.txt")
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, err = r.Open("other", "static/index.txt")
	var nsErr *NamespaceNotFoundErr
	require.ErrorAs(t, err, &nsErr)

	// Re-registration replaces file system.
	r.Register("app", fstest.MapFS{})
	_, err = r.Open("app", "static/index.txt")
	require.ErrorIs(t, err, fs.ErrNotExist)
}
