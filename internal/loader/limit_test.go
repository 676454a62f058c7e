package loader

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func stringStream(s string) Stream {
	return NewStream(io.NopCloser(strings.NewReader(s)))
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestLimitReader(t *testing.T) {
	lr := NewLimitReader(stringStream("hello, world."), 5)
	data, err := io.ReadAll(lr)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
	require.Zero(t, lr.Remaining())

	n, err := lr.Read(make([]byte, 10))
	require.ErrorIs(t, err, io.EOF)
	require.Zero(t, n)
}

func TestLimitReaderShortSource(t *testing.T) {
	lr := NewLimitReader(stringStream("abc"), 10)
	data, err := io.ReadAll(lr)
	require.NoError(t, err)
	require.Equal(t, "abc", string(data))
	require.Equal(t, int64(7), lr.Remaining())
}

func TestLimitReaderZero(t *testing.T) {
	lr := NewLimitReader(stringStream("hello"), 0)
	buf := make([]byte, 100)
	n, err := lr.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "h", string(buf[:n]))

	_, err = lr.Read(buf)
	require.ErrorIs(t, err, io.EOF)
}

func TestLimitReaderReadLine(t *testing.T) {
	lr := NewLimitReader(stringStream("line1\nline2\nline3\n"), 8)

	line, err := lr.ReadLine(0)
	require.NoError(t, err)
	require.Equal(t, "line1\n", string(line))

	line, err = lr.ReadLine(0)
	require.NoError(t, err)
	require.Equal(t, "li", string(line), "budget must cut the line")

	_, err = lr.ReadLine(0)
	require.ErrorIs(t, err, io.EOF)
}

func TestLimitReaderReadLineSize(t *testing.T) {
	lr := NewLimitReader(stringStream("line1\nline2\n"), 100)

	line, err := lr.ReadLine(3)
	require.NoError(t, err)
	require.Equal(t, "lin", string(line))
	require.Equal(t, int64(97), lr.Remaining())

	line, err = lr.ReadLine(10)
	require.NoError(t, err)
	require.Equal(t, "e1\n", string(line))
	require.Equal(t, int64(94), lr.Remaining())
}

func TestLimitReaderClose(t *testing.T) {
	c := &closeTracker{Reader: strings.NewReader("data")}
	lr := NewLimitReader(NewStream(c), 2)
	require.NoError(t, lr.Close())
	require.True(t, c.closed)
}

func TestWrapStream(t *testing.T) {
	s := stringStream("0123456789")
	for _, length := range []string{"", "abc", "0", "-5", "1.5"} {
		require.Same(t, s, WrapStream(s, length), "length %q", length)
	}

	wrapped := WrapStream(s, "50")
	lr, ok := wrapped.(*LimitReader)
	require.True(t, ok)
	require.Equal(t, int64(50), lr.Remaining())

	lr, ok = WrapStream(stringStream("0123456789"), "4").(*LimitReader)
	require.True(t, ok)
	data, err := io.ReadAll(lr)
	require.NoError(t, err)
	require.Equal(t, "0123", string(data))
}
