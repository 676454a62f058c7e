package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ernado/blockload/internal/loader"
)

func newLoader() *loader.BlockLoader {
	r := loader.NewFSResolver()
	Register(r)
	return loader.New(loader.WithResolver(r))
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Origin.Addr)
	require.Equal(t, "blockload", cfg.Cookie.Name)
	require.Equal(t, 10*time.Second, cfg.Cookie.TTL)
	require.Nil(t, cfg.Cookie.Maker())
	require.Nil(t, cfg.Cookie.Verifier())
}

func TestLoadPackaged(t *testing.T) {
	cfg, err := Load(context.Background(), newLoader(), "")
	require.NoError(t, err)

	def, err := Default()
	require.NoError(t, err)
	require.Equal(t, def, cfg)
}

func TestLoadFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(name, []byte(`
origin:
  dir: /srv/warcs
cookie:
  secret: s3cr3t
  ttl: 1m
`), 0o644))

	for _, identifier := range []string{name, "file://" + name} {
		cfg, err := Load(context.Background(), newLoader(), identifier)
		require.NoError(t, err)
		require.Equal(t, "/srv/warcs", cfg.Origin.Dir)
		require.Equal(t, ":8080", cfg.Origin.Addr, "default kept")
		require.Equal(t, "s3cr3t", cfg.Cookie.Secret)
		require.Equal(t, time.Minute, cfg.Cookie.TTL)
		require.NotNil(t, cfg.Cookie.Maker())
		require.NotNil(t, cfg.Cookie.Verifier())
		require.Len(t, cfg.LoaderOptions(), 2)
	}
}

func TestLoadEmpty(t *testing.T) {
	name := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(name, nil, 0o644))
	cfg, err := Load(context.Background(), newLoader(), name)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Origin.Addr)
}

func TestLoadHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("origin:\n  addr: \":9090\"\n"))
	}))
	t.Cleanup(server.Close)

	cfg, err := Load(context.Background(), newLoader(), server.URL+"/config.yaml")
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Origin.Addr)
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	_, err := Load(ctx, newLoader(), "file:///nonexistent/config.yaml")
	var nf *loader.NotFoundErr
	require.ErrorAs(t, err, &nf)

	name := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(name, []byte("origin: ["), 0o644))
	_, err = Load(ctx, newLoader(), name)
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	env := map[string]string{
		"BLOCKLOAD_ORIGIN_ADDR":   ":7070",
		"BLOCKLOAD_ORIGIN_DIR":    "/data",
		"BLOCKLOAD_COOKIE_NAME":   "token",
		"BLOCKLOAD_COOKIE_SECRET": "secret",
		"BLOCKLOAD_COOKIE_TTL":    "30s",
		"BLOCKLOAD_LIMIT_HTTP":    "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	require.NoError(t, cfg.ApplyEnv(lookup))
	require.Equal(t, Config{
		Origin: Origin{Addr: ":7070", Dir: "/data"},
		Cookie: Cookie{Name: "token", Secret: "secret", TTL: 30 * time.Second},
		Loader: Loader{LimitHTTP: true},
	}, *cfg)

	env["BLOCKLOAD_COOKIE_TTL"] = "forever"
	require.Error(t, cfg.ApplyEnv(lookup))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(name, []byte("BLOCKLOAD_TEST_VALUE=from-dotenv\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("BLOCKLOAD_TEST_VALUE") })

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), name))
	require.Equal(t, "from-dotenv", os.Getenv("BLOCKLOAD_TEST_VALUE"))
}
