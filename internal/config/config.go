// Package config loads blockload configuration documents.
package config

import (
	"context"
	"embed"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ernado/blockload/internal/cookie"
	"github.com/ernado/blockload/internal/loader"
)

// Namespace of packaged resources of this package.
const Namespace = "blockload"

// DefaultIdentifier of embedded default configuration.
const DefaultIdentifier = Namespace + "/defaults.yaml"

//go:embed defaults.yaml
var resources embed.FS

// Register packaged resources in resolver.
func Register(r *loader.FSResolver) {
	r.Register(Namespace, resources)
}

type Origin struct {
	Addr string `yaml:"addr"`
	Dir  string `yaml:"dir"`
}

type Cookie struct {
	Name   string        `yaml:"name"`
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type Loader struct {
	LimitHTTP bool `yaml:"limit_http"`
}

type Config struct {
	Origin Origin `yaml:"origin"`
	Cookie Cookie `yaml:"cookie"`
	Loader Loader `yaml:"loader"`
}

// Default returns embedded default configuration.
func Default() (*Config, error) {
	data, err := resources.ReadFile("defaults.yaml")
	if err != nil {
		return nil, errors.Wrap(err, "read defaults")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "decode defaults")
	}
	return &cfg, nil
}

// Load configuration document by identifier using l, on top of defaults.
// Empty identifier loads DefaultIdentifier.
func Load(ctx context.Context, l *loader.BlockLoader, identifier string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if identifier == "" {
		identifier = DefaultIdentifier
	}
	s, err := l.Load(ctx, identifier, 0, -1)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}
	defer func() { _ = s.Close() }()

	// Empty document keeps defaults.
	if err := yaml.NewDecoder(s).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "decode %s", identifier)
	}
	return cfg, nil
}

// LoadEnv loads .env files, missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "load %s", f)
		}
	}
	return nil
}

// ApplyEnv overrides configuration from BLOCKLOAD_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("BLOCKLOAD_ORIGIN_ADDR"); ok {
		c.Origin.Addr = v
	}
	if v, ok := lookup("BLOCKLOAD_ORIGIN_DIR"); ok {
		c.Origin.Dir = v
	}
	if v, ok := lookup("BLOCKLOAD_COOKIE_NAME"); ok {
		c.Cookie.Name = v
	}
	if v, ok := lookup("BLOCKLOAD_COOKIE_SECRET"); ok {
		c.Cookie.Secret = v
	}
	if v, ok := lookup("BLOCKLOAD_COOKIE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "BLOCKLOAD_COOKIE_TTL")
		}
		c.Cookie.TTL = d
	}
	if v, ok := lookup("BLOCKLOAD_LIMIT_HTTP"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "BLOCKLOAD_LIMIT_HTTP")
		}
		c.Loader.LimitHTTP = b
	}
	return nil
}

// Maker returns cookie maker, or nil if no secret is configured.
func (c Cookie) Maker() cookie.Maker {
	if c.Secret == "" {
		return nil
	}
	return cookie.NewHMACMaker([]byte(c.Secret), c.Name, c.TTL)
}

// Verifier returns cookie verifier, or nil if no secret is configured.
func (c Cookie) Verifier() *cookie.Verifier {
	if c.Secret == "" {
		return nil
	}
	return cookie.NewVerifier([]byte(c.Secret), c.Name)
}

// LoaderOptions returns BlockLoader options of configuration.
func (c *Config) LoaderOptions() []loader.Option {
	opts := []loader.Option{
		loader.WithLimitHTTP(c.Loader.LimitHTTP),
	}
	if m := c.Cookie.Maker(); m != nil {
		opts = append(opts, loader.WithCookieMaker(m))
	}
	return opts
}
