package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ernado/blockload/internal/config"
	"github.com/ernado/blockload/internal/loader"
)

type fetcher struct {
	loader   *loader.BlockLoader
	offset   int64
	length   int64
	retries  uint64
	progress bool
}

// permanent reports whether retrying load of err is pointless.
func permanent(err error) bool {
	var nf *loader.NotFoundErr
	if errors.As(err, &nf) {
		return true
	}
	var te *loader.TransportErr
	if errors.As(err, &te) {
		return te.StatusCode >= 400 && te.StatusCode < 500
	}
	return false
}

func (f *fetcher) open(ctx context.Context, identifier string) (loader.Stream, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	return backoff.RetryNotifyWithData(func() (loader.Stream, error) {
		s, err := f.loader.Load(ctx, identifier, f.offset, f.length)
		if err != nil && permanent(err) {
			return nil, backoff.Permanent(err)
		}
		return s, err
	}, backoff.WithContext(backoff.WithMaxRetries(b, f.retries), ctx), func(err error, duration time.Duration) {
		fmt.Fprintf(os.Stderr, "retrying %s in %s: %v\n", identifier, duration, err)
	})
}

// writeFile atomically writes out: data goes to a temporary file which is
// renamed to out only after write and close succeed.
func writeFile(out string, write func(w io.Writer) error) (rerr error) {
	tmp := fmt.Sprintf("%s.%s.part", out, uuid.New().String()[:8])
	file, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "create")
	}
	defer func() {
		if rerr != nil {
			// Cleanup partial file.
			_ = file.Close()
			_ = os.Remove(tmp)
		}
	}()

	if err := write(file); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return errors.Wrap(err, "close")
	}
	if err := os.Rename(tmp, out); err != nil {
		return errors.Wrap(err, "rename")
	}
	return nil
}

// outputPaths maps identifiers to files in dir by base name.
func outputPaths(dir string, identifiers []string) ([]string, error) {
	seen := make(map[string]string, len(identifiers))
	paths := make([]string, 0, len(identifiers))
	for _, identifier := range identifiers {
		name := path.Base(identifier)
		if prev, ok := seen[name]; ok {
			return nil, errors.Errorf("%s and %s have the same output name %q", prev, identifier, name)
		}
		seen[name] = identifier
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

// fetch writes identifier range to out, "-" or empty for stdout.
func (f *fetcher) fetch(ctx context.Context, identifier, out string) error {
	s, err := f.open(ctx, identifier)
	if err != nil {
		return errors.Wrap(err, "load")
	}
	defer func() { _ = s.Close() }()

	copyTo := func(w io.Writer) error {
		if f.progress {
			size := int64(-1)
			if f.length >= 0 {
				size = f.length
			}
			bar := progressbar.NewOptions64(size,
				progressbar.OptionSetWriter(ansi.NewAnsiStderr()),
				progressbar.OptionSetDescription(path.Base(identifier)),
				progressbar.OptionShowBytes(true),
				progressbar.OptionClearOnFinish(),
			)
			defer func() { _ = bar.Close() }()
			w = io.MultiWriter(w, bar)
		}
		if _, err := io.Copy(w, s); err != nil {
			return errors.Wrap(err, "copy")
		}
		return nil
	}
	if out == "" || out == "-" {
		return copyTo(os.Stdout)
	}
	return writeFile(out, copyTo)
}

func parseSize(s string) (int64, error) {
	if s == "" || s == "-1" {
		return -1, nil
	}
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

func run(ctx context.Context) error {
	var arg struct {
		Config       string
		Offset       string
		Length       string
		Out          string
		CookieSecret string
		CookieName   string
		CookieTTL    time.Duration
		LimitHTTP    bool
		Retries      uint64
		Progress     bool
		Parallel     int
	}
	flag.StringVar(&arg.Config, "config", "", "configuration document (path, package resource or URL)")
	flag.StringVar(&arg.Offset, "offset", "0", "offset of range, e.g. 10MB")
	flag.StringVar(&arg.Length, "length", "", "length of range, e.g. 1KiB (defaults to the rest of resource)")
	flag.StringVar(&arg.Out, "out", "-", "output file, or directory if multiple identifiers are given")
	flag.StringVar(&arg.CookieSecret, "cookie-secret", "", "secret for signed cookie (overrides config)")
	flag.StringVar(&arg.CookieName, "cookie-name", "", "name of signed cookie (overrides config)")
	flag.DurationVar(&arg.CookieTTL, "cookie-ttl", 0, "validity of signed cookie (overrides config)")
	flag.BoolVar(&arg.LimitHTTP, "limit-http", false, "limit HTTP responses to requested length")
	flag.Uint64Var(&arg.Retries, "retries", 0, "retries of failed loads")
	flag.BoolVar(&arg.Progress, "progress", false, "show progress bar")
	flag.IntVar(&arg.Parallel, "parallel", 4, "concurrent fetches")
	flag.Parse()

	identifiers := flag.Args()
	if len(identifiers) == 0 {
		return errors.New("identifier is required")
	}
	offset, err := parseSize(arg.Offset)
	if err != nil || offset < 0 {
		return errors.Errorf("invalid offset %q", arg.Offset)
	}
	length, err := parseSize(arg.Length)
	if err != nil {
		return errors.Wrap(err, "parse length")
	}

	if err := config.LoadEnv(); err != nil {
		return errors.Wrap(err, "load env")
	}
	resolver := loader.NewFSResolver()
	config.Register(resolver)
	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	cfg, err := config.Load(ctx, loader.New(
		loader.WithResolver(resolver),
		loader.WithHTTPClient(httpClient),
	), arg.Config)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return errors.Wrap(err, "apply env")
	}
	if arg.CookieSecret != "" {
		cfg.Cookie.Secret = arg.CookieSecret
	}
	if arg.CookieName != "" {
		cfg.Cookie.Name = arg.CookieName
	}
	if arg.CookieTTL != 0 {
		cfg.Cookie.TTL = arg.CookieTTL
	}
	if arg.LimitHTTP {
		cfg.Loader.LimitHTTP = true
	}

	opts := append(cfg.LoaderOptions(),
		loader.WithResolver(resolver),
		loader.WithHTTPClient(httpClient),
	)
	f := &fetcher{
		loader:   loader.New(opts...),
		offset:   offset,
		length:   length,
		retries:  arg.Retries,
		progress: arg.Progress,
	}

	if len(identifiers) == 1 {
		return f.fetch(ctx, identifiers[0], arg.Out)
	}
	if arg.Out == "" || arg.Out == "-" {
		return errors.New("output directory is required for multiple identifiers")
	}
	outs, err := outputPaths(arg.Out, identifiers)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(arg.Out, 0o755); err != nil {
		return errors.Wrap(err, "mkdir")
	}
	// Progress bars of concurrent fetches would interleave.
	f.progress = false

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(arg.Parallel, 1))
	for i, identifier := range identifiers {
		out := outs[i]
		g.Go(func() error {
			if err := f.fetch(ctx, identifier, out); err != nil {
				return errors.Wrapf(err, "fetch %s", identifier)
			}
			return nil
		})
	}
	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		os.Exit(2)
	}
}
