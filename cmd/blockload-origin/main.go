package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ernado/blockload/internal/config"
	"github.com/ernado/blockload/internal/loader"
	"github.com/ernado/blockload/internal/origin"
)

func main() {
	configIdentifier := flag.String("config", "", "configuration document (path, package resource or URL)")
	flag.Parse()

	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		ctx = zctx.WithOpenTelemetryZap(ctx)
		if err := config.LoadEnv(); err != nil {
			return errors.Wrap(err, "load env")
		}

		resolver := loader.NewFSResolver()
		config.Register(resolver)
		l := loader.New(
			loader.WithResolver(resolver),
			loader.WithTracerProvider(m.TracerProvider()),
		)
		cfg, err := config.Load(ctx, l, *configIdentifier)
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
			return errors.Wrap(err, "apply env")
		}

		store, err := origin.NewStore(cfg.Origin.Dir, m.TracerProvider(), m.MeterProvider())
		if err != nil {
			return errors.Wrap(err, "init store")
		}
		verifier := cfg.Cookie.Verifier()
		if verifier == nil {
			lg.Warn("Cookie secret is not set, serving without authentication")
		}
		handler := origin.NewHandler(store, verifier)

		// Initialize and instrument http server.
		srv := &http.Server{
			Addr:        cfg.Origin.Addr,
			BaseContext: func(listener net.Listener) context.Context { return ctx },
			Handler: otelhttp.NewHandler(handler, "",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
				otelhttp.WithPropagators(m.TextMapPropagator()),
				otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
					if r.URL.Path == "/health" {
						return "http.Health"
					}
					return "http.BlocksGet"
				}),
			),
		}
		go func() {
			// Graceful shutdown.
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		lg.Info("Server started",
			zap.String("addr", srv.Addr),
			zap.String("dir", cfg.Origin.Dir),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen and serve")
		}
		return nil
	},
		app.WithServiceName("blockload.origin"),
	)
}
