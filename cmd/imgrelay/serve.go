package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/imgrelay/internal/httpapi"
	"github.com/kitbuilder587/imgrelay/internal/metrics"
	"github.com/kitbuilder587/imgrelay/internal/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	opts := httpapi.Options{
		Addr:            cfg.Addr(),
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		StaticDir:       cfg.HTTP.StaticDir,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		TrustedProxies:  cfg.HTTP.TrustedProxies,
		Service:         buildService(cfg, logger, m),
		Logger:          logger,
		Metrics:         m,
		MetricsPath:     cfg.Metrics.Path,
	}
	if cfg.RateLimit.RequestsPerMinute > 0 {
		opts.Limiter = ratelimit.NewWithContext(ctx, ratelimit.Config{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		})
	}
	metricsSeparate := cfg.Metrics.Enabled && cfg.Metrics.Addr != ""
	if cfg.Metrics.Enabled && !metricsSeparate {
		opts.MetricsHandler = metrics.Handler()
	}

	logger.Info("starting imgrelay",
		zap.String("version", version),
		zap.String("addr", cfg.Addr()),
		zap.String("search_base_url", cfg.Search.BaseURL),
		zap.String("upload_base_url", cfg.Upload.BaseURL),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
		zap.Int("rate_limit_per_minute", cfg.RateLimit.RequestsPerMinute),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpapi.New(opts).Run(gctx)
	})

	if metricsSeparate {
		g.Go(func() error {
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, metrics.Handler())
			return httpapi.RunHTTP(gctx, &http.Server{
				Addr:              cfg.Metrics.Addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}, cfg.HTTP.ShutdownTimeout, logger)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}

	logger.Info("imgrelay stopped")
	return nil
}
