package httpapi

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kitbuilder587/imgrelay/internal/metrics"
	"github.com/kitbuilder587/imgrelay/internal/ratelimit"
	"github.com/kitbuilder587/imgrelay/internal/service"
)

const (
	pluginManifest = "ai-plugin.json"
	openAPIDoc     = "openapi.json"
)

type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	StaticDir       string
	CORSOrigins     []string
	// чьим X-Forwarded-For верить, nil - никому
	TrustedProxies []string

	Service service.ImageService
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// nil - лимит не применяется
	Limiter *ratelimit.Limiter
	// не nil - /metrics на основном listener'е
	MetricsHandler http.Handler
	MetricsPath    string
}

type Server struct {
	addr            string
	shutdownTimeout time.Duration
	engine          *gin.Engine
	logger          *zap.Logger
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.StaticDir == "" {
		opts.StaticDir = "static"
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		opts.Logger.Error("invalid trusted proxies, forwarded headers ignored", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}
	engine.Use(gin.Recovery())
	engine.Use(RequestID())
	engine.Use(RequestLogger(opts.Logger))
	engine.Use(cors.New(corsConfig(opts.CORSOrigins)))

	engine.Use(static.Serve("/static", static.LocalFile(opts.StaticDir, false)))

	registerCoreRoutes(engine, opts)

	h := newImageHandler(opts.Service)
	images := engine.Group("")
	if opts.Limiter != nil {
		images.Use(RateLimit(opts.Limiter, opts.Metrics))
	}
	images.GET("/get_image_url", h.GetImageURL)

	return &Server{
		addr:            opts.Addr,
		shutdownTimeout: opts.ShutdownTimeout,
		engine:          engine,
		logger:          opts.Logger,
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run блокируется до отмены ctx, потом гасит сервер в пределах shutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	return RunHTTP(ctx, &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}, s.shutdownTimeout, s.logger)
}

// RunHTTP - общий цикл запуска и graceful shutdown, им же поднимается отдельный listener метрик.
func RunHTTP(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server", zap.String("addr", server.Addr))
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func registerCoreRoutes(engine *gin.Engine, opts Options) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/.well-known/ai-plugin.json", func(c *gin.Context) {
		c.File(filepath.Join(opts.StaticDir, pluginManifest))
	})

	engine.GET("/openapi.json", func(c *gin.Context) {
		c.File(filepath.Join(opts.StaticDir, openAPIDoc))
	})

	if opts.MetricsHandler != nil {
		engine.GET(opts.MetricsPath, gin.WrapH(opts.MetricsHandler))
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader, "Retry-After", RateLimitLimitHeader, RateLimitRemainingHeader},
		MaxAge:        12 * time.Hour,
	}
	// cors.New паникует, если "*" передан вместе с AllowAllOrigins
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
