package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kitbuilder587/imgrelay/internal/config"
	"github.com/kitbuilder587/imgrelay/internal/fetch"
	"github.com/kitbuilder587/imgrelay/internal/metrics"
	"github.com/kitbuilder587/imgrelay/internal/search/bing"
	"github.com/kitbuilder587/imgrelay/internal/service"
	"github.com/kitbuilder587/imgrelay/internal/upload/imgbb"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "imgrelay: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "imgrelay",
	Short: "Search an image on Bing and re-host it on imgbb",
	Long: `imgrelay finds the first JPEG/PNG image for a keyword on Bing Images,
downloads it and uploads it to imgbb, returning the hosted URL and a
markdown embed.

Without a subcommand it runs the HTTP server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(getCmd)
}

// setup читает .env и окружение, поднимает логгер.
func setup() (*config.Config, *zap.Logger, error) {
	// .env необязателен, переменные окружения важнее
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func buildService(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) service.ImageService {
	locator := bing.New(bing.Config{
		BaseURL:      cfg.Search.BaseURL,
		UserAgent:    cfg.Search.UserAgent,
		Referer:      cfg.Search.Referer,
		Timeout:      cfg.Search.Timeout,
		ProbeTimeout: cfg.Search.ProbeTimeout,
	}, logger, bing.WithMetrics(m))

	fetcher := fetch.New(fetch.Config{
		Timeout:  cfg.Download.Timeout,
		MaxBytes: cfg.Download.MaxBytes,
	}, logger)

	publisher := imgbb.New(imgbb.Config{
		BaseURL:    cfg.Upload.BaseURL,
		Timeout:    cfg.Upload.Timeout,
		Expiration: cfg.Upload.Expiration,
	}, logger)

	return service.NewImageService(service.ImageServiceDeps{
		Locator:   locator,
		Fetcher:   fetcher,
		Publisher: publisher,
		Logger:    logger,
		Metrics:   m,
	})
}
