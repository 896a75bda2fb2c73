package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kitbuilder587/imgrelay/internal/domain"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 32 << 20
)

// Fetcher скачивает найденную картинку целиком в память.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*domain.Image, error)
}

type Config struct {
	Timeout  time.Duration
	MaxBytes int64
}

type Client struct {
	http     *resty.Client
	maxBytes int64
	logger   *zap.Logger
}

var _ Fetcher = (*Client)(nil)

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	return &Client{
		http: resty.New().
			SetTimeout(cfg.Timeout).
			SetRetryCount(0),
		maxBytes: cfg.MaxBytes,
		logger:   logger,
	}
}

// Fetch принимает только 200 с Content-Type на "image", любая другая ситуация - ErrDownloadFailed.
func (c *Client) Fetch(ctx context.Context, url string) (*domain.Image, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err)
	}
	body := resp.RawBody()
	defer body.Close()

	contentType := resp.Header().Get("Content-Type")
	if resp.StatusCode() != http.StatusOK || !domain.IsImageContentType(contentType) {
		return nil, fmt.Errorf("%w: status %d, content type %q", domain.ErrDownloadFailed, resp.StatusCode(), contentType)
	}

	// читаем на байт больше лимита, чтобы отличить "ровно лимит" от "больше"
	data, err := io.ReadAll(io.LimitReader(body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrDownloadFailed, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrDownloadFailed, c.maxBytes)
	}

	// решение принимаем по заголовку, сигнатуру только сверяем
	detected := mimetype.Detect(data).String()
	if !domain.IsImageContentType(detected) {
		c.logger.Warn("downloaded body does not look like an image",
			zap.String("url", url),
			zap.String("content_type", contentType),
			zap.String("detected_type", detected),
		)
	}

	c.logger.Debug("image downloaded",
		zap.String("url", url),
		zap.String("content_type", contentType),
		zap.String("detected_type", detected),
		zap.Int("bytes", len(data)),
	)

	return &domain.Image{
		SourceURL:    url,
		ContentType:  contentType,
		DetectedType: detected,
		Data:         data,
	}, nil
}
