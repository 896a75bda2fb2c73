package bing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kitbuilder587/imgrelay/internal/domain"
	"github.com/kitbuilder587/imgrelay/internal/metrics"
	"github.com/kitbuilder587/imgrelay/internal/search"
)

const searchPath = "/images/search"

type Config struct {
	BaseURL   string
	UserAgent string
	Referer   string
	// 0 - без таймаута
	Timeout      time.Duration
	ProbeTimeout time.Duration
}

type Client struct {
	cfg       Config
	http      *resty.Client
	extractor search.Extractor
	prober    search.Prober
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

var _ search.Locator = (*Client)(nil)

type Option func(*Client)

func WithExtractor(e search.Extractor) Option {
	return func(c *Client) { c.extractor = e }
}

func WithProber(p search.Prober) Option {
	return func(c *Client) { c.prober = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func New(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.bing.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0"
	}
	if cfg.Referer == "" {
		cfg.Referer = "https://www.bing.com/"
	}

	// без Referer своего домена Bing отдает заглушку вместо выдачи
	httpClient := resty.New().
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Referer", cfg.Referer).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)

	c := &Client{
		cfg:       cfg,
		http:      httpClient,
		extractor: NewExtractor(),
		prober:    search.NewHeadProber(cfg.ProbeTimeout),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Locate(ctx context.Context, query string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		Get(c.cfg.BaseURL + searchPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSearchFailed, err)
	}

	// статус страницы не проверяем, парсим что пришло
	if !resp.IsSuccess() {
		c.logger.Warn("search page returned non-success status",
			zap.Int("status", resp.StatusCode()),
		)
	}

	candidates, err := c.extractor.Extract(resp.Body())
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSearchFailed, err)
	}

	c.logger.Debug("search results parsed",
		zap.Int("candidates", len(candidates)),
		zap.Int("page_bytes", len(resp.Body())),
	)

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if reason := c.check(ctx, cand); reason != "" {
			c.skip(cand, reason)
			continue
		}

		c.logger.Debug("candidate accepted",
			zap.Int("position", cand.Position),
			zap.String("url", cand.URL),
		)
		return cand.URL, nil
	}

	return "", domain.ErrNoSupportedImage
}

// check возвращает причину отказа или "" если кандидат подходит.
func (c *Client) check(ctx context.Context, cand domain.Candidate) string {
	if cand.Err != nil {
		return search.SkipParseError
	}
	if cand.URL == "" {
		return search.SkipEmptyURL
	}

	res, err := c.prober.Probe(ctx, cand.URL)
	if err != nil {
		c.logger.Debug("probe failed", zap.String("url", cand.URL), zap.Error(err))
		return search.SkipProbeError
	}
	return res.SkipReason()
}

func (c *Client) skip(cand domain.Candidate, reason string) {
	fields := []zap.Field{
		zap.Int("position", cand.Position),
		zap.String("reason", reason),
	}
	if cand.URL != "" {
		fields = append(fields, zap.String("url", cand.URL))
	}
	if cand.Err != nil {
		fields = append(fields, zap.Error(cand.Err))
	}
	c.logger.Debug("candidate skipped", fields...)

	if c.metrics != nil {
		c.metrics.RecordCandidateSkipped(reason)
	}
}
