package search

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultProbeTimeout = 5 * time.Second

// HeadProber проверяет кандидата HEAD-запросом без редиректов.
type HeadProber struct {
	client *resty.Client
}

func NewHeadProber(timeout time.Duration) *HeadProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetRedirectPolicy(resty.NoRedirectPolicy())

	return &HeadProber{client: client}
}

func (p *HeadProber) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		Head(url)
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", url, err)
	}

	return &ProbeResult{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
	}, nil
}
