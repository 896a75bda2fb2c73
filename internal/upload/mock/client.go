package mock

import (
	"context"
	"sync"

	"github.com/kitbuilder587/imgrelay/internal/domain"
)

// Publisher - фейковый upload.Publisher.
type Publisher struct {
	URL   string
	Error error

	CallCount      int
	LastImage      *domain.Image
	LastCredential string

	mu sync.Mutex
}

func New() *Publisher {
	return &Publisher{}
}

func (p *Publisher) WithURL(url string) *Publisher {
	p.URL = url
	return p
}

func (p *Publisher) WithError(err error) *Publisher {
	p.Error = err
	return p
}

func (p *Publisher) Publish(ctx context.Context, img *domain.Image, credential string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CallCount++
	p.LastImage = img
	p.LastCredential = credential

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.Error != nil {
		return "", p.Error
	}
	if p.URL == "" {
		return "", domain.ErrUploadFailed
	}
	return p.URL, nil
}

func (p *Publisher) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CallCount
}
