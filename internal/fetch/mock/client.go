package mock

import (
	"context"
	"sync"

	"github.com/kitbuilder587/imgrelay/internal/domain"
)

// Fetcher - фейковый fetch.Fetcher, отдает заранее заданную картинку.
type Fetcher struct {
	Image *domain.Image
	Error error

	CallCount int
	LastURL   string

	mu sync.Mutex
}

func New() *Fetcher {
	return &Fetcher{}
}

func (f *Fetcher) WithImage(contentType string, data []byte) *Fetcher {
	f.Image = &domain.Image{ContentType: contentType, Data: data}
	return f
}

func (f *Fetcher) WithError(err error) *Fetcher {
	f.Error = err
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CallCount++
	f.LastURL = url

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Error != nil {
		return nil, f.Error
	}
	if f.Image == nil {
		return nil, domain.ErrDownloadFailed
	}

	img := *f.Image
	img.SourceURL = url
	return &img, nil
}

func (f *Fetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CallCount
}
