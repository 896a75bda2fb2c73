package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/imgrelay/internal/domain"
)

// Locator - фейковый search.Locator для тестов сервиса и хендлера.
type Locator struct {
	URL   string
	Error error
	Delay time.Duration

	CallCount  int
	LastQuery  string
	AllQueries []string

	mu sync.Mutex
}

func New() *Locator {
	return &Locator{}
}

func (l *Locator) WithURL(url string) *Locator {
	l.URL = url
	return l
}

func (l *Locator) WithError(err error) *Locator {
	l.Error = err
	return l
}

func (l *Locator) WithDelay(delay time.Duration) *Locator {
	l.Delay = delay
	return l
}

func (l *Locator) Locate(ctx context.Context, query string) (string, error) {
	l.mu.Lock()
	l.CallCount++
	l.LastQuery = query
	l.AllQueries = append(l.AllQueries, query)
	delay := l.Delay
	err := l.Error
	url := l.URL
	l.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return "", err
	}

	if url == "" {
		return "", domain.ErrNoSupportedImage
	}

	return url, nil
}

func (l *Locator) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.CallCount
}

func (l *Locator) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.CallCount = 0
	l.LastQuery = ""
	l.AllQueries = nil
}
