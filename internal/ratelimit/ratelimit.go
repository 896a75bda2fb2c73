package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter - sliding window лимитер на клиента. Ключ - IP соединения,
// каким его видит gin с учетом доверенных прокси.
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

type Config struct {
	RequestsPerMinute int
}

// Decision - итог одной попытки, из него собираются заголовки ответа.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// когда освободится ближайший слот, 0 если слот есть
	RetryAfter time.Duration
}

func New(cfg Config) *Limiter {
	return NewWithContext(context.Background(), cfg)
}

// NewWithContext - фоновая очистка останавливается вместе с ctx.
func NewWithContext(ctx context.Context, cfg Config) *Limiter {
	limit := cfg.RequestsPerMinute
	if limit <= 0 {
		limit = 10
	}

	l := &Limiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   time.Minute,
		now:      time.Now,
	}
	go l.cleanup(ctx)
	return l
}

// Take отмечает запрос клиента, если в окне есть место. Проверка и
// остаток считаются под одной блокировкой.
func (l *Limiter) Take(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	fresh := l.prune(key, now)

	d := Decision{Limit: l.limit}
	if len(fresh) >= l.limit {
		// fresh отсортирован по времени, первый выйдет из окна раньше всех
		d.RetryAfter = fresh[0].Add(l.window).Sub(now)
		return d
	}

	l.requests[key] = append(fresh, now)
	d.Allowed = true
	d.Remaining = l.limit - len(fresh) - 1
	return d
}

// prune выкидывает отметки старше окна. Вызывать под l.mu.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	old := l.requests[key]
	fresh := old[:0]
	for _, t := range old {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) == 0 {
		delete(l.requests, key)
		return nil
	}
	l.requests[key] = fresh
	return fresh
}

func (l *Limiter) cleanup(ctx context.Context) {
	tick := time.NewTicker(5 * time.Minute)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			l.removeStale()
		}
	}
}

func (l *Limiter) removeStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key := range l.requests {
		l.prune(key, now)
	}
}
