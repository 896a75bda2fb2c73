package search

import (
	"context"
	"net/http"

	"github.com/kitbuilder587/imgrelay/internal/domain"
)

// Причины пропуска кандидата, идут в лейбл метрики.
const (
	SkipParseError  = "parse_error"
	SkipEmptyURL    = "empty_url"
	SkipProbeError  = "probe_error"
	SkipProbeStatus = "probe_status"
	SkipUnsupported = "unsupported_type"
)

// Locator находит ровно один URL картинки по ключевому слову.
type Locator interface {
	Locate(ctx context.Context, query string) (string, error)
}

// Extractor достает кандидатов из страницы выдачи в порядке документа.
// Ошибка парсинга отдельной записи кладется в Candidate.Err, а не возвращается.
type Extractor interface {
	Extract(page []byte) ([]domain.Candidate, error)
}

type Prober interface {
	Probe(ctx context.Context, url string) (*ProbeResult, error)
}

type ProbeResult struct {
	StatusCode  int
	ContentType string
}

func (p *ProbeResult) Accepted() bool {
	return p.StatusCode == http.StatusOK && domain.IsSupportedFormat(p.ContentType)
}

// SkipReason - пустая строка, если проба прошла.
func (p *ProbeResult) SkipReason() string {
	if p.StatusCode != http.StatusOK {
		return SkipProbeStatus
	}
	if !domain.IsSupportedFormat(p.ContentType) {
		return SkipUnsupported
	}
	return ""
}
