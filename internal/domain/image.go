package domain

import (
	"fmt"
	"strings"
)

// форматы, которые принимаем после HEAD-пробы
var supportedFormats = []string{"jpeg", "jpg", "png"}

// ImageRequest - параметры как пришли от клиента, пустые строки допустимы.
type ImageRequest struct {
	Query      string
	Credential string
}

// Candidate - одна запись из выдачи поиска. Err != nil значит запись не
// распарсилась и ее надо пропустить.
type Candidate struct {
	Position int
	URL      string
	Err      error
}

func (c Candidate) Usable() bool {
	return c.Err == nil && c.URL != ""
}

type Image struct {
	SourceURL   string
	ContentType string
	// тип по сигнатуре байтов, только для логов и метрик
	DetectedType string
	Data         []byte
}

func (i *Image) Size() int {
	return len(i.Data)
}

type PublishedResult struct {
	Query string
	URL   string
}

func (p *PublishedResult) MarkdownEmbed() string {
	return MarkdownEmbed(p.Query, p.URL)
}

func MarkdownEmbed(alt, url string) string {
	return fmt.Sprintf("![%s](%s)", alt, url)
}

// IsSupportedFormat - подстрочная проверка с учетом регистра, "image/JPEG" не пройдет.
func IsSupportedFormat(contentType string) bool {
	for _, f := range supportedFormats {
		if strings.Contains(contentType, f) {
			return true
		}
	}
	return false
}

func IsImageContentType(contentType string) bool {
	return strings.HasPrefix(contentType, "image")
}
