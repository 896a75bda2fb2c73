package bing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/kitbuilder587/imgrelay/internal/domain"
)

const (
	resultClass = "iusc"
	metaAttr    = "m"
)

var errNoMetadata = errors.New("result has no metadata attribute")

// Extractor разбирает выдачу Bing Images: <a class="iusc" m='{"murl":...}'>.
type Extractor struct{}

type resultMeta struct {
	MURL string `json:"murl"`
}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(page []byte) ([]domain.Candidate, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	var candidates []domain.Candidate
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, resultClass) {
			c := parseResult(n)
			c.Position = len(candidates)
			candidates = append(candidates, c)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return candidates, nil
}

func parseResult(n *html.Node) domain.Candidate {
	raw, ok := attr(n, metaAttr)
	if !ok {
		return domain.Candidate{Err: errNoMetadata}
	}

	var meta resultMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return domain.Candidate{Err: fmt.Errorf("decode metadata: %w", err)}
	}
	return domain.Candidate{URL: meta.MURL}
}

func hasClass(n *html.Node, class string) bool {
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
