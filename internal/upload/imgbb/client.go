package imgbb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kitbuilder587/imgrelay/internal/domain"
	"github.com/kitbuilder587/imgrelay/internal/upload"
)

const uploadPath = "/1/upload"

type Config struct {
	BaseURL string
	Timeout time.Duration
	// секунды жизни картинки, 0 - бессрочно
	Expiration int
}

type Client struct {
	baseURL    string
	expiration int
	http       *resty.Client
	logger     *zap.Logger
}

var _ upload.Publisher = (*Client)(nil)

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.imgbb.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		expiration: cfg.Expiration,
		http: resty.New().
			SetTimeout(cfg.Timeout).
			SetRetryCount(0),
		logger: logger,
	}
}

type uploadResponse struct {
	Success successFlag `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

// successFlag - true или число 1, все прочее считается неуспехом.
type successFlag bool

func (f *successFlag) UnmarshalJSON(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case bool:
		*f = successFlag(v)
	case float64:
		*f = v == 1
	default:
		*f = false
	}
	return nil
}

// Publish отправляет base64 картинки формой. Ключ в лог не пишем.
func (c *Client) Publish(ctx context.Context, img *domain.Image, credential string) (string, error) {
	req := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"key":   credential,
			"image": base64.StdEncoding.EncodeToString(img.Data),
		})
	if c.expiration > 0 {
		req.SetQueryParam("expiration", strconv.Itoa(c.expiration))
	}

	resp, err := req.Post(c.baseURL + uploadPath)
	if err != nil {
		return "", fmt.Errorf("%w: do request: %v", domain.ErrUploadFailed, err)
	}

	var parsed uploadResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("%w: status %d, decode response: %v", domain.ErrUploadFailed, resp.StatusCode(), err)
	}

	if resp.StatusCode() != http.StatusOK || !parsed.Success {
		return "", fmt.Errorf("%w: status %d, success %t", domain.ErrUploadFailed, resp.StatusCode(), bool(parsed.Success))
	}
	if parsed.Data.URL == "" {
		return "", fmt.Errorf("%w: response without data.url", domain.ErrUploadFailed)
	}

	c.logger.Debug("image uploaded",
		zap.String("url", parsed.Data.URL),
		zap.Int("bytes", img.Size()),
	)

	return parsed.Data.URL, nil
}
