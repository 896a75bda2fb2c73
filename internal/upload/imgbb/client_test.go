package imgbb

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/imgrelay/internal/domain"
)

func testImage() *domain.Image {
	return &domain.Image{
		SourceURL:   "https://example.com/cat.jpg",
		ContentType: "image/jpeg",
		Data:        []byte{0xFF, 0xD8, 0xFF, 0x00, 0x01},
	}
}

func TestClient_Publish(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		response   string
		wantURL    string
		wantErr    error
	}{
		{
			name:       "success",
			statusCode: http.StatusOK,
			response:   `{"data":{"id":"abc","url":"https://i.ibb.co/abc/cat.jpg"},"success":true,"status":200}`,
			wantURL:    "https://i.ibb.co/abc/cat.jpg",
		},
		{
			name:       "numeric success",
			statusCode: http.StatusOK,
			response:   `{"success":1,"data":{"url":"https://i.ibb.co/n/cat.jpg"}}`,
			wantURL:    "https://i.ibb.co/n/cat.jpg",
		},
		{
			name:       "numeric zero",
			statusCode: http.StatusOK,
			response:   `{"success":0,"data":{"url":"https://i.ibb.co/n/cat.jpg"}}`,
			wantErr:    domain.ErrUploadFailed,
		},
		{
			name:       "string success",
			statusCode: http.StatusOK,
			response:   `{"success":"true","data":{"url":"https://i.ibb.co/n/cat.jpg"}}`,
			wantErr:    domain.ErrUploadFailed,
		},
		{
			name:       "success false",
			statusCode: http.StatusOK,
			response:   `{"success":false}`,
			wantErr:    domain.ErrUploadFailed,
		},
		{
			name:       "bad key",
			statusCode: http.StatusBadRequest,
			response:   `{"status_code":400,"error":{"message":"Invalid API v1 key.","code":100},"status_txt":"Bad Request"}`,
			wantErr:    domain.ErrUploadFailed,
		},
		{
			name:       "success flag with error status",
			statusCode: http.StatusInternalServerError,
			response:   `{"success":true,"data":{"url":"https://i.ibb.co/x.jpg"}}`,
			wantErr:    domain.ErrUploadFailed,
		},
		{
			name:       "not json",
			statusCode: http.StatusOK,
			response:   `<html>maintenance</html>`,
			wantErr:    domain.ErrUploadFailed,
		},
		{
			name:       "no url",
			statusCode: http.StatusOK,
			response:   `{"success":true,"data":{}}`,
			wantErr:    domain.ErrUploadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := New(Config{BaseURL: server.URL, Timeout: 5 * time.Second}, zap.NewNop())

			got, err := client.Publish(context.Background(), testImage(), "secret")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Publish() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("Publish() unexpected error = %v", err)
			}
			if got != tt.wantURL {
				t.Errorf("Publish() = %q, want %q", got, tt.wantURL)
			}
		})
	}
}

func TestClient_Publish_Form(t *testing.T) {
	img := testImage()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/1/upload" {
			t.Errorf("path = %s, want /1/upload", r.URL.Path)
		}
		if r.URL.Query().Has("expiration") {
			t.Error("expiration should not be sent by default")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		if got := r.PostForm.Get("key"); got != "secret" {
			t.Errorf("key = %q, want secret", got)
		}
		decoded, err := base64.StdEncoding.DecodeString(r.PostForm.Get("image"))
		if err != nil {
			t.Fatalf("image is not base64: %v", err)
		}
		if string(decoded) != string(img.Data) {
			t.Errorf("image = %v, want %v", decoded, img.Data)
		}

		w.Write([]byte(`{"success":true,"data":{"url":"https://i.ibb.co/ok.jpg"}}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL + "/"}, zap.NewNop())
	if _, err := client.Publish(context.Background(), img, "secret"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func TestClient_Publish_Expiration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("expiration"); got != "600" {
			t.Errorf("expiration = %q, want 600", got)
		}
		w.Write([]byte(`{"success":true,"data":{"url":"https://i.ibb.co/ok.jpg"}}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Expiration: 600}, zap.NewNop())
	if _, err := client.Publish(context.Background(), testImage(), "secret"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func TestClient_Publish_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(Config{BaseURL: url}, zap.NewNop())
	_, err := client.Publish(context.Background(), testImage(), "secret")
	if !errors.Is(err, domain.ErrUploadFailed) {
		t.Errorf("Publish() error = %v, want ErrUploadFailed", err)
	}
}

func TestClient_Publish_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"url":"https://i.ibb.co/ok.jpg"}}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := New(Config{BaseURL: server.URL}, zap.NewNop())
	if _, err := client.Publish(ctx, testImage(), "secret"); !errors.Is(err, domain.ErrUploadFailed) {
		t.Errorf("Publish() error = %v, want ErrUploadFailed", err)
	}
}
