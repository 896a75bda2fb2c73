package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kitbuilder587/imgrelay/internal/domain"
	fetchMock "github.com/kitbuilder587/imgrelay/internal/fetch/mock"
	"github.com/kitbuilder587/imgrelay/internal/metrics"
	searchMock "github.com/kitbuilder587/imgrelay/internal/search/mock"
	uploadMock "github.com/kitbuilder587/imgrelay/internal/upload/mock"
)

func TestImageService_Process(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF}

	tests := []struct {
		name      string
		locator   *searchMock.Locator
		fetcher   *fetchMock.Fetcher
		publisher *uploadMock.Publisher
		wantURL   string
		wantStage domain.Stage
		wantKind  error
	}{
		{
			name:      "success",
			locator:   searchMock.New().WithURL("https://src.example/cat.jpg"),
			fetcher:   fetchMock.New().WithImage("image/jpeg", jpeg),
			publisher: uploadMock.New().WithURL("https://x/y.jpg"),
			wantURL:   "https://x/y.jpg",
		},
		{
			name:      "no supported image",
			locator:   searchMock.New(),
			fetcher:   fetchMock.New().WithImage("image/jpeg", jpeg),
			publisher: uploadMock.New().WithURL("https://x/y.jpg"),
			wantStage: domain.StageLocate,
			wantKind:  domain.ErrNoSupportedImage,
		},
		{
			name:      "search failed",
			locator:   searchMock.New().WithError(fmt.Errorf("%w: dial tcp: refused", domain.ErrSearchFailed)),
			fetcher:   fetchMock.New().WithImage("image/jpeg", jpeg),
			publisher: uploadMock.New().WithURL("https://x/y.jpg"),
			wantStage: domain.StageLocate,
			wantKind:  domain.ErrSearchFailed,
		},
		{
			name:      "download failed",
			locator:   searchMock.New().WithURL("https://src.example/cat.jpg"),
			fetcher:   fetchMock.New(),
			publisher: uploadMock.New().WithURL("https://x/y.jpg"),
			wantStage: domain.StageFetch,
			wantKind:  domain.ErrDownloadFailed,
		},
		{
			name:      "upload failed",
			locator:   searchMock.New().WithURL("https://src.example/cat.jpg"),
			fetcher:   fetchMock.New().WithImage("image/jpeg", jpeg),
			publisher: uploadMock.New().WithError(fmt.Errorf("%w: success false", domain.ErrUploadFailed)),
			wantStage: domain.StagePublish,
			wantKind:  domain.ErrUploadFailed,
		},
		{
			name:      "raw fetch error mapped to stage kind",
			locator:   searchMock.New().WithURL("https://src.example/cat.jpg"),
			fetcher:   fetchMock.New().WithError(errors.New("connection reset")),
			publisher: uploadMock.New().WithURL("https://x/y.jpg"),
			wantStage: domain.StageFetch,
			wantKind:  domain.ErrDownloadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewImageService(ImageServiceDeps{
				Locator:   tt.locator,
				Fetcher:   tt.fetcher,
				Publisher: tt.publisher,
				Logger:    zap.NewNop(),
			})

			res, err := svc.Process(context.Background(), &domain.ImageRequest{Query: "cat", Credential: "key"})

			if tt.wantKind != nil {
				var perr *domain.PipelineError
				if !errors.As(err, &perr) {
					t.Fatalf("Process() error = %T %v, want *domain.PipelineError", err, err)
				}
				if perr.Stage != tt.wantStage {
					t.Errorf("Stage = %q, want %q", perr.Stage, tt.wantStage)
				}
				if !errors.Is(err, tt.wantKind) {
					t.Errorf("Process() error = %v, want %v", err, tt.wantKind)
				}
				if err.Error() != tt.wantKind.Error() {
					t.Errorf("Error() = %q, want %q", err.Error(), tt.wantKind.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("Process() unexpected error = %v", err)
			}
			if res.URL != tt.wantURL || res.Query != "cat" {
				t.Errorf("Process() = %+v", res)
			}
			if res.MarkdownEmbed() != "![cat](https://x/y.jpg)" {
				t.Errorf("MarkdownEmbed() = %q", res.MarkdownEmbed())
			}
		})
	}
}

func TestImageService_StopsAfterFailedStage(t *testing.T) {
	loc := searchMock.New()
	fetcher := fetchMock.New().WithImage("image/png", []byte{1})
	pub := uploadMock.New().WithURL("https://x/y.png")

	svc := NewImageService(ImageServiceDeps{Locator: loc, Fetcher: fetcher, Publisher: pub})

	if _, err := svc.Process(context.Background(), &domain.ImageRequest{Query: "cat", Credential: "key"}); err == nil {
		t.Fatal("Process() should fail")
	}
	if fetcher.Calls() != 0 || pub.Calls() != 0 {
		t.Errorf("fetch calls = %d, publish calls = %d, want 0", fetcher.Calls(), pub.Calls())
	}
}

func TestImageService_PassesDataThrough(t *testing.T) {
	loc := searchMock.New().WithURL("https://src.example/dog.png")
	fetcher := fetchMock.New().WithImage("image/png", []byte("png-bytes"))
	pub := uploadMock.New().WithURL("https://x/dog.png")

	svc := NewImageService(ImageServiceDeps{Locator: loc, Fetcher: fetcher, Publisher: pub})

	if _, err := svc.Process(context.Background(), &domain.ImageRequest{Query: "dog", Credential: "k1"}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if loc.LastQuery != "dog" {
		t.Errorf("LastQuery = %q", loc.LastQuery)
	}
	if fetcher.LastURL != "https://src.example/dog.png" {
		t.Errorf("LastURL = %q", fetcher.LastURL)
	}
	if pub.LastCredential != "k1" || string(pub.LastImage.Data) != "png-bytes" {
		t.Errorf("publisher got credential %q, data %q", pub.LastCredential, pub.LastImage.Data)
	}
}

func TestImageService_EmptyValues(t *testing.T) {
	loc := searchMock.New().WithURL("https://src.example/cat.jpg")
	pub := uploadMock.New().WithError(domain.ErrUploadFailed)
	svc := NewImageService(ImageServiceDeps{
		Locator:   loc,
		Fetcher:   fetchMock.New().WithImage("image/jpeg", []byte{0xFF, 0xD8}),
		Publisher: pub,
	})

	// пустые строки не отсекаются, решают поиск и хостинг
	_, err := svc.Process(context.Background(), &domain.ImageRequest{Query: "", Credential: ""})
	if !errors.Is(err, domain.ErrUploadFailed) {
		t.Errorf("Process() error = %v, want ErrUploadFailed", err)
	}
	if loc.Calls() != 1 || loc.LastQuery != "" {
		t.Errorf("locator calls = %d, query = %q", loc.Calls(), loc.LastQuery)
	}
	if pub.Calls() != 1 || pub.LastCredential != "" {
		t.Errorf("publisher calls = %d, credential = %q", pub.Calls(), pub.LastCredential)
	}
}

func TestImageService_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	svc := NewImageService(ImageServiceDeps{
		Locator:   searchMock.New().WithURL("https://src.example/cat.jpg"),
		Fetcher:   fetchMock.New().WithImage("image/jpeg", []byte{1, 2, 3}),
		Publisher: uploadMock.New().WithError(domain.ErrUploadFailed),
		Metrics:   m,
	})

	svc.Process(context.Background(), &domain.ImageRequest{Query: "cat", Credential: "key"})

	if got := testutil.ToFloat64(m.StageTotal.WithLabelValues("locate", "success")); got != 1 {
		t.Errorf("locate success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StageTotal.WithLabelValues("publish", "error")); got != 1 {
		t.Errorf("publish error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("requests error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RequestsInFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
}

func TestImageService_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewImageService(ImageServiceDeps{
		Locator:   searchMock.New().WithURL("https://src.example/cat.jpg"),
		Fetcher:   fetchMock.New().WithImage("image/jpeg", []byte{1}),
		Publisher: uploadMock.New().WithURL("https://x/y.jpg"),
	})

	_, err := svc.Process(ctx, &domain.ImageRequest{Query: "cat", Credential: "key"})
	if !errors.Is(err, domain.ErrDownloadFailed) {
		t.Errorf("Process() error = %v, want ErrDownloadFailed", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cause should keep context.Canceled, got %v", err)
	}
}
