package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/imgrelay/internal/domain"
	"github.com/kitbuilder587/imgrelay/internal/fetch"
	"github.com/kitbuilder587/imgrelay/internal/metrics"
	"github.com/kitbuilder587/imgrelay/internal/search"
	"github.com/kitbuilder587/imgrelay/internal/upload"
)

type ImageService interface {
	Process(ctx context.Context, req *domain.ImageRequest) (*domain.PublishedResult, error)
}

// ImageServiceDeps - зависимости для ImageService.
type ImageServiceDeps struct {
	Locator   search.Locator
	Fetcher   fetch.Fetcher
	Publisher upload.Publisher
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

type imageService struct {
	locator   search.Locator
	fetcher   fetch.Fetcher
	publisher upload.Publisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewImageService(deps ImageServiceDeps) ImageService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &imageService{
		locator:   deps.Locator,
		fetcher:   deps.Fetcher,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
	}
}

// Process: поиск -> скачивание -> загрузка на хостинг. Любая ошибка наружу
// уходит как *domain.PipelineError, причина только в логах.
func (s *imageService) Process(ctx context.Context, req *domain.ImageRequest) (*domain.PublishedResult, error) {
	startTime := time.Now()

	if s.metrics != nil {
		s.metrics.IncRequestsInFlight()
		defer s.metrics.DecRequestsInFlight()
	}

	logger := s.logger.With(zap.String("query", req.Query))
	logger.Info("processing image request")

	var imageURL string
	err := s.runStage(ctx, logger, domain.StageLocate, func(ctx context.Context) error {
		var err error
		imageURL, err = s.locator.Locate(ctx, req.Query)
		return err
	})
	if err != nil {
		s.recordRequest("error", startTime)
		return nil, err
	}

	var img *domain.Image
	err = s.runStage(ctx, logger, domain.StageFetch, func(ctx context.Context) error {
		var err error
		img, err = s.fetcher.Fetch(ctx, imageURL)
		return err
	})
	if err != nil {
		s.recordRequest("error", startTime)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordUploadSize(img.Size())
	}

	var hostedURL string
	err = s.runStage(ctx, logger, domain.StagePublish, func(ctx context.Context) error {
		var err error
		hostedURL, err = s.publisher.Publish(ctx, img, req.Credential)
		return err
	})
	if err != nil {
		s.recordRequest("error", startTime)
		return nil, err
	}

	logger.Info("image published",
		zap.String("source_url", imageURL),
		zap.String("url", hostedURL),
		zap.String("detected_type", img.DetectedType),
		zap.Int("bytes", img.Size()),
		zap.Duration("duration", time.Since(startTime)),
	)
	s.recordRequest("success", startTime)

	return &domain.PublishedResult{Query: req.Query, URL: hostedURL}, nil
}

func (s *imageService) runStage(ctx context.Context, logger *zap.Logger, stage domain.Stage, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}
	if s.metrics != nil {
		s.metrics.RecordStage(string(stage), status, time.Since(start))
	}

	if err != nil {
		kind := domain.KindFor(stage, err)
		logger.Warn("pipeline stage failed",
			zap.String("stage", string(stage)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return domain.NewPipelineError(stage, kind, err)
	}

	logger.Debug("pipeline stage done",
		zap.String("stage", string(stage)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *imageService) recordRequest(status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordRequest(status, time.Since(start))
	}
}
