package domain

import "errors"

// Сообщения этих ошибок уходят клиенту как есть, не менять формулировки.
var (
	ErrNoSupportedImage = errors.New("No supported image found (jpeg/jpg/png only).")
	ErrSearchFailed     = errors.New("Failed to search images.")
	ErrDownloadFailed   = errors.New("Failed to download image.")
	ErrUploadFailed     = errors.New("Failed to upload to imgbb.")
)

type Stage string

const (
	StageLocate  Stage = "locate"
	StageFetch   Stage = "fetch"
	StagePublish Stage = "publish"
)

// PipelineError - единственный тип ошибки, который сервис отдает наружу.
// Error() возвращает только сообщение Kind, Cause остается для логов.
type PipelineError struct {
	Stage Stage
	Kind  error
	Cause error
}

func NewPipelineError(stage Stage, kind, cause error) *PipelineError {
	return &PipelineError{Stage: stage, Kind: kind, Cause: cause}
}

func (e *PipelineError) Error() string {
	if e.Kind == nil {
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return "internal error"
	}
	return e.Kind.Error()
}

func (e *PipelineError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// KindFor подбирает sentinel для стадии, если cause его не содержит.
func KindFor(stage Stage, cause error) error {
	for _, kind := range []error{ErrNoSupportedImage, ErrSearchFailed, ErrDownloadFailed, ErrUploadFailed} {
		if errors.Is(cause, kind) {
			return kind
		}
	}
	switch stage {
	case StageLocate:
		return ErrSearchFailed
	case StageFetch:
		return ErrDownloadFailed
	case StagePublish:
		return ErrUploadFailed
	}
	return nil
}
