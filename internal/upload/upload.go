package upload

import (
	"context"

	"github.com/kitbuilder587/imgrelay/internal/domain"
)

// Publisher выкладывает картинку на внешний хостинг и возвращает публичную ссылку.
type Publisher interface {
	Publish(ctx context.Context, img *domain.Image, credential string) (string, error)
}
