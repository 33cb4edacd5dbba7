package service

import (
	"context"

	"github.com/admin/ai-studio/internal/domain"
)

// ImageRequest запрос генерации картинки
type ImageRequest struct {
	Prompt      string
	AspectRatio string
	Model       string
}

// EditRequest запрос редактирования картинки
type EditRequest struct {
	ImageURL string
	Prompt   string
	MaskURL  *string
}

// ImageResult ответ провайдера
type ImageResult struct {
	ProviderID string
	URL        string
}

// VideoRequest запрос генерации видео
type VideoRequest struct {
	Prompt      string
	ImageURL    *string
	Duration    int
	CallbackURL string
}

// IImageProvider провайдер генерации картинок
type IImageProvider interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
	EditImage(ctx context.Context, req EditRequest) (*ImageResult, error)
}

// IVideoProvider провайдер генерации видео, работает асинхронно
type IVideoProvider interface {
	StartVideo(ctx context.Context, req VideoRequest) (string, error)
	VideoStatus(ctx context.Context, providerJobID string) (*domain.ProviderJobState, error)
}

// IArtifactStore копирует результат провайдера в собственное хранилище
type IArtifactStore interface {
	Save(ctx context.Context, key string, sourceURL string) (string, error)
	URL(ctx context.Context, key string) (string, error)
}
