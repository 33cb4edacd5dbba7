package usecase

import (
	"context"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/google/uuid"
)

type IGenerationUsecase interface {
	GenerateImage(ctx context.Context, userID uuid.UUID, req service.ImageRequest) (*domain.ImageGeneration, error)
	EditImage(ctx context.Context, userID uuid.UUID, req service.EditRequest) (*domain.ImageGeneration, error)
	ListImages(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.GeneratedImage, error)
}

type IVideoUsecase interface {
	StartVideo(ctx context.Context, userID uuid.UUID, req service.VideoRequest) (*domain.Job, error)
	VideoStatus(ctx context.Context, userID, jobID uuid.UUID) (*domain.VideoStatus, error)
	HandleProviderCallback(ctx context.Context, state domain.ProviderJobState) error
	ListVideos(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.GeneratedVideo, error)
}

type ITrainingUsecase interface {
	StartTraining(ctx context.Context, userID uuid.UUID, name, triggerWord string, imageURLs []string) (*domain.Job, error)
	HandleTrainingResult(ctx context.Context, result domain.TrainingResult) error
	TrainingStatus(ctx context.Context, userID, jobID uuid.UUID) (*domain.Job, error)
	ListModels(ctx context.Context, userID uuid.UUID) ([]domain.TrainedModel, error)
	DeleteModel(ctx context.Context, adminID, modelID uuid.UUID) error
	ListHubModels(ctx context.Context) ([]string, error)
}
