package generation

import (
	"log/slog"

	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/admin/ai-studio/internal/ports/repository"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/admin/ai-studio/internal/ports/usecase"
)

// Costs стоимость операций в кредитах
type Costs struct {
	Generate int64
	Edit     int64
}

type Service struct {
	Tx            persistence.Transactor
	ImageRepo     repository.IImageRepo
	CreditService usecase.ICreditService
	Provider      service.IImageProvider
	Artifacts     service.IArtifactStore  // nil: храним ссылку провайдера
	Events        service.IEventPublisher // может быть nil
	Costs         Costs
	Log           *slog.Logger
}

var _ usecase.IGenerationUsecase = (*Service)(nil)

func New(
	tx persistence.Transactor,
	imageRepo repository.IImageRepo,
	creditService usecase.ICreditService,
	provider service.IImageProvider,
	artifacts service.IArtifactStore,
	events service.IEventPublisher,
	costs Costs,
	log *slog.Logger,
) *Service {
	return &Service{
		Tx:            tx,
		ImageRepo:     imageRepo,
		CreditService: creditService,
		Provider:      provider,
		Artifacts:     artifacts,
		Events:        events,
		Costs:         costs,
		Log:           log,
	}
}
