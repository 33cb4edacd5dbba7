package training

import (
	"log/slog"

	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/admin/ai-studio/internal/ports/repository"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/admin/ai-studio/internal/ports/usecase"
)

type Service struct {
	Tx            persistence.Transactor
	JobRepo       repository.IJobRepo
	ModelRepo     repository.IModelRepo
	CreditService usecase.ICreditService
	Publisher     service.ITrainingPublisher
	Hub           service.IModelHub // nil: удаление весов на хабе отключено
	Cost          int64
	Log           *slog.Logger
}

var _ usecase.ITrainingUsecase = (*Service)(nil)

func New(
	tx persistence.Transactor,
	jobRepo repository.IJobRepo,
	modelRepo repository.IModelRepo,
	creditService usecase.ICreditService,
	publisher service.ITrainingPublisher,
	hub service.IModelHub,
	cost int64,
	log *slog.Logger,
) *Service {
	return &Service{
		Tx:            tx,
		JobRepo:       jobRepo,
		ModelRepo:     modelRepo,
		CreditService: creditService,
		Publisher:     publisher,
		Hub:           hub,
		Cost:          cost,
		Log:           log,
	}
}
