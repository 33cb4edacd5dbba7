package video

import (
	"log/slog"
	"time"

	"github.com/admin/ai-studio/internal/ports/cache"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/admin/ai-studio/internal/ports/repository"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/admin/ai-studio/internal/ports/usecase"
)

const (
	defaultDuration  = 5
	maxDuration      = 10
	defaultStatusTTL = 10 * time.Second
	statusKeyPrefix  = "video:status:"
)

type Config struct {
	Cost int64
	// CallbackURL адрес вебхука провайдера, пустой: только опрос
	CallbackURL string
	StatusTTL   time.Duration
}

type Service struct {
	Tx            persistence.Transactor
	JobRepo       repository.IJobRepo
	VideoRepo     repository.IVideoRepo
	CreditService usecase.ICreditService
	Provider      service.IVideoProvider
	Artifacts     service.IArtifactStore  // может быть nil
	Cache         cache.Cache             // может быть nil
	Events        service.IEventPublisher // может быть nil
	Config        Config
	Log           *slog.Logger
}

var _ usecase.IVideoUsecase = (*Service)(nil)

func New(
	tx persistence.Transactor,
	jobRepo repository.IJobRepo,
	videoRepo repository.IVideoRepo,
	creditService usecase.ICreditService,
	provider service.IVideoProvider,
	artifacts service.IArtifactStore,
	c cache.Cache,
	events service.IEventPublisher,
	cfg Config,
	log *slog.Logger,
) *Service {
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = defaultStatusTTL
	}
	return &Service{
		Tx:            tx,
		JobRepo:       jobRepo,
		VideoRepo:     videoRepo,
		CreditService: creditService,
		Provider:      provider,
		Artifacts:     artifacts,
		Cache:         c,
		Events:        events,
		Config:        cfg,
		Log:           log,
	}
}
