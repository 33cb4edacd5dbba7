package credits

import (
	"log/slog"

	"github.com/admin/ai-studio/internal/ports/repository"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/admin/ai-studio/internal/ports/usecase"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// Service журнал кредитов: списания, начисления, админская корректировка
type Service struct {
	UserRepo   repository.IUserRepo
	CreditRepo repository.ICreditRepo
	JobRepo    repository.IJobRepo
	Events     service.IEventPublisher // может быть nil
	Log        *slog.Logger
}

var _ usecase.ICreditService = (*Service)(nil)

func New(
	userRepo repository.IUserRepo,
	creditRepo repository.ICreditRepo,
	jobRepo repository.IJobRepo,
	events service.IEventPublisher,
	log *slog.Logger,
) *Service {
	return &Service{
		UserRepo:   userRepo,
		CreditRepo: creditRepo,
		JobRepo:    jobRepo,
		Events:     events,
		Log:        log,
	}
}

// ClampPage приводит limit/offset пагинации к допустимым значениям
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
