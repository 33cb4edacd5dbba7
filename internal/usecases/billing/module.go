package billing

import (
	"log/slog"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/repository"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/admin/ai-studio/internal/ports/usecase"
)

// URLs адреса возврата из checkout и портала провайдера
type URLs struct {
	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
}

type Service struct {
	UserRepo         repository.IUserRepo
	BillingEventRepo repository.IBillingEventRepo
	CreditService    usecase.ICreditService
	Provider         service.IBillingProvider
	AlerterService   service.IAlerterService // может быть nil
	Catalog          *domain.Catalog
	URLs             URLs
	Log              *slog.Logger
}

var _ usecase.IBillingUsecase = (*Service)(nil)

func New(
	userRepo repository.IUserRepo,
	billingEventRepo repository.IBillingEventRepo,
	creditService usecase.ICreditService,
	provider service.IBillingProvider,
	alerterService service.IAlerterService,
	catalog *domain.Catalog,
	urls URLs,
	log *slog.Logger,
) *Service {
	return &Service{
		UserRepo:         userRepo,
		BillingEventRepo: billingEventRepo,
		CreditService:    creditService,
		Provider:         provider,
		AlerterService:   alerterService,
		Catalog:          catalog,
		URLs:             urls,
		Log:              log,
	}
}
