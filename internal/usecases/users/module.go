package users

import (
	"log/slog"
	"strings"

	"github.com/admin/ai-studio/internal/ports/repository"
	"github.com/admin/ai-studio/internal/ports/usecase"
)

type Service struct {
	UserRepo      repository.IUserRepo
	CreditService usecase.ICreditService
	SignupBonus   int64
	adminEmails   map[string]struct{}
	Log           *slog.Logger
}

var _ usecase.IUserUsecase = (*Service)(nil)

func New(
	userRepo repository.IUserRepo,
	creditService usecase.ICreditService,
	signupBonus int64,
	adminEmails []string,
	log *slog.Logger,
) *Service {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &Service{
		UserRepo:      userRepo,
		CreditService: creditService,
		SignupBonus:   signupBonus,
		adminEmails:   admins,
		Log:           log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
