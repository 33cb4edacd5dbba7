package alerter

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/admin/ai-studio/internal/ports/cache"
	"github.com/admin/ai-studio/internal/ports/service"
)

// throttleTTL одинаковый алерт уходит не чаще раза в этот интервал
const throttleTTL = 5 * time.Minute

// Service реализует IAlerterService: глушит повторы и не даёт упасть вызывающему коду
type Service struct {
	sender service.IAlerterService
	cache  cache.Cache
	log    *slog.Logger
}

func New(sender service.IAlerterService, c cache.Cache, log *slog.Logger) *Service {
	return &Service{
		sender: sender,
		cache:  c,
		log:    log,
	}
}

func (s *Service) SendAlert(ctx context.Context, message string) error {
	if s.cache != nil {
		sum := sha1.Sum([]byte(message))
		first, err := s.cache.SetNX(ctx, "alert:"+hex.EncodeToString(sum[:]), "1", throttleTTL)
		if err != nil {
			s.log.Warn("alert throttle check failed", "error", err)
		} else if !first {
			s.log.Debug("alert throttled", "message", message)
			return nil
		}
	}

	if s.sender == nil {
		s.log.Warn("alert (alerter disabled)", "message", message)
		return nil
	}
	return s.sender.SendAlert(ctx, message)
}
