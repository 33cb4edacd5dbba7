package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/gin-gonic/gin"
)

// Тексты, которые уходят клиенту вместо внутренних ошибок
const (
	MsgInternal        = "Internal server error"
	MsgProviderFailure = "Generation failed, please try again"
	MsgUnauthorized    = "Unauthorized"
	MsgForbidden       = "Forbidden"
	MsgNotFound        = "Not found"
	MsgTooManyRequests = "Too many requests"
	MsgInvalidRequest  = "Invalid request"
	MsgConflict        = "Conflict"
)

// Error маппит ошибку на HTTP статус. Ошибки валидации и авторизации отдаются как есть,
// ошибки провайдера и базы логируются и заменяются общим текстом.
func Error(c *gin.Context, log *slog.Logger, err error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		// BusinessError уже залогирована в usecase
		if !domain.IsBusinessError(err) {
			log.Error("request failed", "error", err, "route", c.FullPath())
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInsufficientCredits):
		return http.StatusBadRequest, domain.InsufficientCreditsMessage
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, MsgUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, MsgForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, MsgNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, MsgConflict
	case errors.Is(err, domain.ErrProviderFailure):
		return http.StatusInternalServerError, MsgProviderFailure
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

// BindError ответ на ошибку биндинга запроса, детали валидации отдаются клиенту
func BindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   MsgInvalidRequest,
		"details": err.Error(),
	})
}

// PageQuery параметры пагинации списков, значения нормализует UseCase
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=0"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}
