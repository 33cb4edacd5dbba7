package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/usecase"
	"github.com/google/uuid"
)

// TrainingResultHandler принимает результаты обучения от воркера
type TrainingResultHandler struct {
	training usecase.ITrainingUsecase
	log      *slog.Logger
}

func NewTrainingResultHandler(training usecase.ITrainingUsecase, log *slog.Logger) *TrainingResultHandler {
	return &TrainingResultHandler{
		training: training,
		log:      log,
	}
}

func (h *TrainingResultHandler) HandleMessage(ctx context.Context, key string, value []byte, headers []sarama.RecordHeader) error {
	var msg trainingResultMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return domain.WrapBusinessError(fmt.Errorf("failed to unmarshal training result: %w", err))
	}

	// job_id может прийти только ключом сообщения
	if msg.JobID == "" {
		msg.JobID = key
	}
	jobID, err := uuid.Parse(msg.JobID)
	if err != nil {
		return domain.WrapBusinessError(fmt.Errorf("invalid job_id %q: %w", msg.JobID, err))
	}

	status := domain.JobStatus(msg.Status)
	if status != domain.JobStatusCompleted && status != domain.JobStatusFailed {
		h.log.Debug("skip non-terminal training status", "job_id", jobID, "status", msg.Status)
		return nil
	}

	h.log.Debug("processing training result",
		"job_id", jobID,
		"status", status,
		"model_id", msg.ModelID,
		"headers", len(headers),
	)

	return h.training.HandleTrainingResult(ctx, domain.TrainingResult{
		JobID:   jobID,
		Status:  status,
		ModelID: msg.ModelID,
		Error:   msg.Error,
	})
}

type trainingResultMessage struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	ModelID string `json:"model_id"`
	Error   string `json:"error"`
}
