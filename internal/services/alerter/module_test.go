package alerter

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/admin/ai-studio/internal/adapters/secondary/storage/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	messages []string
}

func (r *recordingSender) SendAlert(_ context.Context, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

func TestService_ThrottlesDuplicates(t *testing.T) {
	sender := &recordingSender{}
	s := New(sender, inmemory.NewCache(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	require.NoError(t, s.SendAlert(ctx, "job reaper failed"))
	require.NoError(t, s.SendAlert(ctx, "job reaper failed"))
	require.NoError(t, s.SendAlert(ctx, "webhook failed"))

	assert.Equal(t, []string{"job reaper failed", "webhook failed"}, sender.messages)
}

func TestService_NoSender(t *testing.T) {
	s := New(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, s.SendAlert(context.Background(), "anything"))
}
