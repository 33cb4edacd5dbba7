package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var sleeps int32
	c := New(srv.URL, "token", slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.sleep = func(ctx context.Context, _ time.Duration) error {
		atomic.AddInt32(&sleeps, 1)
		return ctx.Err()
	}
	c.VideoPoll = PollConfig{Interval: time.Second, MaxAttempts: 5}
	c.SubscriptionPoll = PollConfig{Interval: time.Second, MaxAttempts: 5}
	return c, &sleeps
}

func TestWaitForVideoCompletes(t *testing.T) {
	jobID := uuid.New()
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/video/status/"+jobID.String(), r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		if atomic.AddInt32(&calls, 1) < 3 {
			_, _ = w.Write([]byte(`{"jobId":"` + jobID.String() + `","status":"processing"}`))
			return
		}
		_, _ = w.Write([]byte(`{"jobId":"` + jobID.String() + `","status":"completed","videoUrl":"https://cdn.example.com/v.mp4"}`))
	})

	status, err := c.WaitForVideo(context.Background(), jobID)

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, status.Status)
	assert.Equal(t, "https://cdn.example.com/v.mp4", status.VideoURL)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestWaitForVideoFailedIsNotAnError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"failed","error":"Video generation failed"}`))
	})

	status, err := c.WaitForVideo(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, status.Status)
}

func TestWaitForVideoTimeout(t *testing.T) {
	var calls int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"status":"processing"}`))
	})

	_, err := c.WaitForVideo(context.Background(), uuid.New())

	require.ErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, VideoTimeoutMessage, err.Error())
	assert.EqualValues(t, 5, atomic.LoadInt32(&calls))
	assert.EqualValues(t, 4, atomic.LoadInt32(sleeps))
}

func TestWaitForVideoToleratesTransientErrors(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusBadGateway)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`{"status":"completed","videoUrl":"https://cdn.example.com/v.mp4"}`))
		}
	})

	status, err := c.WaitForVideo(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, status.Status)
}

func TestWaitForVideoStopsOnClientError(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
	})

	_, err := c.WaitForVideo(context.Background(), uuid.New())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, "Not found", statusErr.Message)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestWaitForSubscription(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stripe/subscription-status", r.URL.Path)
		if atomic.AddInt32(&calls, 1) < 2 {
			_, _ = w.Write([]byte(`{"plan":"free","status":"inactive","credits":3}`))
			return
		}
		_, _ = w.Write([]byte(`{"plan":"pro","status":"active","credits":203}`))
	})

	info, err := c.WaitForSubscription(context.Background(), domain.PlanID("pro"))

	require.NoError(t, err)
	assert.EqualValues(t, 203, info.Credits)
}

func TestWaitForSubscriptionTimeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"plan":"free","status":"inactive"}`))
	})

	_, err := c.WaitForSubscription(context.Background(), domain.PlanID("pro"))

	require.ErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, SubscriptionTimeoutMessage, err.Error())
}

func TestWaitCanceled(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"processing"}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.WaitForVideo(ctx, uuid.New())

	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrPollTimeout)
}
