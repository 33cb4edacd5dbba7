package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/google/uuid"
)

// ErrPollTimeout опрос исчерпал попытки, текст показывается пользователю как есть
var ErrPollTimeout = errors.New("poll timeout")

const (
	VideoTimeoutMessage        = "Video generation is taking longer than expected. Please check back later."
	SubscriptionTimeoutMessage = "Payment received, your subscription will be activated shortly. Please refresh the page in a minute."
)

// PollError ErrPollTimeout с сообщением для пользователя
type PollError struct {
	Message  string
	Attempts int
	LastErr  error
}

func (e *PollError) Error() string { return e.Message }

func (e *PollError) Unwrap() error { return ErrPollTimeout }

// PollConfig интервал и число попыток опроса
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

var (
	DefaultVideoPoll        = PollConfig{Interval: 3 * time.Second, MaxAttempts: 60}
	DefaultSubscriptionPoll = PollConfig{Interval: 2 * time.Second, MaxAttempts: 15}
)

// StatusError ответ API с кодом не 2xx
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Code, e.Message)
}

// transient 5xx и 429 считаются временными, опрос продолжается
func (e *StatusError) transient() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Client клиент HTTP API студии для фронтов и интеграционных сценариев
type Client struct {
	BaseURL          string
	Token            string
	HTTPClient       *http.Client
	VideoPoll        PollConfig
	SubscriptionPoll PollConfig
	Log              *slog.Logger
	sleep            func(ctx context.Context, d time.Duration) error
}

func New(baseURL, token string, log *slog.Logger) *Client {
	return &Client{
		BaseURL:          strings.TrimSuffix(baseURL, "/"),
		Token:            token,
		HTTPClient:       &http.Client{Timeout: 30 * time.Second},
		VideoPoll:        DefaultVideoPoll,
		SubscriptionPoll: DefaultSubscriptionPoll,
		Log:              log,
		sleep:            sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) get(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// VideoStatus один запрос статуса
func (c *Client) VideoStatus(ctx context.Context, jobID uuid.UUID) (*domain.VideoStatus, error) {
	var status domain.VideoStatus
	if err := c.get(ctx, "/api/video/status/"+jobID.String(), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) SubscriptionStatus(ctx context.Context) (*domain.SubscriptionInfo, error) {
	var info domain.SubscriptionInfo
	if err := c.get(ctx, "/api/stripe/subscription-status", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// WaitForVideo опрашивает статус пока джоба не станет терминальной.
// failed возвращается как статус, а не ошибка.
func (c *Client) WaitForVideo(ctx context.Context, jobID uuid.UUID) (*domain.VideoStatus, error) {
	var result *domain.VideoStatus
	err := c.poll(ctx, c.VideoPoll, VideoTimeoutMessage, func(ctx context.Context) (bool, error) {
		status, err := c.VideoStatus(ctx, jobID)
		if err != nil {
			return false, err
		}
		result = status
		return status.Status.IsTerminal(), nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WaitForSubscription ждёт, пока вебхук оплаты активирует план wantPlan
func (c *Client) WaitForSubscription(ctx context.Context, wantPlan domain.PlanID) (*domain.SubscriptionInfo, error) {
	var result *domain.SubscriptionInfo
	err := c.poll(ctx, c.SubscriptionPoll, SubscriptionTimeoutMessage, func(ctx context.Context) (bool, error) {
		info, err := c.SubscriptionStatus(ctx)
		if err != nil {
			return false, err
		}
		result = info
		return info.Plan == wantPlan && info.Status == domain.SubscriptionActive, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// poll вызывает check до MaxAttempts раз. Временные ошибки (сеть, 5xx, 429) не прерывают опрос,
// остальные возвращаются сразу.
func (c *Client) poll(ctx context.Context, cfg PollConfig, timeoutMessage string, check func(context.Context) (bool, error)) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		done, err := check(ctx)
		switch {
		case err == nil && done:
			return nil
		case err != nil && !isTransient(err):
			return err
		case err != nil:
			lastErr = err
			c.Log.Debug("poll attempt failed", "attempt", attempt, "error", err)
		}

		if attempt == attempts {
			break
		}
		if err := c.sleep(ctx, cfg.Interval); err != nil {
			return err
		}
	}

	return &PollError{Message: timeoutMessage, Attempts: attempts, LastErr: lastErr}
}

func isTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.transient()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// сетевые ошибки и битые ответы
	return true
}
