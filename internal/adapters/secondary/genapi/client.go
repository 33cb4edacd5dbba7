package genapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/tidwall/gjson"
)

// Статусы prediction у провайдера
const (
	statusStarting   = "starting"
	statusProcessing = "processing"
	statusSucceeded  = "succeeded"
	statusFailed     = "failed"
	statusCanceled   = "canceled"
)

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Client клиент API генерации картинок и видео (predictions API)
type Client struct {
	cfg        *Config
	HTTPClient *http.Client
	Log        *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

var (
	_ service.IImageProvider = (*Client)(nil)
	_ service.IVideoProvider = (*Client)(nil)
)

func NewClient(cfg *Config, log *slog.Logger) *Client {
	transport := &http.Transport{}
	if cfg.ShouldSkipSSL() {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		cfg: cfg,
		HTTPClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.timeout() + 10*time.Second,
		},
		Log:   log,
		sleep: sleepCtx,
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

func (c *Client) buildURL(parts ...string) string {
	baseURL := strings.TrimSuffix(c.cfg.BaseURL, "/")
	return baseURL + "/" + path.Join(append([]string{c.cfg.ApiVersion}, parts...)...)
}

// prediction разобранный ответ провайдера
type prediction struct {
	ID     string
	Status string
	Output string
	Error  string
}

// parsePrediction output бывает строкой или массивом строк, берём первый url
func parsePrediction(body []byte) (*prediction, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json in provider response")
	}
	res := gjson.ParseBytes(body)
	p := &prediction{
		ID:     res.Get("id").String(),
		Status: res.Get("status").String(),
		Error:  res.Get("error").String(),
	}

	output := res.Get("output")
	switch {
	case output.IsArray():
		for _, item := range output.Array() {
			if s := item.String(); s != "" {
				p.Output = s
				break
			}
		}
	case output.Type == gjson.String:
		p.Output = output.String()
	case output.IsObject():
		p.Output = output.Get("url").String()
	}

	if p.ID == "" {
		return nil, fmt.Errorf("provider response has no prediction id")
	}
	return p, nil
}

func (c *Client) do(ctx context.Context, method, url string, payload interface{}, wait bool) (*prediction, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("ошибка сериализации запроса: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.ApiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.ApiKey)
	}
	if wait {
		httpReq.Header.Set("Prefer", fmt.Sprintf("wait=%d", int(c.cfg.timeout().Seconds())))
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.Log.Debug("generation API returned non-2xx status",
			"status_code", resp.StatusCode,
			"body_preview", truncateString(string(respBody), 200),
		)
		return nil, fmt.Errorf("generation API error [status=%d]: %s", resp.StatusCode, truncateString(string(respBody), 500))
	}

	p, err := parsePrediction(respBody)
	if err != nil {
		c.Log.Debug("failed to parse generation API response",
			"error", err,
			"body_preview", truncateString(string(respBody), 200),
		)
		return nil, err
	}
	return p, nil
}

func (c *Client) create(ctx context.Context, model string, input map[string]interface{}, webhook string, wait bool) (*prediction, error) {
	payload := map[string]interface{}{"input": input}
	if webhook != "" {
		payload["webhook"] = webhook
		payload["webhook_events_filter"] = []string{"completed"}
	}
	return c.do(ctx, http.MethodPost, c.buildURL("models", model, "predictions"), payload, wait)
}

func (c *Client) get(ctx context.Context, id string) (*prediction, error) {
	return c.do(ctx, http.MethodGet, c.buildURL("predictions", id), nil, false)
}

// runSync создаёт prediction и дожидается финального статуса
func (c *Client) runSync(ctx context.Context, model string, input map[string]interface{}) (*service.ImageResult, error) {
	p, err := c.create(ctx, model, input, "", true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	maxPolls := c.cfg.MaxPolls
	for i := 0; (p.Status == statusStarting || p.Status == statusProcessing) && i < maxPolls; i++ {
		if err := c.sleep(ctx, c.cfg.pollInterval()); err != nil {
			return nil, err
		}
		if p, err = c.get(ctx, p.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
		}
	}

	switch p.Status {
	case statusSucceeded:
		if p.Output == "" {
			return nil, fmt.Errorf("%w: prediction %s has empty output", domain.ErrProviderFailure, p.ID)
		}
		return &service.ImageResult{ProviderID: p.ID, URL: p.Output}, nil
	case statusFailed, statusCanceled:
		return nil, fmt.Errorf("%w: prediction %s %s: %s", domain.ErrProviderFailure, p.ID, p.Status, p.Error)
	default:
		return nil, fmt.Errorf("%w: prediction %s still %s after %d polls", domain.ErrProviderFailure, p.ID, p.Status, maxPolls)
	}
}

func (c *Client) GenerateImage(ctx context.Context, req service.ImageRequest) (*service.ImageResult, error) {
	model := c.cfg.ImageModel
	if req.Model != "" {
		model = req.Model
	}
	input := map[string]interface{}{
		"prompt":        req.Prompt,
		"output_format": "png",
	}
	if req.AspectRatio != "" {
		input["aspect_ratio"] = req.AspectRatio
	}
	return c.runSync(ctx, model, input)
}

func (c *Client) EditImage(ctx context.Context, req service.EditRequest) (*service.ImageResult, error) {
	input := map[string]interface{}{
		"prompt":        req.Prompt,
		"image":         req.ImageURL,
		"output_format": "png",
	}
	if req.MaskURL != nil {
		input["mask"] = *req.MaskURL
	}
	return c.runSync(ctx, c.cfg.EditModel, input)
}

// StartVideo запускает генерацию без ожидания, результат приходит вебхуком или опросом
func (c *Client) StartVideo(ctx context.Context, req service.VideoRequest) (string, error) {
	input := map[string]interface{}{
		"prompt": req.Prompt,
	}
	if req.ImageURL != nil {
		input["first_frame_image"] = *req.ImageURL
	}
	if req.Duration > 0 {
		input["duration"] = req.Duration
	}

	p, err := c.create(ctx, c.cfg.VideoModel, input, req.CallbackURL, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	if p.Status == statusFailed || p.Status == statusCanceled {
		return "", fmt.Errorf("%w: prediction %s %s: %s", domain.ErrProviderFailure, p.ID, p.Status, p.Error)
	}
	return p.ID, nil
}

func (c *Client) VideoStatus(ctx context.Context, providerJobID string) (*domain.ProviderJobState, error) {
	p, err := c.get(ctx, providerJobID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	return toJobState(p), nil
}

// ParseCallback разбирает тело вебхука провайдера, формат тот же, что у GET prediction
func ParseCallback(body []byte) (*domain.ProviderJobState, error) {
	p, err := parsePrediction(body)
	if err != nil {
		return nil, err
	}
	return toJobState(p), nil
}

func toJobState(p *prediction) *domain.ProviderJobState {
	state := &domain.ProviderJobState{
		ProviderJobID: p.ID,
		OutputURL:     p.Output,
		Error:         p.Error,
	}
	switch p.Status {
	case statusSucceeded:
		state.Status = domain.JobStatusCompleted
	case statusFailed, statusCanceled:
		state.Status = domain.JobStatusFailed
		if state.Error == "" {
			state.Error = "generation " + p.Status
		}
	default:
		state.Status = domain.JobStatusProcessing
	}
	return state
}
