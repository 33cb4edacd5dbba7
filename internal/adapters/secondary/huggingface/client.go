package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/tidwall/gjson"
)

type Config struct {
	BaseURL  string `envconfig:"BASE_URL" default:"https://huggingface.co"`
	Token    string `envconfig:"API_TOKEN"`
	Username string `envconfig:"USERNAME"`
}

func (c *Config) Enabled() bool {
	return c != nil && c.Token != "" && c.Username != ""
}

// Client репозитории моделей на Hugging Face Hub
type Client struct {
	cfg        *Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg *Config, log *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// repoID добавляет владельца, если передано короткое имя
func (c *Client) repoID(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	return c.cfg.Username + "/" + name
}

// ListModels id всех моделей аккаунта
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	u := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/api/models?author=" + url.QueryEscape(c.cfg.Username)
	body, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	ids := []string{}
	gjson.ParseBytes(body).ForEach(func(_, model gjson.Result) bool {
		if id := model.Get("id").String(); id != "" {
			ids = append(ids, id)
		}
		return true
	})
	return ids, nil
}

// DeleteModel удаляет репозиторий модели. Отсутствующий репозиторий не считается ошибкой.
func (c *Client) DeleteModel(ctx context.Context, modelID string) error {
	full := c.repoID(modelID)
	owner, name, _ := strings.Cut(full, "/")

	payload := map[string]string{"type": "model", "name": name}
	if owner != c.cfg.Username {
		payload["organization"] = owner
	}

	_, err := c.do(ctx, http.MethodDelete, strings.TrimSuffix(c.cfg.BaseURL, "/")+"/api/repos/delete", payload)
	if err != nil && !strings.Contains(err.Error(), "status=404") {
		return err
	}
	c.log.Info("model repository deleted", "repo_id", full)
	return nil
}

func (c *Client) do(ctx context.Context, method, u string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: hub request failed: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read hub response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: hub error [status=%d]: %s", domain.ErrProviderFailure, resp.StatusCode, gjson.GetBytes(respBody, "error").String())
	}
	return respBody, nil
}
