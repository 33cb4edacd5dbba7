package alerter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// telegramMessageLimit максимальная длина текста sendMessage
const telegramMessageLimit = 4096

// Client отправляет алерты операторам в Telegram группу (или топик форума)
type Client struct {
	httpClient *http.Client
	url        string
	chatID     int64
	threadID   *int64
	env        string
	log        *slog.Logger
}

func NewClient(cfg *Config, log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        strings.TrimSuffix(cfg.BaseURL, "/") + "/bot" + cfg.BotToken + "/sendMessage",
		chatID:     cfg.ChatID,
		threadID:   cfg.MessageThreadID,
		env:        cfg.Environment,
		log:        log,
	}
}

type sendMessageRequest struct {
	ChatID          int64  `json:"chat_id"`
	Text            string `json:"text"`
	MessageThreadID *int64 `json:"message_thread_id,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
}

func (c *Client) SendAlert(ctx context.Context, message string) error {
	text := message
	if c.env != "" {
		text = "[" + c.env + "] " + message
	}
	if len(text) > telegramMessageLimit {
		text = text[:telegramMessageLimit-3] + "..."
	}

	if err := c.send(ctx, sendMessageRequest{ChatID: c.chatID, Text: text, MessageThreadID: c.threadID}); err != nil {
		c.log.Warn("failed to send alert",
			"error", err,
			"chat_id", c.chatID,
			"message_thread_id", c.threadID,
		)
		return fmt.Errorf("failed to send alert: %w", err)
	}

	c.log.Debug("alert sent successfully", "chat_id", c.chatID)
	return nil
}

func (c *Client) send(ctx context.Context, req sendMessageRequest) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to telegram: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("failed to unmarshal response [status=%d]: %w", resp.StatusCode, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram API error [code=%d]: %s", apiResp.ErrorCode, apiResp.Description)
	}
	return nil
}

// Noop используется, когда алертер не настроен: алерт только пишется в лог
type Noop struct {
	log *slog.Logger
}

func NewNoop(log *slog.Logger) *Noop {
	return &Noop{log: log}
}

func (n *Noop) SendAlert(_ context.Context, message string) error {
	n.log.Warn("alert (alerter disabled)", "message", message)
	return nil
}
