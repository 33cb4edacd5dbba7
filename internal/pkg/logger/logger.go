package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Encoding string `envconfig:"ENCODING" default:"console"`
	Level    string `envconfig:"LEVEL" default:"info"`
	// AddSource путь к файлу в каждой записи, в проде обычно выключен
	AddSource bool `envconfig:"ADD_SOURCE" default:"false"`
}

// New логгер сервиса. Атрибуты, положенные в контекст через WithContextAttrs,
// попадают в записи, сделанные *Context методами.
func New(app string, cfg *Config) *slog.Logger {
	handler, err := NewHandler(os.Stdout, cfg)
	if err != nil {
		panic(fmt.Errorf("invalid logger config: %w", err))
	}
	return slog.New(handler).With("app", app)
}

// NewHandler handler с учётом encoding/level, ошибка на неизвестных значениях
func NewHandler(w io.Writer, cfg *Config) (slog.Handler, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "console"
	}
	levelName := cfg.Level
	if levelName == "" {
		levelName = "info"
	}

	level, err := ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var inner slog.Handler
	switch encoding {
	case "json":
		inner = slog.NewJSONHandler(w, opts)
	case "console":
		inner = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("encoding %s is not supported", encoding)
	}
	return &ContextHandler{handler: inner}, nil
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("level %s is not supported", level)
	}
}

type ctxAttrsKey struct{}

// WithContextAttrs добавляет атрибуты к контексту (request_id, user_id и т.п.)
func WithContextAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	prev := ContextAttrs(ctx)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, ctxAttrsKey{}, merged)
}

func ContextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	return attrs
}

// ContextHandler дописывает в запись атрибуты из контекста
type ContextHandler struct {
	handler slog.Handler
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if attrs := ContextAttrs(ctx); len(attrs) > 0 {
		record = record.Clone()
		record.AddAttrs(attrs...)
	}
	return h.handler.Handle(ctx, record)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}
