package artifacts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/storage"
)

// maxArtifactSize защита от бесконечного ответа провайдера
const maxArtifactSize = 512 << 20

// Service копирует результаты генерации из CDN провайдера в собственный бакет
type Service struct {
	s3         storage.IS3Client
	httpClient *http.Client
	urlTTL     time.Duration
	log        *slog.Logger
}

func New(s3 storage.IS3Client, urlTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		s3:         s3,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		urlTTL:     urlTTL,
		log:        log,
	}
}

// Save скачивает sourceURL и кладёт под key (расширение берётся из url). Возвращает итоговый ключ.
func (s *Service) Save(ctx context.Context, key string, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: bad artifact url: %v", domain.ErrProviderFailure, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: download artifact: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: download artifact [status=%d]", domain.ErrProviderFailure, resp.StatusCode)
	}
	if resp.ContentLength > maxArtifactSize {
		return "", fmt.Errorf("%w: artifact too large: %d bytes", domain.ErrProviderFailure, resp.ContentLength)
	}

	fullKey := key + extension(sourceURL)
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.s3.PutFile(ctx, fullKey, http.MaxBytesReader(nil, resp.Body, maxArtifactSize), resp.ContentLength, contentType); err != nil {
		return "", fmt.Errorf("%w: store artifact: %v", domain.ErrProviderFailure, err)
	}

	s.log.Debug("artifact stored", "key", fullKey, "source", sourceURL)
	return fullKey, nil
}

func (s *Service) URL(ctx context.Context, key string) (string, error) {
	return s.s3.GetPresignedURL(ctx, key, s.urlTTL)
}

func extension(rawURL string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := path.Ext(p)
	if len(ext) > 5 {
		return ""
	}
	return strings.ToLower(ext)
}
