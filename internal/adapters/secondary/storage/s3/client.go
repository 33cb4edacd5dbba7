package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/admin/ai-studio/internal/ports/storage"
	"github.com/minio/minio-go/v7"
)

// Client обёртка над minio.Client, работает с одним бакетом
type Client struct {
	client *minio.Client
	bucket string
	log    *slog.Logger
}

var _ storage.IS3Client = (*Client)(nil)

func NewClient(client *minio.Client, bucket string, log *slog.Logger) *Client {
	return &Client{
		client: client,
		bucket: bucket,
		log:    log,
	}
}

func (c *Client) GetFile(ctx context.Context, path string) ([]byte, error) {
	object, err := c.client.GetObject(ctx, c.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", path, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", path, err)
	}
	return data, nil
}

// PutFile size -1 если размер неизвестен, тогда minio грузит multipart-ом
func (c *Client) PutFile(ctx context.Context, path string, body io.Reader, size int64, contentType string) error {
	info, err := c.client.PutObject(ctx, c.bucket, path, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", path, err)
	}
	c.log.Debug("object uploaded", "bucket", c.bucket, "key", path, "size", info.Size)
	return nil
}

func (c *Client) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	var files []string

	objectCh := c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects with prefix %s: %w", prefix, object.Err)
		}
		if !strings.HasSuffix(object.Key, "/") {
			files = append(files, object.Key)
		}
	}
	return files, nil
}

func (c *Client) GetPresignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = 5 * time.Minute
	}

	url, err := c.client.PresignedGetObject(ctx, c.bucket, path, expires, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL for %s: %w", path, err)
	}
	return url.String(), nil
}
