package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Host      string `envconfig:"HOST"` // localhost:9000, пусто - копии артефактов не сохраняются
	AccessKey string `envconfig:"ACCESS_KEY"`
	SecretKey string `envconfig:"SECRET_KEY"`
	Bucket    string `envconfig:"BUCKET" default:"artifacts"`
	Region    string `envconfig:"REGION"`
	UseSSL    bool   `envconfig:"USE_SSL" default:"false"`
	// URLTTL время жизни presigned ссылок на артефакты, мин
	URLTTL int `envconfig:"URL_TTL" default:"60"`
}

func (c *Config) Enabled() bool {
	return c != nil && c.Host != ""
}

func (c *Config) URLExpiry() time.Duration {
	if c.URLTTL <= 0 {
		return time.Hour
	}
	return time.Duration(c.URLTTL) * time.Minute
}

// NewClient создаёт minio клиент и создаёт бакет, если его ещё нет
func (c *Config) NewClient() (*minio.Client, error) {
	client, err := minio.New(c.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, c.Bucket, minio.MakeBucketOptions{Region: c.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", c.Bucket, err)
		}
	}
	return client, nil
}
