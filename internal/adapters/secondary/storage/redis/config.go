package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr            string `envconfig:"ADDR"` // host:port, пусто - Redis выключен
	KeyPrefix       string `envconfig:"KEY_PREFIX" default:"ai_studio"`
	Username        string `envconfig:"USERNAME"`
	Password        string `envconfig:"PASSWORD"`
	Database        int    `envconfig:"DATABASE" default:"0"`
	MaxRetries      int    `envconfig:"MAX_RETRIES" default:"3"`
	DialTimeout     int    `envconfig:"DIAL_TIMEOUT" default:"5"` // сек
	IOTimeout       int    `envconfig:"IO_TIMEOUT" default:"3"`   // сек, чтение и запись
	PoolSize        int    `envconfig:"POOL_SIZE" default:"10"`
	MinIdleConns    int    `envconfig:"MIN_IDLE_CONNS" default:"2"`
	ConnMaxIdleTime int    `envconfig:"CONN_MAX_IDLE_TIME" default:"5"` // мин
}

func (c *Config) Enabled() bool {
	return c != nil && c.Addr != ""
}

func seconds(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}

// NewConnection открывает пул и проверяет его через PING
func (c *Config) NewConnection() (*redis.Client, error) {
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return nil, fmt.Errorf("invalid redis addr %q: %w", c.Addr, err)
	}

	dialTimeout := seconds(c.DialTimeout, 5)
	ioTimeout := seconds(c.IOTimeout, 3)

	rdb := redis.NewClient(&redis.Options{
		Addr:            c.Addr,
		Username:        c.Username,
		Password:        c.Password,
		DB:              c.Database,
		MaxRetries:      c.MaxRetries,
		DialTimeout:     dialTimeout,
		ReadTimeout:     ioTimeout,
		WriteTimeout:    ioTimeout,
		PoolSize:        c.PoolSize,
		MinIdleConns:    c.MinIdleConns,
		ConnMaxIdleTime: time.Duration(c.ConnMaxIdleTime) * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}
