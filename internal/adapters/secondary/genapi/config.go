package genapi

import "time"

type Config struct {
	BaseURL    string `envconfig:"BASE_URL" default:"https://api.replicate.com"`
	ApiVersion string `envconfig:"VERSION" default:"v1"`
	ApiKey     string `envconfig:"API_KEY"`
	ImageModel string `envconfig:"IMAGE_MODEL" default:"black-forest-labs/flux-schnell"`
	EditModel  string `envconfig:"EDIT_MODEL" default:"black-forest-labs/flux-fill-pro"`
	VideoModel string `envconfig:"VIDEO_MODEL" default:"minimax/video-01"`
	SkipSSL    string `envconfig:"SKIP_SSL"` // строка, Railway не умеет bool
	// синхронные запросы ждут результат не дольше Timeout, дальше опрос статуса
	Timeout      int `envconfig:"TIMEOUT" default:"60"`             // сек
	PollInterval int `envconfig:"POLL_INTERVAL_MS" default:"1000"` // мс
	MaxPolls     int `envconfig:"MAX_POLLS" default:"60"`
}

func (c *Config) ShouldSkipSSL() bool {
	return c.SkipSSL == "true" || c.SkipSSL == "1" || c.SkipSSL == "True"
}

func (c *Config) Enabled() bool {
	return c != nil && c.ApiKey != ""
}

func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

func (c *Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return time.Second
	}
	return time.Duration(c.PollInterval) * time.Millisecond
}
