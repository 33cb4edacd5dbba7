package stripe

type Config struct {
	SecretKey     string `envconfig:"SECRET_KEY"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	// BackendURL переопределяет API (stripe-mock в локальном окружении)
	BackendURL string `envconfig:"BACKEND_URL"`
}

func (c *Config) Enabled() bool {
	return c != nil && c.SecretKey != "" && c.WebhookSecret != ""
}
