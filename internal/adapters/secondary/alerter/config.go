package alerter

type Config struct {
	BotToken        string `envconfig:"BOT_TOKEN"`
	ChatID          int64  `envconfig:"CHAT_ID"`
	MessageThreadID *int64 `envconfig:"MESSAGE_THREAD_ID"`
	// Environment добавляется в начало каждого алерта
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	BaseURL     string `envconfig:"BASE_URL" default:"https://api.telegram.org"`
}

func (c *Config) Enabled() bool {
	return c != nil && c.BotToken != "" && c.ChatID != 0
}
