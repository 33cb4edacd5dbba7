package app

import (
	"fmt"
	"strings"
	"time"

	server "github.com/admin/ai-studio/internal/adapters/primary/http"
	"github.com/admin/ai-studio/internal/adapters/primary/http/middlewares"
	alerterAdapter "github.com/admin/ai-studio/internal/adapters/secondary/alerter"
	"github.com/admin/ai-studio/internal/adapters/secondary/genapi"
	"github.com/admin/ai-studio/internal/adapters/secondary/huggingface"
	kafkaAdapter "github.com/admin/ai-studio/internal/adapters/secondary/kafka"
	stripeAdapter "github.com/admin/ai-studio/internal/adapters/secondary/payment/stripe"
	"github.com/admin/ai-studio/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/ai-studio/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/admin/ai-studio/internal/adapters/secondary/storage/s3"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Postgres    *pg.Config                `envconfig:"POSTGRES"`
	Redis       *redisAdapter.Config      `envconfig:"REDIS"`
	S3          *s3Adapter.Config         `envconfig:"S3"`
	Log         *logger.Config            `envconfig:"LOG"`
	Server      *server.Config            `envconfig:"APISERVER"`
	Auth        *middlewares.AuthConfig   `envconfig:"AUTH"`
	GenAPI      *genapi.Config            `envconfig:"GENAPI"`
	Stripe      *stripeAdapter.Config     `envconfig:"STRIPE"`
	HuggingFace *huggingface.Config       `envconfig:"HUGGINGFACE"`
	Alerter     *alerterAdapter.Config    `envconfig:"ALERTER"`
	Kafka       kafkaAdapter.KafkaConfigs `envconfig:"KAFKA"`
	Studio      StudioConfig              `envconfig:"STUDIO"`
	Billing     BillingConfig             `envconfig:"BILLING"`
	Jobs        JobsConfig                `envconfig:"JOBS"`
}

// StudioConfig стоимость операций в кредитах и доступы
type StudioConfig struct {
	ImageCost    int64 `envconfig:"IMAGE_COST" default:"1"`
	EditCost     int64 `envconfig:"EDIT_COST" default:"1"`
	VideoCost    int64 `envconfig:"VIDEO_COST" default:"5"`
	TrainingCost int64 `envconfig:"TRAINING_COST" default:"20"`
	SignupBonus  int64 `envconfig:"SIGNUP_BONUS" default:"3"`
	// AdminEmails через запятую
	AdminEmails string `envconfig:"ADMIN_EMAILS"`
	// PublicURL внешний адрес API, из него строится адрес колбэка провайдера генерации
	PublicURL      string        `envconfig:"PUBLIC_URL"`
	VideoStatusTTL time.Duration `envconfig:"VIDEO_STATUS_TTL" default:"10s"`
}

// Validate стоимость операций должна быть положительной: нулевое списание ledger отклонит
// уже после успешного вызова провайдера
func (c StudioConfig) Validate() error {
	costs := []struct {
		name  string
		value int64
	}{
		{"IMAGE_COST", c.ImageCost},
		{"EDIT_COST", c.EditCost},
		{"VIDEO_COST", c.VideoCost},
		{"TRAINING_COST", c.TrainingCost},
	}
	for _, cost := range costs {
		if cost.value <= 0 {
			return fmt.Errorf("STUDIO_%s must be positive, got %d", cost.name, cost.value)
		}
	}
	if c.SignupBonus < 0 {
		return fmt.Errorf("STUDIO_SIGNUP_BONUS must not be negative, got %d", c.SignupBonus)
	}
	return nil
}

func (c StudioConfig) Admins() []string {
	var out []string
	for _, e := range strings.Split(c.AdminEmails, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// VideoCallbackURL пустой, если PublicURL не задан: тогда статус видео только опрашивается
func (c StudioConfig) VideoCallbackURL() string {
	if c.PublicURL == "" {
		return ""
	}
	return strings.TrimSuffix(c.PublicURL, "/") + "/api/webhooks/generation"
}

// BillingConfig тарифы и пакеты, id цен берутся из кабинета Stripe
type BillingConfig struct {
	SuccessURL      string `envconfig:"SUCCESS_URL" default:"http://localhost:3000/billing/success"`
	CancelURL       string `envconfig:"CANCEL_URL" default:"http://localhost:3000/billing"`
	PortalReturnURL string `envconfig:"PORTAL_RETURN_URL" default:"http://localhost:3000/account"`

	BasicPriceID   string `envconfig:"BASIC_PRICE_ID"`
	BasicCredits   int64  `envconfig:"BASIC_CREDITS" default:"100"`
	ProPriceID     string `envconfig:"PRO_PRICE_ID"`
	ProCredits     int64  `envconfig:"PRO_CREDITS" default:"300"`
	PremiumPriceID string `envconfig:"PREMIUM_PRICE_ID"`
	PremiumCredits int64  `envconfig:"PREMIUM_CREDITS" default:"1000"`

	SmallPackPriceID  string `envconfig:"SMALL_PACK_PRICE_ID"`
	SmallPackCredits  int64  `envconfig:"SMALL_PACK_CREDITS" default:"50"`
	MediumPackPriceID string `envconfig:"MEDIUM_PACK_PRICE_ID"`
	MediumPackCredits int64  `envconfig:"MEDIUM_PACK_CREDITS" default:"150"`
	LargePackPriceID  string `envconfig:"LARGE_PACK_PRICE_ID"`
	LargePackCredits  int64  `envconfig:"LARGE_PACK_CREDITS" default:"500"`
}

func (c BillingConfig) Catalog() *domain.Catalog {
	return &domain.Catalog{
		Plans: []domain.Plan{
			{ID: domain.PlanFree},
			{ID: domain.PlanBasic, MonthlyCredits: c.BasicCredits, PriceID: c.BasicPriceID},
			{ID: domain.PlanPro, MonthlyCredits: c.ProCredits, PriceID: c.ProPriceID},
			{ID: domain.PlanPremium, MonthlyCredits: c.PremiumCredits, PriceID: c.PremiumPriceID},
		},
		Packs: []domain.CreditPack{
			{ID: "small", Credits: c.SmallPackCredits, PriceID: c.SmallPackPriceID},
			{ID: "medium", Credits: c.MediumPackCredits, PriceID: c.MediumPackPriceID},
			{ID: "large", Credits: c.LargePackCredits, PriceID: c.LargePackPriceID},
		},
	}
}

// JobsConfig расписания фоновых джоб (cron выражения)
type JobsConfig struct {
	StaleJobCron     string        `envconfig:"STALE_JOB_CRON" default:"*/10 * * * *"`
	StaleJobMaxAge   time.Duration `envconfig:"STALE_JOB_MAX_AGE" default:"30m"`
	SubscriptionCron string        `envconfig:"SUBSCRIPTION_CRON" default:"0 3 * * *"`
	SubscriptionTZ   string        `envconfig:"SUBSCRIPTION_TZ" default:"UTC"`
}

func (c JobsConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SubscriptionTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid jobs timezone %q: %w", c.SubscriptionTZ, err)
	}
	return loc, nil
}

func NewEnvConfig(envPrefix string) (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load("deployments/local/.env")

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, err
	}

	// Kafka подключения читаются по индексу, envconfig не умеет слайсы структур
	if err := cfg.Kafka.Load(envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load kafka config: %w", err)
	}

	if err := cfg.Studio.Validate(); err != nil {
		return nil, fmt.Errorf("invalid studio config: %w", err)
	}

	if cfg.Auth == nil || cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("%s_AUTH_JWT_SECRET is required", strings.ToUpper(envPrefix))
	}

	return cfg, nil
}
