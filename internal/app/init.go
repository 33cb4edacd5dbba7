package app

import (
	"context"
	"fmt"
	"net/http"

	server "github.com/admin/ai-studio/internal/adapters/primary/http"
	accountController "github.com/admin/ai-studio/internal/adapters/primary/http/controllers/account"
	adminController "github.com/admin/ai-studio/internal/adapters/primary/http/controllers/admin"
	alerterController "github.com/admin/ai-studio/internal/adapters/primary/http/controllers/alerter"
	billingController "github.com/admin/ai-studio/internal/adapters/primary/http/controllers/billing"
	generationController "github.com/admin/ai-studio/internal/adapters/primary/http/controllers/generation"
	healthcheckController "github.com/admin/ai-studio/internal/adapters/primary/http/controllers/healthcheck"
	trainingController "github.com/admin/ai-studio/internal/adapters/primary/http/controllers/training"
	videoController "github.com/admin/ai-studio/internal/adapters/primary/http/controllers/video"
	webhooksController "github.com/admin/ai-studio/internal/adapters/primary/http/controllers/webhooks"
	"github.com/admin/ai-studio/internal/adapters/primary/http/middlewares"
	kafkaConsumerAdapter "github.com/admin/ai-studio/internal/adapters/primary/kafka"
	kafkaHandlers "github.com/admin/ai-studio/internal/adapters/primary/kafka/handlers"
	alerterAdapter "github.com/admin/ai-studio/internal/adapters/secondary/alerter"
	"github.com/admin/ai-studio/internal/adapters/secondary/genapi"
	"github.com/admin/ai-studio/internal/adapters/secondary/huggingface"
	kafkaAdapter "github.com/admin/ai-studio/internal/adapters/secondary/kafka"
	stripeAdapter "github.com/admin/ai-studio/internal/adapters/secondary/payment/stripe"
	"github.com/admin/ai-studio/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/ai-studio/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/ai-studio/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/admin/ai-studio/internal/adapters/secondary/storage/s3"
	"github.com/admin/ai-studio/internal/ports/cache"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/admin/ai-studio/internal/ports/repository"
	"github.com/admin/ai-studio/internal/ports/service"
	billingEventRepo "github.com/admin/ai-studio/internal/repository/billing_event"
	creditRepo "github.com/admin/ai-studio/internal/repository/credit"
	imageRepo "github.com/admin/ai-studio/internal/repository/image"
	jobRepo "github.com/admin/ai-studio/internal/repository/job"
	modelRepo "github.com/admin/ai-studio/internal/repository/model"
	userRepo "github.com/admin/ai-studio/internal/repository/user"
	videoRepo "github.com/admin/ai-studio/internal/repository/video"
	alerterService "github.com/admin/ai-studio/internal/services/alerter"
	artifactsService "github.com/admin/ai-studio/internal/services/artifacts"
	jobScheduler "github.com/admin/ai-studio/internal/services/jobs"
	billingUsecase "github.com/admin/ai-studio/internal/usecases/billing"
	creditsUsecase "github.com/admin/ai-studio/internal/usecases/credits"
	generationUsecase "github.com/admin/ai-studio/internal/usecases/generation"
	trainingUsecase "github.com/admin/ai-studio/internal/usecases/training"
	usersUsecase "github.com/admin/ai-studio/internal/usecases/users"
	videoUsecase "github.com/admin/ai-studio/internal/usecases/video"
)

type Dependencies struct {
	DB             *pg.DB
	HTTPServer     *http.Server
	KafkaProducers map[string]*kafkaAdapter.Producer
	KafkaConsumers map[string]*kafkaConsumerAdapter.Consumer
	Cache          cache.Cache
	JobScheduler   *jobScheduler.Scheduler
}

// initDependencies инициализирует все зависимости приложения
func (a *App) initDependencies(ctx context.Context) (*Dependencies, error) {
	db, err := a.initPostgres(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	repos := a.initRepositories(db)
	external := a.initExternalServices()

	kafkaProducers := a.initKafkaProducers()
	useCases := a.initUseCases(repos, external, kafkaProducers)

	kafkaConsumers := a.initKafkaConsumers(useCases)
	httpServer := a.initHTTP(db, external, useCases)

	scheduler, err := a.initJobScheduler(repos, external.Alerter)
	if err != nil {
		return nil, fmt.Errorf("failed to init job scheduler: %w", err)
	}

	return &Dependencies{
		DB:             db,
		HTTPServer:     httpServer,
		KafkaProducers: kafkaProducers,
		KafkaConsumers: kafkaConsumers,
		Cache:          external.Cache,
		JobScheduler:   scheduler,
	}, nil
}

// repositories содержит инициализированные репозитории
type repositories struct {
	Tx           persistence.Transactor
	User         repository.IUserRepo
	Credit       repository.ICreditRepo
	Image        repository.IImageRepo
	Video        repository.IVideoRepo
	Job          repository.IJobRepo
	Model        repository.IModelRepo
	BillingEvent repository.IBillingEventRepo
}

// initRepositories Postgres, если настроен, иначе in-memory хранилище (данные живут до рестарта)
func (a *App) initRepositories(db *pg.DB) *repositories {
	if db == nil {
		a.Log.Warn("postgres is not configured, using in-memory storage")
		store := inmemory.NewStore()
		return &repositories{
			Tx:           store,
			User:         store.Users(),
			Credit:       store.Credits(),
			Image:        store.Images(),
			Video:        store.Videos(),
			Job:          store.Jobs(),
			Model:        store.Models(),
			BillingEvent: store.BillingEvents(),
		}
	}

	return &repositories{
		Tx:           db,
		User:         userRepo.New(db, a.Log),
		Credit:       creditRepo.New(db, a.Log),
		Image:        imageRepo.New(db, a.Log),
		Video:        videoRepo.New(db, a.Log),
		Job:          jobRepo.New(db, a.Log),
		Model:        modelRepo.New(db, a.Log),
		BillingEvent: billingEventRepo.New(a.Log),
	}
}

// externalServices внешние сервисы, все кроме Cache опциональны и могут быть nil
type externalServices struct {
	Cache      cache.Cache
	CachePing  healthcheckController.Pinger
	Alerter    service.IAlerterService
	Artifacts  service.IArtifactStore
	Generation *genapi.Client
	Billing    service.IBillingProvider
	Hub        service.IModelHub
}

func (a *App) initExternalServices() *externalServices {
	services := &externalServices{}

	// Redis - опциональный, без него кэш в памяти процесса
	if a.Cfg.Redis.Enabled() {
		redisClient, err := a.Cfg.Redis.NewConnection()
		if err != nil {
			a.Log.Warn("failed to init redis cache, falling back to in-memory cache", "error", err)
		} else {
			client := redisAdapter.NewClient(redisClient, a.Cfg.Redis.KeyPrefix)
			services.Cache = client
			services.CachePing = client
			a.Log.Info("redis cache connected successfully")
		}
	}
	if services.Cache == nil {
		services.Cache = inmemory.NewCache()
	}

	// Alerter - опциональный, дубли алертов глушатся через кэш
	if a.Cfg.Alerter.Enabled() {
		services.Alerter = alerterService.New(alerterAdapter.NewClient(a.Cfg.Alerter, a.Log), services.Cache, a.Log)
	} else {
		a.Log.Warn("alerter is not configured, alerts will only be logged")
		services.Alerter = alerterService.New(alerterAdapter.NewNoop(a.Log), nil, a.Log)
	}

	if a.Cfg.S3.Enabled() {
		minioClient, err := a.Cfg.S3.NewClient()
		if err != nil {
			a.Log.Warn("failed to init s3, artifacts will be served from provider urls", "error", err)
		} else {
			s3Client := s3Adapter.NewClient(minioClient, a.Cfg.S3.Bucket, a.Log)
			services.Artifacts = artifactsService.New(s3Client, a.Cfg.S3.URLExpiry(), a.Log)
		}
	}

	// без ключей клиенты создаются всё равно: запросы упадут ошибкой провайдера, остальной API работает
	if !a.Cfg.GenAPI.Enabled() {
		a.Log.Warn("generation api key is not configured, generation requests will fail")
	}
	services.Generation = genapi.NewClient(a.Cfg.GenAPI, a.Log)

	if !a.Cfg.Stripe.Enabled() {
		a.Log.Warn("stripe is not configured, billing requests will fail")
	}
	services.Billing = stripeAdapter.NewProvider(a.Cfg.Stripe, a.Log)

	if a.Cfg.HuggingFace.Enabled() {
		services.Hub = huggingface.NewClient(a.Cfg.HuggingFace, a.Log)
	}

	return services
}

// initKafkaProducers producers, у которых нет consumer group
func (a *App) initKafkaProducers() map[string]*kafkaAdapter.Producer {
	producers := make(map[string]*kafkaAdapter.Producer)

	for _, kafkaCfg := range a.Cfg.Kafka.List {
		if kafkaCfg.Config.ConsumerGroup != "" {
			continue
		}
		prod, err := kafkaAdapter.NewProducer(kafkaCfg.Config, a.Log)
		if err != nil {
			a.Log.Warn("failed to create kafka producer", "error", err, "name", kafkaCfg.Name)
			continue
		}
		producers[kafkaCfg.Name] = prod
	}

	return producers
}

// initKafkaConsumers consumers с consumer group, обработчик выбирается по имени подключения
func (a *App) initKafkaConsumers(useCases *useCases) map[string]*kafkaConsumerAdapter.Consumer {
	consumers := make(map[string]*kafkaConsumerAdapter.Consumer)

	for _, kafkaCfg := range a.Cfg.Kafka.List {
		if kafkaCfg.Config.ConsumerGroup == "" {
			continue
		}

		var handler *kafkaHandlers.TrainingResultHandler
		switch kafkaCfg.Name {
		case kafkaAdapter.TrainingResults:
			handler = kafkaHandlers.NewTrainingResultHandler(useCases.Training, a.Log)
		default:
			a.Log.Warn("no handler for kafka topic, skipping consumer", "name", kafkaCfg.Name)
			continue
		}

		consumer, err := kafkaConsumerAdapter.NewConsumer(kafkaCfg.Config, handler, a.Log)
		if err != nil {
			a.Log.Warn("failed to create kafka consumer", "error", err, "name", kafkaCfg.Name)
			continue
		}
		consumers[kafkaCfg.Name] = consumer
	}

	return consumers
}

type useCases struct {
	Credits    *creditsUsecase.Service
	Users      *usersUsecase.Service
	Billing    *billingUsecase.Service
	Generation *generationUsecase.Service
	Video      *videoUsecase.Service
	Training   *trainingUsecase.Service
}

func (a *App) initUseCases(
	repos *repositories,
	external *externalServices,
	kafkaProducers map[string]*kafkaAdapter.Producer,
) *useCases {
	var events service.IEventPublisher
	if prod, ok := kafkaProducers[kafkaAdapter.DomainEvents]; ok {
		events = kafkaAdapter.NewEventPublisher(prod)
	}

	var trainingPublisher service.ITrainingPublisher
	if prod, ok := kafkaProducers[kafkaAdapter.TrainingRequests]; ok {
		trainingPublisher = kafkaAdapter.NewTrainingPublisher(prod)
	} else {
		a.Log.Warn("training requests producer is not configured, model training disabled")
	}

	studio := a.Cfg.Studio

	credits := creditsUsecase.New(repos.User, repos.Credit, repos.Job, events, a.Log)
	users := usersUsecase.New(repos.User, credits, studio.SignupBonus, studio.Admins(), a.Log)

	billing := billingUsecase.New(
		repos.User,
		repos.BillingEvent,
		credits,
		external.Billing,
		external.Alerter,
		a.Cfg.Billing.Catalog(),
		billingUsecase.URLs{
			SuccessURL:      a.Cfg.Billing.SuccessURL,
			CancelURL:       a.Cfg.Billing.CancelURL,
			PortalReturnURL: a.Cfg.Billing.PortalReturnURL,
		},
		a.Log,
	)

	generation := generationUsecase.New(
		repos.Tx,
		repos.Image,
		credits,
		external.Generation,
		external.Artifacts, // может быть nil
		events,             // может быть nil
		generationUsecase.Costs{Generate: studio.ImageCost, Edit: studio.EditCost},
		a.Log,
	)

	video := videoUsecase.New(
		repos.Tx,
		repos.Job,
		repos.Video,
		credits,
		external.Generation,
		external.Artifacts,
		external.Cache,
		events,
		videoUsecase.Config{
			Cost:        studio.VideoCost,
			CallbackURL: studio.VideoCallbackURL(),
			StatusTTL:   studio.VideoStatusTTL,
		},
		a.Log,
	)

	training := trainingUsecase.New(
		repos.Tx,
		repos.Job,
		repos.Model,
		credits,
		trainingPublisher, // может быть nil
		external.Hub,      // может быть nil
		studio.TrainingCost,
		a.Log,
	)

	return &useCases{
		Credits:    credits,
		Users:      users,
		Billing:    billing,
		Generation: generation,
		Video:      video,
		Training:   training,
	}
}

// initHTTP инициализирует HTTP сервер и контроллеры
func (a *App) initHTTP(db *pg.DB, external *externalServices, uc *useCases) *http.Server {
	verifier := middlewares.NewTokenVerifier(a.Cfg.Auth)
	auth := middlewares.Auth(verifier, uc.Users, a.Log)
	limiter := middlewares.NewRateLimiter(a.Cfg.Server.RateLimit, a.Cfg.Server.RateBurst)

	readiness := map[string]healthcheckController.Pinger{
		"cache": external.CachePing,
	}
	if db != nil {
		readiness["database"] = db
	}

	controllers := []server.Controller{
		healthcheckController.New(readiness, a.Log),
		accountController.New(uc.Users, uc.Credits, auth, a.Log),
		generationController.New(uc.Generation, auth, limiter.Handler(), a.Log),
		videoController.New(uc.Video, auth, limiter.Handler(), a.Log),
		trainingController.New(uc.Training, auth, a.Log),
		billingController.New(uc.Billing, auth, a.Log),
		adminController.New(uc.Credits, uc.Training, auth, a.Log),
		webhooksController.New(uc.Video, a.Cfg.Server.WebhookSecret, a.Log),
		alerterController.New(external.Alerter, a.Cfg.Server.WebhookSecret, a.Log),
	}

	return server.NewHTTPServer(a.Cfg.Server, a.Log, controllers...)
}

// initJobScheduler регистрирует фоновые джобы
func (a *App) initJobScheduler(repos *repositories, alerterSvc service.IAlerterService) (*jobScheduler.Scheduler, error) {
	scheduler := jobScheduler.NewScheduler(a.Log, alerterSvc)

	reaper, err := jobScheduler.NewStaleJobReaper(repos.Job, a.Cfg.Jobs.StaleJobMaxAge, a.Cfg.Jobs.StaleJobCron, a.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create stale job reaper: %w", err)
	}
	scheduler.Register(reaper)
	a.Log.Info("stale job reaper registered", "schedule", a.Cfg.Jobs.StaleJobCron)

	location, err := a.Cfg.Jobs.Location()
	if err != nil {
		return nil, err
	}
	expirer, err := jobScheduler.NewSubscriptionExpirer(repos.User, a.Cfg.Jobs.SubscriptionCron, location, a.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription expirer: %w", err)
	}
	scheduler.Register(expirer)
	a.Log.Info("subscription expirer registered", "schedule", a.Cfg.Jobs.SubscriptionCron)

	return scheduler, nil
}

// initPostgres подключается к PostgreSQL и накатывает миграции, nil если Postgres не настроен
func (a *App) initPostgres(ctx context.Context) (*pg.DB, error) {
	if !a.Cfg.Postgres.Enabled() {
		return nil, nil
	}

	db, err := a.Cfg.Postgres.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	a.Log.Info("postgres connected successfully")

	if err := pg.RunMigrations(ctx, db, a.Log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return pg.NewDB(db), nil
}
