package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kystlys/stay-engine/internal/api"
	"github.com/kystlys/stay-engine/internal/auth"
	"github.com/kystlys/stay-engine/internal/availability"
	"github.com/kystlys/stay-engine/internal/booking"
	"github.com/kystlys/stay-engine/internal/config"
	"github.com/kystlys/stay-engine/internal/inventory"
	"github.com/kystlys/stay-engine/internal/kvstore"
	"github.com/kystlys/stay-engine/internal/lockcode"
	"github.com/kystlys/stay-engine/internal/notify"
	"github.com/kystlys/stay-engine/internal/pkg/retry"
	"github.com/kystlys/stay-engine/internal/pkg/storage"
	"github.com/kystlys/stay-engine/internal/queue"
	"github.com/kystlys/stay-engine/internal/roomtype"
	"github.com/kystlys/stay-engine/internal/sideeffect"
	"github.com/kystlys/stay-engine/internal/staff"
	"github.com/kystlys/stay-engine/internal/webhook"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	DBPool   *pgxpool.Pool
	Logger   *zap.Logger
	Settings *config.Config
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router       *gin.Engine
	JWTManager   *auth.JWTManager
	Worker       *queue.Worker
	StaffService staff.Service

	closers []func() error
}

// Close releases broker and cache connections in reverse order of creation.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewContainer initializes all modules and returns the container.
func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	s := cfg.Settings
	log := cfg.Logger
	c := &Container{}

	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(s.BcryptCost)
	jwtManager := auth.NewJWTManager(s.JWTSecret, s.JWTAccessTokenTTL)
	policy := retry.Policy{
		Timeout:         s.SideEffectTimeout,
		Retries:         s.SideEffectRetries,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}

	// Idempotency keys
	var kv kvstore.Store
	if s.RedisAddr != "" {
		redisStore, err := kvstore.NewRedisStore(ctx, kvstore.RedisConfig{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
			Prefix:   "stay:",
		})
		if err != nil {
			return nil, err
		}
		kv = redisStore
	} else {
		log.Warn("REDIS_ADDR not set, idempotency keys are kept in memory")
		kv = kvstore.NewMemoryStore(time.Minute)
	}
	c.closers = append(c.closers, kv.Close)

	// Task queue
	var tasks queue.Queue
	if s.RabbitMQURL != "" {
		rabbit, err := queue.NewRabbitQueue(s.RabbitMQURL, s.TaskQueueName, log)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		tasks = rabbit
	} else {
		log.Warn("RABBITMQ_URL not set, side-effect tasks are queued in memory")
		tasks = queue.NewMemoryQueue(1024)
	}
	c.closers = append(c.closers, tasks.Close)

	// Webhook targets
	var targets []webhook.Target
	for _, url := range s.WebhookURLs {
		targets = append(targets, webhook.Target{
			Name:      "http:" + url,
			Deliverer: webhook.NewHTTPDeliverer(url, s.WebhookSecret, s.SideEffectTimeout),
		})
	}
	if len(s.KafkaBrokers) > 0 {
		stream := webhook.NewKafkaStream(s.KafkaBrokers, s.KafkaTopic, log)
		targets = append(targets, webhook.Target{Name: "kafka:" + s.KafkaTopic, Deliverer: stream})
		c.closers = append(c.closers, stream.Close)
	}
	fanout := webhook.NewFanout(kv, s.IdempotencyTTL, targets...)

	worker := queue.NewWorker(tasks, log)
	worker.Handle(webhook.TaskKind, webhook.Handler(fanout))

	// Staff Module
	staffRepo := staff.NewPgxRepository(cfg.DBPool)
	staffService := staff.NewService(staffRepo, passwordHasher, log)

	// RoomType Module
	fileStorage, err := storage.NewLocalStorage(s.StoragePath)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	rtRepo := roomtype.NewPgxRepository(cfg.DBPool)
	rtService := roomtype.NewService(rtRepo)
	photoService := roomtype.NewPhotoService(rtRepo, fileStorage)

	// Availability Module
	availabilityService := availability.NewService(availability.NewPgxRepository(cfg.DBPool))
	queryService := inventory.NewQueryService(inventory.NewPgxSource(cfg.DBPool))

	// Side effects. Collaborators without a configured provider stay nil
	// so the pipeline reports them as skipped.
	var locks sideeffect.LockService
	if s.LockProviderURL != "" {
		provider := lockcode.NewHTTPProvider(s.LockProviderURL, s.LockProviderToken, s.SideEffectTimeout)
		locks = lockcode.NewService(lockcode.NewPgxRepository(cfg.DBPool), provider, policy, s.CheckInHour, s.CheckOutHour)
	}
	var notifier sideeffect.Notifier
	if s.NotifyProviderURL != "" {
		sender := notify.NewHTTPSender(s.NotifyProviderURL, s.NotifyProviderToken, s.SideEffectTimeout)
		notifier = notify.NewDispatcher(sender, policy)
	}
	var enqueuer sideeffect.Enqueuer
	if fanout.Len() > 0 {
		enqueuer = tasks
	}
	pipeline := sideeffect.NewPipeline(locks, notifier, enqueuer, s.TaskMaxAttempts, log)

	// Booking Module
	bookingStore := booking.NewPgxStore(cfg.DBPool)
	bookingService := booking.NewService(bookingStore, pipeline, kv, log, booking.Options{
		IdempotencyTTL: s.IdempotencyTTL,
	})

	// API Router Config
	router := api.NewRouter(api.Config{
		IsProduction:        s.IsProduction,
		ProdOrigins:         s.ProdOrigins,
		Logger:              log,
		StaffService:        staffService,
		RoomTypeService:     rtService,
		PhotoService:        photoService,
		AvailabilityService: availabilityService,
		QueryService:        queryService,
		BookingService:      bookingService,
		JWTManager:          jwtManager,
	})

	c.Router = router
	c.JWTManager = jwtManager
	c.Worker = worker
	c.StaffService = staffService
	return c, nil
}
