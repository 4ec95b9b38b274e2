package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Othmneto/islamic-portal-app-sub000/internal/core/port"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/bus"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/config"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/database"
	kafkainfra "github.com/Othmneto/islamic-portal-app-sub000/internal/infra/kafka"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/logger"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/prayertime"
	redisinfra "github.com/Othmneto/islamic-portal-app-sub000/internal/infra/redis"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/security"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/infra/telemetry"
	postgresrepo "github.com/Othmneto/islamic-portal-app-sub000/internal/repository/postgres"
	redisrepo "github.com/Othmneto/islamic-portal-app-sub000/internal/repository/redis"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/transport/http/routes"
	"github.com/Othmneto/islamic-portal-app-sub000/internal/usecase"
)

// Application owns the process lifecycle: wiring, the HTTP server, the
// prayer scheduler, and the session TTL sweep loop.
type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	producer  *kafkainfra.Producer
	tracer    *telemetry.TracerProvider
	bus       *bus.PreferenceBus
	scheduler *usecase.PrayerScheduler
	sessions  *usecase.SessionManager
}

// New wires the full object graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	keyProvider, err := security.NewFileKeyProvider(cfg.JWT.KeyDirectory)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init key provider: %w", err)
	}
	jwtManager := security.NewJWTManager(keyProvider)

	var (
		producer       *kafkainfra.Producer
		eventPublisher port.EventPublisher
		pushQueue      port.PushQueue
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("kafka unavailable, events will be logged only", zap.Error(err))
		}
	}
	if producer != nil {
		eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
		pushQueue = kafkainfra.NewPushQueue(producer, cfg.Kafka.PushTopic, log)
		log.Info("kafka publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		eventPublisher = kafkainfra.NewStubPublisher(log)
		pushQueue = kafkainfra.NewStubPushQueue(log)
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	keyPrefix := cfg.Redis.KeyPrefix
	attemptTTL := cfg.BruteForce.IPWindow * 2
	sessionStore := postgresrepo.NewSessionRepository(pool)
	userRepo := postgresrepo.NewUserRepository(pool)
	preferenceRepo := postgresrepo.NewPreferenceRepository(pool)
	attemptStore := redisrepo.NewAttemptRepository(redisClient.Client(), keyPrefix+":attempts", attemptTTL)
	lockStore := redisrepo.NewLockoutRepository(redisClient.Client(), keyPrefix+":lockouts")
	deviceStore := redisrepo.NewDeviceRepository(redisClient.Client(), keyPrefix+":devices")
	activityStore := redisrepo.NewActivityRepository(redisClient.Client(), keyPrefix+":activities")

	preferenceBus := bus.New(256, log)

	sessions := usecase.NewSessionManager(cfg.Session, cfg.JWT, sessionStore, jwtManager, eventPublisher, metrics, log)
	guard := usecase.NewBruteForceGuard(cfg.BruteForce, attemptStore, lockStore, eventPublisher, metrics, log)
	risk := usecase.NewRiskScorer(cfg.Risk, activityStore, eventPublisher, metrics, log)
	fingerprint := usecase.NewDeviceFingerprinter(cfg.Device, deviceStore, log)
	auth := usecase.NewAuthService(guard, userRepo, fingerprint, risk, sessions, log)
	scheduler := usecase.NewPrayerScheduler(cfg.Scheduler, preferenceRepo, prayertime.New(), pushQueue, preferenceBus, metrics, log)

	engine, err := routes.Register(routes.Dependencies{
		Config:     cfg,
		Logger:     log,
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
		Database:   pool,
		Cache:      redisClient,
		Services: routes.ServiceSet{
			Auth:     auth,
			Sessions: sessions,
		},
	})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("register routes: %w", err)
	}

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		pool:      pool,
		redis:     redisClient,
		producer:  producer,
		tracer:    tracer,
		bus:       preferenceBus,
		scheduler: scheduler,
		sessions:  sessions,
	}, nil
}

// PreferenceBus exposes the in-process bus so preference-mutating callers
// can notify the scheduler.
func (a *Application) PreferenceBus() port.PreferenceBus {
	return a.bus
}

// Run serves HTTP, drives the prayer scheduler, and sweeps expired sessions
// until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.pool.Close()
	defer func() {
		_ = a.redis.Close()
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.tracer.Shutdown(shutdownCtx)
	}()
	defer a.bus.Close()

	go a.scheduler.Run(ctx)
	go a.sweepLoop(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting portal auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// sweepLoop hard-deletes expired sessions on the configured interval.
func (a *Application) sweepLoop(ctx context.Context) {
	interval := a.cfg.Session.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.sessions.SweepExpired(ctx); err != nil {
				a.logger.Warn("session sweep failed", zap.Error(err))
			}
		}
	}
}
