package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/sitebeam/notify-service/internal/config"
	"github.com/sitebeam/notify-service/internal/dispatch"
	deviceHandler "github.com/sitebeam/notify-service/internal/handler/device"
	eventHandler "github.com/sitebeam/notify-service/internal/handler/event"
	healthHandler "github.com/sitebeam/notify-service/internal/handler/health"
	notificationHandler "github.com/sitebeam/notify-service/internal/handler/notification"
	opsHandler "github.com/sitebeam/notify-service/internal/handler/ops"
	preferenceHandler "github.com/sitebeam/notify-service/internal/handler/preference"
	"github.com/sitebeam/notify-service/internal/middleware"
	"github.com/sitebeam/notify-service/internal/repository/postgres"
	"github.com/sitebeam/notify-service/internal/router"
	deviceService "github.com/sitebeam/notify-service/internal/service/device"
	notificationService "github.com/sitebeam/notify-service/internal/service/notification"
	preferenceService "github.com/sitebeam/notify-service/internal/service/preference"
	"github.com/sitebeam/notify-service/internal/worker"
	"github.com/sitebeam/notify-service/pkg/logger"
	redisbroker "github.com/sitebeam/notify-service/pkg/messaging/redis"
	"github.com/sitebeam/notify-service/pkg/metrics"
	"github.com/sitebeam/notify-service/pkg/security"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log)
	if err != nil {
		log.Fatal(err, "failed to connect to Redis")
	}
	defer broker.Close()

	key, err := security.ParseKey(cfg.Security.EncryptionKey)
	if err != nil {
		log.Fatal(err, "invalid encryption key")
	}
	encryptor, err := security.NewAESEncryptor(key)
	if err != nil {
		log.Fatal(err, "failed to initialize encryptor")
	}

	m := metrics.New("notify")

	base := postgres.NewBaseRepository(db, m)
	notificationRepo := postgres.NewNotificationRepository(base)
	deliveryRepo := postgres.NewDeliveryRepository(base)
	preferenceRepo := postgres.NewPreferenceRepository(base)
	deviceRepo := postgres.NewDeviceRepository(base)
	directory := postgres.NewUserDirectory(base)

	notificationSvc := notificationService.NewService(notificationRepo, log)
	preferenceSvc := preferenceService.NewService(preferenceRepo, log)
	deviceSvc := deviceService.NewService(deviceRepo, encryptor, log)

	dispatcher := dispatch.NewDispatcher(
		notificationRepo,
		deviceRepo,
		directory,
		preferenceSvc,
		broker,
		m,
		log,
	)

	janitor := worker.NewJanitor(notificationSvc, deliveryRepo, cfg.Janitor, log)

	auth := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, cfg.Auth.OperatorToken)

	r := router.NewRouter(
		auth,
		healthHandler.NewHandler(db),
		notificationHandler.NewHandler(notificationSvc),
		preferenceHandler.NewHandler(preferenceSvc),
		deviceHandler.NewHandler(deviceSvc),
		eventHandler.NewHandler(dispatcher),
		opsHandler.NewHandler(deliveryRepo, janitor, cfg.Worker.MaxRetries),
		router.Config{
			RateLimit: rate.Limit(100),
			RateBurst: 200,
			Registry:  prometheus.DefaultGatherer,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info("starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
