package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sitebeam/notify-service/internal/config"
	"github.com/sitebeam/notify-service/internal/email"
	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/push"
	"github.com/sitebeam/notify-service/internal/repository/postgres"
	notificationService "github.com/sitebeam/notify-service/internal/service/notification"
	"github.com/sitebeam/notify-service/internal/worker"
	"github.com/sitebeam/notify-service/pkg/logger"
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
	deviceRepo := postgres.NewDeviceRepository(base)

	emailWorker := worker.NewDeliveryWorker(
		deliveryRepo,
		deviceRepo,
		worker.NewEmailTaskSender(email.NewSMTPSender(cfg.SMTP)),
		worker.Config{
			Channel:           model.ChannelEmail,
			Interval:          cfg.Worker.EmailInterval,
			BatchSize:         cfg.Worker.BatchSize,
			MaxRetries:        cfg.Worker.MaxRetries,
			BackoffBase:       cfg.Worker.RetryBackoffBase,
			ProcessingTimeout: cfg.Worker.ProcessingTimeout,
			TransportTimeout:  cfg.Worker.TransportTimeout,
		},
		m,
		log,
	)

	pushWorker := worker.NewDeliveryWorker(
		deliveryRepo,
		deviceRepo,
		worker.NewPushTaskSender(push.NewGatewaySender(cfg.Push), encryptor),
		worker.Config{
			Channel:           model.ChannelPush,
			Interval:          cfg.Worker.PushInterval,
			BatchSize:         cfg.Worker.BatchSize,
			MaxRetries:        cfg.Worker.MaxRetries,
			BackoffBase:       cfg.Worker.RetryBackoffBase,
			ProcessingTimeout: cfg.Worker.ProcessingTimeout,
			TransportTimeout:  cfg.Worker.TransportTimeout,
		},
		m,
		log,
	)

	notificationSvc := notificationService.NewService(notificationRepo, log)
	janitor := worker.NewJanitor(notificationSvc, deliveryRepo, cfg.Janitor, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for _, w := range []interface{ Start(context.Context) }{emailWorker, pushWorker, janitor} {
		wg.Add(1)
		go func(w interface{ Start(context.Context) }) {
			defer wg.Done()
			w.Start(ctx)
		}(w)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: mux,
	}
	go func() {
		log.Info("starting worker metrics server", "port", cfg.Server.MetricsPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start metrics server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down workers")

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "metrics server forced to shutdown")
	}

	log.Info("workers exited properly")
}
