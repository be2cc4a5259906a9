package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/extracurricular/internal/api"
	"example.com/extracurricular/internal/cache"
	"example.com/extracurricular/internal/catalog"
	"example.com/extracurricular/internal/config"
	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/internal/enrollment"
	"example.com/extracurricular/internal/observability/logger"
	"example.com/extracurricular/internal/outbox"
	httptransport "example.com/extracurricular/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Config{Env: cfg.LogEnv, Level: cfg.LogLevel, ServiceName: "enrollment-api"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	seed, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatal("failed to load catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
	}
	store, err := enrollment.NewStore(seed)
	if err != nil {
		log.Fatal("invalid catalog", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		publisher  domain.EventPublisher = outbox.NoopPublisher{}
		dispatcher *outbox.Dispatcher
	)
	if cfg.NotificationsEnabled() {
		queue := outbox.NewQueue(cfg.OutboxQueueSize)
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers, 10*time.Millisecond)
		defer producer.Close()

		dispatcher = outbox.NewDispatcher(queue, producer, outbox.DispatcherConfig{
			Topic:        cfg.KafkaTopic,
			PollInterval: cfg.OutboxPollInterval,
			BatchSize:    cfg.OutboxBatchSize,
			MaxAttempts:  cfg.OutboxMaxAttempts,
		}, log.Named("outbox"))
		go dispatcher.Start(ctx)
		publisher = queue
		log.Info("enrollment notifications enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	service := domain.NewService(store, publisher, log)
	handler := api.NewHandler(service, cache.NewMemory(cfg.IdempotencyTTL), log)

	router := chi.NewRouter()
	router.Use(httptransport.RequestLogger(log), httptransport.CORS(cfg.CORSOrigin))
	handler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), router)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("enrollment api listening", zap.String("addr", cfg.HTTPAddress), zap.Int("activities", len(seed)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-shutdownCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}

	// Stop the dispatcher only after in-flight requests have queued their events.
	cancel()
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
