package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order_service/internal/config"
	"order_service/internal/database"
	"order_service/internal/ingest"
	"order_service/internal/logger"
	"order_service/internal/metrics"
	"order_service/internal/middleware"
	"order_service/internal/queue"
	"order_service/internal/router"
	"order_service/internal/store"
	"order_service/internal/tracer"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "order-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. 配置 + 日志
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, tracer.Config{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.TracingEndpoint,
		SampleRate:  cfg.TracingSampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector("order_service", reg)

	// 2. Redis：STORE_DRIVER=redis 或开启限流时才需要
	var rdb *rd.Client
	if cfg.StoreDriver == config.StoreRedis || cfg.RateLimitEnabled {
		rdb = rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
	}

	// 3. 订单存储
	var orders store.Store
	switch cfg.StoreDriver {
	case config.StoreRedis:
		orders = store.NewRedisStore(rdb)
	default:
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = database.Close(db) }()
		if err := database.Migrate(db, log); err != nil {
			return err
		}
		orders = store.NewGormStore(db)
	}
	log.Info("order store ready", zap.String("driver", cfg.StoreDriver))

	// 4. Kafka：确保 topic 存在，再创建 producer
	topicCtx, cancelTopic := context.WithTimeout(ctx, cfg.PublishTimeout)
	err = queue.EnsureTopic(topicCtx, cfg.KafkaBrokers, queue.TopicSpec{
		Name:              cfg.KafkaTopic,
		Partitions:        cfg.KafkaTopicPartitions,
		ReplicationFactor: cfg.KafkaTopicReplication,
	})
	cancelTopic()
	if err != nil {
		return fmt.Errorf("ensure topic: %w", err)
	}
	log.Info("kafka topic ready",
		zap.String("topic", cfg.KafkaTopic),
		zap.Int("partitions", cfg.KafkaTopicPartitions),
		zap.Int("replication_factor", cfg.KafkaTopicReplication),
	)

	producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.PublishTimeout)
	defer func() { _ = producer.Close() }()

	svc := ingest.NewService(orders, producer, log,
		ingest.WithTimeouts(cfg.StoreTimeout, cfg.PublishTimeout),
		ingest.WithMetrics(m),
	)

	// 5. 验证用 listener
	var listener *queue.Listener
	listenerDone := make(chan struct{})
	if cfg.ListenerEnabled {
		listener = queue.NewListener(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, log, m)
		go func() {
			defer close(listenerDone)
			listener.Run(ctx)
		}()
		log.Info("listener started", zap.String("group_id", cfg.KafkaGroupID))
	} else {
		close(listenerDone)
	}

	// 6. HTTP
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(log, m))

	deps := router.Deps{
		Ingest:   svc,
		Orders:   orders,
		Listener: listener,
		Gatherer: reg,
	}
	if cfg.RateLimitEnabled {
		deps.RateLimit = middleware.RedisRateLimit(rdb, cfg.OrderRateLimit, cfg.OrderRateWindow, log)
	}
	router.Setup(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	// 7. 优雅退出：先停 HTTP，再停 listener，producer/store 由 defer 关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	stop()
	if listener != nil {
		_ = listener.Close()
	}
	select {
	case <-listenerDone:
	case <-shutdownCtx.Done():
		log.Warn("listener did not stop before shutdown timeout")
	}
	log.Info("server stopped")
	return nil
}
