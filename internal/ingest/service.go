package ingest

import (
	"context"
	"time"

	"order_service/internal/metrics"
	"order_service/internal/model"
	"order_service/internal/queue"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultStoreTimeout   = 5 * time.Second
	defaultPublishTimeout = 10 * time.Second
)

// OrderStore 是落库依赖，只需要 upsert。
type OrderStore interface {
	Upsert(ctx context.Context, order *model.Order) error
}

// Publisher 是发布依赖，Publish 返回即表示 broker 已确认。
type Publisher interface {
	Publish(ctx context.Context, msg queue.OrderMessage) error
	Topic() string
}

// Confirmation 表示订单已落库并已发布。
type Confirmation struct {
	OrderID     string    `json:"order_id"`
	Topic       string    `json:"topic"`
	StoredAt    time.Time `json:"stored_at"`
	PublishedAt time.Time `json:"published_at"`
}

// Service 串行执行「落库 → 发布」两步，两步之间没有事务：
// 发布失败时记录仍然保留，不做补偿、不重试。
type Service struct {
	store     OrderStore
	publisher Publisher
	log       *zap.Logger
	metrics   *metrics.Collector
	tracer    trace.Tracer

	storeTimeout   time.Duration
	publishTimeout time.Duration
}

type Option func(*Service)

// WithTimeouts 设置两步各自的等待上限，<=0 的值保持默认。
func WithTimeouts(store, publish time.Duration) Option {
	return func(s *Service) {
		if store > 0 {
			s.storeTimeout = store
		}
		if publish > 0 {
			s.publishTimeout = publish
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store OrderStore, publisher Publisher, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:          store,
		publisher:      publisher,
		log:            log,
		tracer:         otel.Tracer("order_service/ingest"),
		storeTimeout:   defaultStoreTimeout,
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitOrder 先 upsert 再发布。
//  1. 落库失败：返回 StoreFailure（或 Timeout），不会发布。
//  2. 发布失败：返回 PublishFailure（或 Timeout），已落库的记录不回滚。
//  3. 两步都成功：返回 Confirmation。
func (s *Service) SubmitOrder(ctx context.Context, order model.Order) (Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "ingest.SubmitOrder", trace.WithAttributes(
		attribute.String("order.id", order.OrderID),
		attribute.String("messaging.destination", s.publisher.Topic()),
	))
	defer span.End()

	storedAt, err := s.persist(ctx, &order)
	if err != nil {
		return Confirmation{}, s.fail(span, order, newError(StageStore, order.OrderID, err))
	}

	publishedAt, err := s.publish(ctx, order)
	if err != nil {
		return Confirmation{}, s.fail(span, order, newError(StagePublish, order.OrderID, err))
	}

	s.observe(metrics.ResultSuccess)
	s.log.Info("order ingested",
		zap.String("order_id", order.OrderID),
		zap.String("user_id", order.UserID),
		zap.Float64("amount", order.Amount),
		zap.String("topic", s.publisher.Topic()),
	)
	return Confirmation{
		OrderID:     order.OrderID,
		Topic:       s.publisher.Topic(),
		StoredAt:    storedAt,
		PublishedAt: publishedAt,
	}, nil
}

func (s *Service) persist(ctx context.Context, order *model.Order) (time.Time, error) {
	ctx, span := s.tracer.Start(ctx, "ingest.store")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	start := time.Now()
	err := s.store.Upsert(ctx, order)
	if s.metrics != nil {
		s.metrics.StoreDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return time.Time{}, err
	}
	return time.Now(), nil
}

func (s *Service) publish(ctx context.Context, order model.Order) (time.Time, error) {
	ctx, span := s.tracer.Start(ctx, "ingest.publish")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	start := time.Now()
	err := s.publisher.Publish(ctx, queue.NewOrderMessage(order))
	if s.metrics != nil {
		s.metrics.PublishDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return time.Time{}, err
	}
	return time.Now(), nil
}

func (s *Service) fail(span trace.Span, order model.Order, e *Error) error {
	span.RecordError(e)
	span.SetStatus(codes.Error, e.Kind.String())
	s.observe(e.Kind.String())

	fields := []zap.Field{
		zap.String("order_id", order.OrderID),
		zap.String("stage", string(e.Stage)),
		zap.String("kind", e.Kind.String()),
		zap.Error(e.Err),
	}
	if e.Stored() {
		// 记录已落库但事件未发出，由调用方自行核对。
		s.log.Error("order stored but event not published", fields...)
	} else {
		s.log.Error("order not stored", fields...)
	}
	return e
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.OrdersSubmitted.WithLabelValues(result).Inc()
	}
}
