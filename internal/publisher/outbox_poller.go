package publisher

import (
	"context"
	"log/slog"
	"time"

	r "github.com/fjod/go_storefront/internal/repository"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "storefront-orders"

// MessageWriter is the part of *kafka.Writer the poller uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Options struct {
	Topic        string
	BatchSize    int
	EventTick    time.Duration
	PurgeTick    time.Duration
	Retention    time.Duration
	WriteTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Topic == "" {
		o.Topic = DefaultTopic
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.EventTick <= 0 {
		o.EventTick = time.Second
	}
	if o.PurgeTick <= 0 {
		o.PurgeTick = time.Hour
	}
	if o.Retention <= 0 {
		o.Retention = 7 * 24 * time.Hour
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	return o
}

type OutboxPoller struct {
	opts   Options
	repo   r.OutboxRepository
	writer MessageWriter
	log    *slog.Logger
	now    func() time.Time
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
}

func NewOutboxPoller(repo r.OutboxRepository, writer MessageWriter, opts Options, log *slog.Logger) *OutboxPoller {
	return &OutboxPoller{
		opts:   opts.withDefaults(),
		repo:   repo,
		writer: writer,
		log:    log.With(slog.String("component", "outbox_poller")),
		now:    time.Now,
	}
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) error {
	eventTicker := time.NewTicker(p.opts.EventTick)
	purgeTicker := time.NewTicker(p.opts.PurgeTick)
	defer eventTicker.Stop()
	defer purgeTicker.Stop()

	p.log.Info("outbox poller started", slog.String("topic", p.opts.Topic))
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-purgeTicker.C:
			p.purgeProcessedEvents(ctx)
		case <-ctx.Done():
			p.log.Info("outbox poller stopped")
			return nil
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

// processUnpublishedEvents publishes one batch and returns how many events were marked processed.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.opts.BatchSize)
	if err != nil {
		p.log.Error("failed to fetch outbox events", slog.Any("error", err))
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.log.Warn("failed to publish outbox event",
				slog.Int64("event_id", event.ID), slog.Any("error", err))
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Warn("failed to mark outbox event as processed",
				slog.Int64("event_id", event.ID), slog.Any("error", err))
			continue
		}
		published++
	}
	if published > 0 {
		p.log.Debug("outbox events published", slog.Int("count", published))
	}
	return published
}

func (p *OutboxPoller) purgeProcessedEvents(ctx context.Context) {
	n, err := p.repo.PurgeProcessedEvents(ctx, p.now().Add(-p.opts.Retention))
	if err != nil {
		p.log.Error("failed to purge processed outbox events", slog.Any("error", err))
		return
	}
	if n > 0 {
		p.log.Info("purged processed outbox events", slog.Int64("count", n))
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *r.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.WriteTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order number keeps per-order ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
