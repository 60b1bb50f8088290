package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/ramukaka/market/internal/logger"
	r "github.com/ramukaka/market/internal/repository"
	"github.com/segmentio/kafka-go"
)

const TopicOrdersPlaced = "orders-placed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller forwards order events committed alongside their order to kafka.
type OutboxPoller struct {
	eventTick time.Duration
	batchSize int
	repo      r.OutboxRepository
	writer    messageWriter
	log       *slog.Logger
}

func NewOutboxPoller(repo r.OutboxRepository, log *slog.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicOrdersPlaced,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return &OutboxPoller{
		eventTick: time.Second,
		batchSize: 100,
		repo:      repo,
		writer:    w,
		log:       logger.OrDefault(log),
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			p.log.ErrorContext(ctx, "failed to publish outbox event", "event_id", event.ID, "error", err)
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.ErrorContext(ctx, "failed to mark outbox event as processed", "event_id", event.ID, "error", err)
			continue
		}
		p.log.DebugContext(ctx, "outbox event published", "event_id", event.ID, "order_id", event.AggregateId)
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *r.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateId), // order id keeps one order's events on one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}
