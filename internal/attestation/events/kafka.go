package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"trustlink/internal/attestation/metrics"
	"trustlink/internal/attestation/models"
)

const (
	sinkKafka           = "kafka"
	defaultQueueSize    = 1024
	defaultFlushTimeout = 5 * time.Second
	kindHeader          = "trustlink-event-kind"
)

// ErrQueueFull is returned by KafkaPublisher.Publish when the outbound queue
// cannot take another event. The event is dropped.
var ErrQueueFull = errors.New("event queue full")

// ErrPublisherClosed is returned by KafkaPublisher.Publish after Close.
var ErrPublisherClosed = errors.New("event publisher closed")

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
}

// KafkaPublisher queues events and produces them to a topic from a background
// worker. Records are keyed by the event key so per-subject and per-issuer
// ordering holds within a partition.
type KafkaPublisher struct {
	producer     Producer
	topic        string
	queue        chan models.Event
	mu           sync.RWMutex
	closed       bool
	logger       *slog.Logger
	metrics      *metrics.Metrics
	flushTimeout time.Duration
}

type KafkaOption func(*KafkaPublisher)

func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(p *KafkaPublisher) {
		p.logger = logger
	}
}

func WithKafkaMetrics(m *metrics.Metrics) KafkaOption {
	return func(p *KafkaPublisher) {
		p.metrics = m
	}
}

func WithQueueSize(n int) KafkaOption {
	return func(p *KafkaPublisher) {
		if n > 0 {
			p.queue = make(chan models.Event, n)
		}
	}
}

func NewKafkaPublisher(producer Producer, topic string, opts ...KafkaOption) *KafkaPublisher {
	p := &KafkaPublisher{
		producer:     producer,
		topic:        topic,
		queue:        make(chan models.Event, defaultQueueSize),
		logger:       slog.Default(),
		flushTimeout: defaultFlushTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish enqueues the event without blocking. Events offered after Close
// are dropped.
func (p *KafkaPublisher) Publish(_ context.Context, event models.Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.IncrementDropped(sinkKafka, string(event.Kind))
		return ErrPublisherClosed
	}
	select {
	case p.queue <- event:
		return nil
	default:
		p.metrics.IncrementDropped(sinkKafka, string(event.Kind))
		return ErrQueueFull
	}
}

// Close stops accepting events. Run produces whatever is already queued and
// then returns. Close is safe to call more than once.
func (p *KafkaPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.queue)
}

// Run produces queued events until Close, then flushes the producer within
// the flush timeout. Cancelling ctx does not abort delivery of queued events;
// the caller stops the publisher with Close once nothing can publish anymore.
func (p *KafkaPublisher) Run(ctx context.Context) error {
	produceCtx := context.WithoutCancel(ctx)
	for event := range p.queue {
		p.produce(produceCtx, event)
	}

	flushCtx, cancel := context.WithTimeout(produceCtx, p.flushTimeout)
	defer cancel()
	if err := p.producer.Flush(flushCtx); err != nil {
		p.logger.WarnContext(flushCtx, "kafka flush failed", "error", err)
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) produce(ctx context.Context, event models.Event) {
	record, err := p.record(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode event", "error", err, "kind", string(event.Kind))
		p.metrics.IncrementDropped(sinkKafka, string(event.Kind))
		return
	}
	kind := string(event.Kind)
	p.producer.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.WarnContext(ctx, "failed to produce event", "error", err, "kind", kind)
			p.metrics.IncrementDropped(sinkKafka, kind)
			return
		}
		p.metrics.IncrementPublished(sinkKafka, kind)
	})
}

func (p *KafkaPublisher) record(event models.Event) (*kgo.Record, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: kindHeader, Value: []byte(event.Kind)},
		},
	}, nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, admin *kadm.Client, topic string, partitions int32, replicationFactor int16) error {
	responses, err := admin.CreateTopics(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, resp := range responses {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}
