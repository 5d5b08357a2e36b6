package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives RunCompleted events.
const DefaultTopic = "newsvendor.runs.completed"

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Recorder receives publish outcomes. *observability.Metrics satisfies it.
type Recorder interface {
	RecordEvent(err error)
}

// KafkaOptions configures a KafkaPublisher.
type KafkaOptions struct {
	Brokers  []string
	Topic    string // defaults to DefaultTopic
	Logger   *zerolog.Logger
	Recorder Recorder
}

// KafkaPublisher writes events as JSON keyed by run_id, so all events for
// a run land on one partition.
type KafkaPublisher struct {
	writer   messageWriter
	topic    string
	logger   zerolog.Logger
	recorder Recorder
}

// NewKafkaPublisher creates a publisher with a synchronous writer.
func NewKafkaPublisher(opts KafkaOptions) (*KafkaPublisher, error) {
	if len(opts.Brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher: no brokers configured")
	}
	topic := opts.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(opts.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaPublisher(w, topic, opts), nil
}

func newKafkaPublisher(w messageWriter, topic string, opts KafkaOptions) *KafkaPublisher {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "events").Logger()
	}
	return &KafkaPublisher{
		writer:   w,
		topic:    topic,
		logger:   logger,
		recorder: opts.Recorder,
	}
}

// PublishRunCompleted writes one event.
func (p *KafkaPublisher) PublishRunCompleted(ctx context.Context, e RunCompleted) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode run event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.RunID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("run_completed")},
		},
	})
	if p.recorder != nil {
		p.recorder.RecordEvent(err)
	}
	if err != nil {
		p.logger.Warn().Err(err).Str("run_id", e.RunID).Str("topic", p.topic).Msg("publish failed")
		return fmt.Errorf("publish run event: %w", err)
	}

	p.logger.Debug().Str("run_id", e.RunID).Int("best_q", e.BestQ).Msg("run event published")
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
