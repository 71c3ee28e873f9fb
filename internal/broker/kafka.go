package broker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures the kafka transport.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher writes every event to a single topic keyed by routing key.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for cfg.Topic.
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{writer: newKafkaWriter(cfg)}
}

func newKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}
}

// Publish writes msg synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	if err := p.writer.WriteMessages(ctx, toKafka(msg)); err != nil {
		return fmt.Errorf("failed to publish message %s: %w", msg.ID, err)
	}
	return nil
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close(context.Context) error {
	return p.writer.Close()
}

func toKafka(msg Message) kafka.Message {
	md := msg.metadata()
	headers := make([]kafka.Header, 0, len(md))
	for k, v := range md {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return kafka.Message{
		Key:     []byte(msg.RoutingKey),
		Value:   msg.Body,
		Headers: headers,
	}
}

func fromKafka(km kafka.Message) Message {
	md := make(map[string]string, len(km.Headers))
	for _, h := range km.Headers {
		md[h.Key] = string(h.Value)
	}
	m := fromMetadata(km.Value, md)
	if m.RoutingKey == "" {
		m.RoutingKey = string(km.Key)
	}
	return m
}

// KafkaSubscriber reads the topic as a member of a consumer group. Each queue uses its own
// group so every queue sees every event.
type KafkaSubscriber struct {
	reader *kafka.Reader
	// requeue republishes nacked messages to the tail of the topic.
	requeue *kafka.Writer
}

// NewKafkaSubscriber creates a subscriber for the consumer group groupID.
func NewKafkaSubscriber(cfg KafkaConfig, groupID string) *KafkaSubscriber {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     groupID,
		StartOffset: kafka.FirstOffset,
		MaxBytes:    10e6,
	})
	return &KafkaSubscriber{reader: reader, requeue: newKafkaWriter(cfg)}
}

// Receive fetches the next message without committing its offset.
func (s *KafkaSubscriber) Receive(ctx context.Context) (Delivery, error) {
	km, err := s.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	return &kafkaDelivery{sub: s, raw: km, message: fromKafka(km)}, nil
}

// Close leaves the consumer group.
func (s *KafkaSubscriber) Close(context.Context) error {
	return errors.Join(s.reader.Close(), s.requeue.Close())
}

type kafkaDelivery struct {
	sub     *KafkaSubscriber
	raw     kafka.Message
	message Message
}

func (d *kafkaDelivery) Message() Message { return d.message }

func (d *kafkaDelivery) Ack(ctx context.Context) error {
	return d.sub.reader.CommitMessages(ctx, d.raw)
}

// Nack commits the offset. With requeue a copy is appended to the topic first, since kafka
// has no per-message redelivery.
func (d *kafkaDelivery) Nack(ctx context.Context, requeue bool) error {
	if requeue {
		if err := d.sub.requeue.WriteMessages(ctx, toKafka(d.message)); err != nil {
			return fmt.Errorf("failed to requeue message %s: %w", d.message.ID, err)
		}
	}
	return d.sub.reader.CommitMessages(ctx, d.raw)
}
