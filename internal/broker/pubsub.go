package broker

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"gocloud.dev/gcerrors"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub"
	_ "gocloud.dev/pubsub/rabbitpubsub"
)

// PubSubPublisher publishes through a gocloud.dev topic.
//
// For RabbitMQ open the topic as rabbit://<exchange>?key_name=X-Routing-Key so the
// routing key metadata becomes the AMQP routing key.
type PubSubPublisher struct {
	topic *pubsub.Topic
}

// OpenPubSubPublisher opens the topic identified by topicURL.
func OpenPubSubPublisher(ctx context.Context, topicURL string) (*PubSubPublisher, error) {
	topic, err := pubsub.OpenTopic(ctx, topicURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open topic %s: %w", topicURL, err)
	}
	return &PubSubPublisher{topic: topic}, nil
}

// Publish sends msg with its id, routing key and headers as metadata.
func (p *PubSubPublisher) Publish(ctx context.Context, msg Message) error {
	err := p.topic.Send(ctx, &pubsub.Message{
		Body:     msg.Body,
		Metadata: msg.metadata(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish message %s: %w", msg.ID, err)
	}
	return nil
}

// Close flushes and shuts down the topic.
func (p *PubSubPublisher) Close(ctx context.Context) error {
	return p.topic.Shutdown(ctx)
}

// PubSubSubscriber receives from a gocloud.dev subscription.
type PubSubSubscriber struct {
	subscription *pubsub.Subscription
}

// OpenPubSubSubscriber opens the subscription identified by subscriptionURL.
// With mem:// URLs the topic must already be open in the same process.
func OpenPubSubSubscriber(ctx context.Context, subscriptionURL string) (*PubSubSubscriber, error) {
	sub, err := pubsub.OpenSubscription(ctx, subscriptionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open subscription %s: %w", subscriptionURL, err)
	}
	return &PubSubSubscriber{subscription: sub}, nil
}

// Receive blocks until a message arrives or ctx is done.
func (s *PubSubSubscriber) Receive(ctx context.Context) (Delivery, error) {
	msg, err := s.subscription.Receive(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if gcerrors.Code(err) == gcerrors.FailedPrecondition {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("failed to receive message: %w", err)
	}

	m := fromMetadata(msg.Body, msg.Metadata)
	if m.ID == "" {
		m.ID = msg.LoggableID
	}
	return &pubSubDelivery{msg: msg, message: m, as: msg.As}, nil
}

// Close shuts down the subscription.
func (s *PubSubSubscriber) Close(ctx context.Context) error {
	return s.subscription.Shutdown(ctx)
}

type pubSubDelivery struct {
	msg     *pubsub.Message
	message Message
	// as exposes the driver message; msg.As outside tests.
	as func(i any) bool
}

func (d *pubSubDelivery) Message() Message { return d.message }

func (d *pubSubDelivery) Ack(context.Context) error {
	d.msg.Ack()
	return nil
}

// Nack without requeue rejects the AMQP delivery on rabbit:// subscriptions, so a queue
// with a dead-letter exchange receives it. Other drivers have no reject primitive in
// gocloud and the message is acked instead.
func (d *pubSubDelivery) Nack(_ context.Context, requeue bool) error {
	if requeue && d.msg.Nackable() {
		d.msg.Nack()
		return nil
	}
	if !requeue {
		var delivery amqp.Delivery
		if d.as != nil && d.as(&delivery) && delivery.Acknowledger != nil {
			if err := delivery.Reject(false); err != nil {
				return fmt.Errorf("failed to reject message %s: %w", d.message.ID, err)
			}
			return nil
		}
	}
	d.msg.Ack()
	return nil
}
