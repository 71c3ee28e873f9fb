// Package broker abstracts the message broker the outbox publishes to and the inbox consumes from.
//
// Two transports are provided: gocloud.dev/pubsub (mem:// and rabbit:// URLs) and kafka.
// Both carry the message id, routing key and envelope headers as message metadata so consumers
// can deduplicate without parsing the body.
package broker

import (
	"context"
	"errors"
)

// Metadata keys reserved by the broker layer.
const (
	MetadataMessageID  = "X-Message-Id"
	MetadataRoutingKey = "X-Routing-Key"
)

// ErrClosed is returned by Receive once the subscription has been shut down.
var ErrClosed = errors.New("broker: subscription closed")

// Message is a broker-agnostic message.
type Message struct {
	// ID is the broker level message id. The outbox sets it to the outbox row id.
	ID         string
	RoutingKey string
	Headers    map[string]string
	Body       []byte
}

// metadata flattens the message into the string map carried by the transport.
func (m Message) metadata() map[string]string {
	md := make(map[string]string, len(m.Headers)+2)
	for k, v := range m.Headers {
		md[k] = v
	}
	if m.ID != "" {
		md[MetadataMessageID] = m.ID
	}
	if m.RoutingKey != "" {
		md[MetadataRoutingKey] = m.RoutingKey
	}
	return md
}

// fromMetadata is the inverse of metadata. Reserved keys stay in Headers too.
func fromMetadata(body []byte, md map[string]string) Message {
	headers := make(map[string]string, len(md))
	for k, v := range md {
		headers[k] = v
	}
	return Message{
		ID:         md[MetadataMessageID],
		RoutingKey: md[MetadataRoutingKey],
		Headers:    headers,
		Body:       body,
	}
}

// Publisher sends messages to the broker.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close(ctx context.Context) error
}

// Delivery is a received message awaiting settlement.
type Delivery interface {
	Message() Message
	Ack(ctx context.Context) error
	// Nack rejects the delivery. With requeue the broker redelivers it later,
	// otherwise it is dropped from the live queue.
	Nack(ctx context.Context, requeue bool) error
}

// Subscriber receives messages from one queue.
type Subscriber interface {
	Receive(ctx context.Context) (Delivery, error)
	Close(ctx context.Context) error
}
