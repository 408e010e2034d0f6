package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Handler reacts to one domain event after it has been decoded.
type Handler func(ctx context.Context, event Event) error

// Bus publishes and dispatches domain events over a Watermill
// publisher/subscriber pair. Use gochannel in dev/test, Kafka in
// production — the engine never talks to either transport directly.
type Bus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	subscriptions map[EventType]Handler
}

// New wraps a Watermill publisher/subscriber pair as a domain event Bus.
func New(pub message.Publisher, sub message.Subscriber) *Bus {
	return &Bus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[EventType]Handler),
	}
}

// Publish marshals and publishes a domain event under the shared topic.
func (b *Bus) Publish(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(EventTypeMetadataKey, string(event.GetType()))

	return b.publisher.Publish(Topic, msg)
}

// Handle registers a handler for the given event type. Only one
// handler per type is supported; call before Subscribe.
func (b *Bus) Handle(eventType EventType, handler Handler) {
	b.subscriptions[eventType] = handler
}

// Subscribe starts consuming the shared topic and dispatching to
// registered handlers. It returns once the subscription is
// established; dispatch runs in a background goroutine until ctx is
// canceled.
func (b *Bus) Subscribe(ctx context.Context) error {
	messages, err := b.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	go b.dispatch(ctx, messages)

	return nil
}

func (b *Bus) dispatch(ctx context.Context, messages <-chan *message.Message) {
	for msg := range messages {
		eventType := EventType(msg.Metadata.Get(EventTypeMetadataKey))

		handler, ok := b.subscriptions[eventType]
		if !ok {
			msg.Ack()

			continue
		}

		event, err := decode(eventType, msg.Payload)
		if err != nil {
			msg.Nack()

			continue
		}

		if err := handler(ctx, event); err != nil {
			msg.Nack()

			continue
		}

		msg.Ack()
	}
}

func decode(eventType EventType, payload []byte) (Event, error) {
	var event Event

	switch eventType {
	case CampaignStartedEvent:
		event = &CampaignStarted{}
	case StepFailedEvent:
		event = &StepFailed{}
	case CooldownAppliedEvent:
		event = &CooldownApplied{}
	case CampaignCompletedEvent:
		event = &CampaignCompleted{}
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("unmarshal %q event: %w", eventType, err)
	}

	return event, nil
}

// Close shuts down the publisher and subscriber.
func (b *Bus) Close() error {
	if err := b.publisher.Close(); err != nil {
		return err
	}

	return b.subscriber.Close()
}
