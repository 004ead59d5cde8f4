package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.GiftingTopic == "" {
		return nil, fmt.Errorf("gifting topic is required")
	}
	if cfg.OrdersTopic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("notification topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	giftingTopic := cfg.GiftingTopic
	ordersTopic := cfg.OrdersTopic
	notificationTopic := cfg.NotificationTopic

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventExecutionStarted,
			AggregateType:  enums.AggregateExecution,
			Topic:          giftingTopic,
			PayloadFactory: func() interface{} { return &payloads.ExecutionStartedEvent{} },
		},
		{
			EventType:      enums.EventExecutionStateChanged,
			AggregateType:  enums.AggregateExecution,
			Topic:          giftingTopic,
			PayloadFactory: func() interface{} { return &payloads.ExecutionStateChangedEvent{} },
		},
		{
			EventType:      enums.EventExecutionFailed,
			AggregateType:  enums.AggregateExecution,
			Topic:          giftingTopic,
			PayloadFactory: func() interface{} { return &payloads.ExecutionFailedEvent{} },
		},
		{
			EventType:      enums.EventExecutionCompleted,
			AggregateType:  enums.AggregateExecution,
			Topic:          giftingTopic,
			PayloadFactory: func() interface{} { return &payloads.ExecutionCompletedEvent{} },
		},
		{
			EventType:      enums.EventAddressRequestIssued,
			AggregateType:  enums.AggregateExecution,
			Topic:          giftingTopic,
			PayloadFactory: func() interface{} { return &payloads.AddressRequestIssuedEvent{} },
		},
		{
			EventType:      enums.EventAddressCollected,
			AggregateType:  enums.AggregateExecution,
			Topic:          giftingTopic,
			PayloadFactory: func() interface{} { return &payloads.AddressCollectedEvent{} },
		},
	} {
		reg.register(desc)
	}

	reg.register(EventDescriptor{
		EventType:      enums.EventGiftOrderCreated,
		AggregateType:  enums.AggregateGiftOrder,
		Topic:          ordersTopic,
		PayloadFactory: func() interface{} { return &payloads.GiftOrderCreatedEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventNudgeSent,
		AggregateType:  enums.AggregateNudge,
		Topic:          notificationTopic,
		PayloadFactory: func() interface{} { return &payloads.NudgeSentEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventNotificationRequested,
		AggregateType:  enums.AggregateNotification,
		Topic:          notificationTopic,
		PayloadFactory: func() interface{} { return &payloads.NotificationRequestedEvent{} },
	})

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
