package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

func TestResolveDecodesOrderCreated(t *testing.T) {
	reg := newTestEventRegistry(t)
	orderID := uuid.New()
	data, err := json.Marshal(payloads.OrderCreatedEvent{OrderID: orderID, CheckoutID: uuid.New(), UserID: "guest", IsGuest: true})
	require.NoError(t, err)

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelopeFor(t, 1, data),
	})
	require.NoError(t, err)
	assert.Equal(t, "orders-topic", resolved.Descriptor.Topic)
	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, orderID, payload.OrderID)
	assert.True(t, payload.IsGuest)
	assert.NotEmpty(t, resolved.Envelope.EventID)
}

func TestResolveRoutesTopics(t *testing.T) {
	reg := newTestEventRegistry(t)
	cases := []struct {
		eventType enums.OutboxEventType
		aggregate enums.OutboxAggregateType
		topic     string
	}{
		{enums.EventOrderPaid, enums.AggregateOrder, "orders-topic"},
		{enums.EventOrderStatusChanged, enums.AggregateOrder, "orders-topic"},
		{enums.EventReturnRequested, enums.AggregateReturnRequest, "orders-topic"},
		{enums.EventGuestConverted, enums.AggregateGuestUser, "orders-topic"},
		{enums.EventNotificationRequested, enums.AggregateNotification, "notification-topic"},
	}
	for _, tc := range cases {
		t.Run(string(tc.eventType), func(t *testing.T) {
			resolved, err := reg.Resolve(models.OutboxEvent{
				EventType:     tc.eventType,
				AggregateType: tc.aggregate,
				AggregateID:   uuid.New(),
				Payload:       envelopeFor(t, 0, []byte(`{}`)),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.topic, resolved.Descriptor.Topic)
		})
	}
}

func TestResolveRejectsRowsThatCannotPublish(t *testing.T) {
	reg := newTestEventRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType: "subscription_renewed", AggregateType: enums.AggregateOrder,
			AggregateID: uuid.New(), Payload: envelopeFor(t, 1, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateReturnRequest,
			AggregateID: uuid.New(), Payload: envelopeFor(t, 1, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder,
			Payload: envelopeFor(t, 1, []byte(`{}`)),
		},
		"null payload": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder,
			AggregateID: uuid.New(), Payload: envelopeFor(t, 1, []byte("null")),
		},
		"newer envelope": {
			EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder,
			AggregateID: uuid.New(), Payload: envelopeFor(t, 2, []byte(`{}`)),
		},
		"broken envelope": {
			EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder,
			AggregateID: uuid.New(), Payload: json.RawMessage(`{"version":`),
		},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			var nonRetry NonRetryableError
			require.True(t, errors.As(err, &nonRetry), "got %v", err)
		})
	}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, []string{"notification-topic", "orders-topic"}, newTestEventRegistry(t).Topics())
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "n"})
	require.Error(t, err)
	_, err = NewEventRegistry(config.PubSubConfig{OrdersTopic: "o"})
	require.Error(t, err)
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders-topic", NotificationTopic: "notification-topic"})
	require.NoError(t, err)
	return reg
}

func envelopeFor(t *testing.T, version int, data []byte) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return raw
}
