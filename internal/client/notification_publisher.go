package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NotificationPublisher publishes materials workflow events to NATS
// JetStream for consumption by the platform notifications service.
//
// Subject convention: notifications.mm.<event_type>
// Event types: transfer_created, transfer_separated, transfer_dispatched,
//              transfer_received, transfer_divergence, transfer_canceled,
//              requisition_approved, purchase_order_approved
//
// All publish operations are non-fatal — errors are logged but never
// propagated to the caller, so notification failures never interrupt
// workflow operations.
type NotificationPublisher struct {
	js  nats.JetStreamContext
	log zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType    string                 `json:"event_type"`
	TenantID     string                 `json:"tenant_id"`
	ActorID      string                 `json:"actor_id"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Severity     string                 `json:"severity,omitempty"`
	Category     string                 `json:"category,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// NewNotificationPublisher connects to NATS and returns a publisher. An
// empty URL returns a disabled publisher that drops all events.
func NewNotificationPublisher(url string, log zerolog.Logger) (*NotificationPublisher, error) {
	if url == "" {
		return &NotificationPublisher{log: log}, nil
	}

	nc, err := nats.Connect(url, nats.Name("be-mm-materials"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open JetStream context: %w", err)
	}

	return &NotificationPublisher{js: js, log: log}, nil
}

// PublishTransferEvent publishes a transfer workflow event.
// Subject: notifications.mm.<eventType>
func (p *NotificationPublisher) PublishTransferEvent(ctx context.Context, eventType, transferID, tenantID, actorID string, payload map[string]interface{}) {
	p.publish(ctx, eventType, "transfer", transferID, tenantID, actorID, payload)
}

// PublishDocumentEvent publishes a requisition or purchase order event.
func (p *NotificationPublisher) PublishDocumentEvent(ctx context.Context, eventType, resourceType, resourceID, tenantID, actorID string, payload map[string]interface{}) {
	p.publish(ctx, eventType, resourceType, resourceID, tenantID, actorID, payload)
}

func (p *NotificationPublisher) publish(ctx context.Context, eventType, resourceType, resourceID, tenantID, actorID string, payload map[string]interface{}) {
	if p.js == nil {
		return
	}

	event := &NotificationEvent{
		EventType:    eventType,
		TenantID:     tenantID,
		ActorID:      actorID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Severity:     "info",
		Category:     "mm_workflow",
		Payload:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.mm.%s", eventType)
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("resource_id", resourceID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("resource_id", resourceID).
		Msg("notification: event published")
}
