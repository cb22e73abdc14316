// Package outbox shapes workflow events for the durable outbox table and
// drains them to an external publisher.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/autonova/project-service/internal/model"
)

// Event topics. Consumers key routing off these names.
const (
	TopicProjectCreated        = "project.created"
	TopicProjectUpdated        = "project.updated"
	TopicQuoteApproved         = "quote.approved"
	TopicQuoteRejected         = "quote.rejected"
	TopicChangeRequestCreated  = "project.change-request.created"
	TopicChangeRequestApproved = "project.change-request.approved"
	TopicChangeRequestRejected = "project.change-request.rejected"
	TopicChangeRequestApplied  = "project.change-request.applied"
)

// Deltas carries the proposed scope changes on change-request events.
type Deltas struct {
	PriceDeltaCents *int64     `json:"priceDeltaCents,omitempty"`
	ExtraHours      *int       `json:"extraHours,omitempty"`
	NewDueDate      *time.Time `json:"newDueDate,omitempty"`
}

// Envelope is the common payload shape published on every topic. FromStatus
// and ToStatus are equal for events that do not advance a lifecycle. Payloads
// embed enough identifying fields for downstream consumers to deduplicate
// redelivered messages.
type Envelope struct {
	ProjectID       string         `json:"projectId"`
	QuoteID         string         `json:"quoteId,omitempty"`
	ChangeRequestID string         `json:"changeRequestId,omitempty"`
	FromStatus      string         `json:"fromStatus,omitempty"`
	ToStatus        string         `json:"toStatus,omitempty"`
	ChangedBy       model.Actor    `json:"changedBy"`
	OccurredAt      time.Time      `json:"occurredAt"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Deltas          *Deltas        `json:"deltas,omitempty"`
}

// NewMessage serializes env into an outbox row for topic. The caller inserts
// the row in the same transaction as the state change it describes.
func NewMessage(topic string, env Envelope) (*model.OutboxMessage, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return &model.OutboxMessage{
		ID:        model.NewID(),
		Topic:     topic,
		Payload:   payload,
		CreatedAt: env.OccurredAt,
	}, nil
}
