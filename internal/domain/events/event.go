// internal/domain/events/event.go
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a domain event.
type Type string

const (
	TypeOutreachCreated     Type = "outreach.created"
	TypeScheduleRegenerated Type = "outreach.schedule_regenerated"
	TypeStatusChanged       Type = "outreach.status_changed"
	TypeFollowUpLogged      Type = "followup.logged"
	TypeFollowUpUnlogged    Type = "followup.unlogged"
	TypeFollowUpSkipped     Type = "followup.skipped"
	TypeFollowUpUnskipped   Type = "followup.unskipped"
)

// Event is emitted after a mutation has been persisted.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Type       Type              `json:"type"`
	TenantID   uuid.UUID         `json:"tenant_id"`
	RecordID   uuid.UUID         `json:"record_id"`
	FollowUpID *uuid.UUID        `json:"followup_id,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Publisher delivers events to downstream consumers. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
