package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Actor roles recorded on envelopes besides the token roles.
const (
	ActorRoleSystem  = "system"
	ActorRoleGateway = "gateway"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID *uuid.UUID `json:"userId,omitempty"`
	Role   string     `json:"role,omitempty"`
}

// SystemActor is used for scheduled jobs.
func SystemActor() *ActorRef {
	return &ActorRef{Role: ActorRoleSystem}
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
