package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/seoulmarket/marketplace-backend/pkg/enums"
)

// ActorRef identifies who caused the event. System-driven events (expiry,
// payment callbacks) carry no actor.
type ActorRef struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role,omitempty"`
}

// NewActorRef returns nil for an anonymous actor.
func NewActorRef(userID uuid.UUID, role enums.UserRole) *ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &ActorRef{UserID: userID, Role: role}
}

// PayloadEnvelope is the stored shape of outbox_events.payload. Consumers
// dedupe on EventID.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
