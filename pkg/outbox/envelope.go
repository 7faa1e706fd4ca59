package outbox

import (
	"encoding/json"
	"time"
)

// OwnerRef identifies the cart owner that produced the event.
type OwnerRef struct {
	UserID    *string `json:"userId,omitempty"`
	SessionID *string `json:"sessionId,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Owner      *OwnerRef       `json:"owner,omitempty"`
	Data       json.RawMessage `json:"data"`
}
