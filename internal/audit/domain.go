package audit

import (
	"encoding/json"
	"time"
)

// Entry is one stored audit record.
type Entry struct {
	ID         int64           `json:"id"`
	ActorID    int64           `json:"actor_id"`
	Action     string          `json:"action"`
	Entity     string          `json:"entity"`
	EntityID   string          `json:"entity_id"`
	Meta       json.RawMessage `json:"meta"`
	OccurredAt time.Time       `json:"occurred_at"`
}
