package chat

import "time"

// Roles carried by transcript turns. The generation prompt replays these
// labels verbatim, so they are part of the wire contract.
const (
	RoleClient    = "client"
	RoleAssistant = "assistant"
)

// Turn persists one side of a conversation exchange. Turns are immutable
// once written; OccurredAt is assigned by the store at append time and is
// the sole ordering key within a session.
type Turn struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	OccurredAt time.Time `json:"occurred_at"`
}
