package event

type Type string

const (
	TypeAuditRecorded Type = "audit.recorded"
	TypeUserCreated   Type = "user.created"
	TypeUserDeleted   Type = "user.deleted"
	TypeCodeConsumed  Type = "access_code.consumed"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   int64  `json:"actor_id,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
