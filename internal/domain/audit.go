package domain

import "time"

// AuditEntry records a portal action for the activity feed. Entries are
// short-lived; a retention sweep purges them on a schedule.
type AuditEntry struct {
	ID        int64     `json:"id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Section   string    `json:"section"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"created_at"`
}
