package model

import "time"

type AuditEntry struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Actor     Actor     `db:"actor" json:"actor"`
	Action    string    `db:"action" json:"action"`
	Target    *string   `db:"target" json:"target,omitempty"`
	Details   string    `db:"details" json:"details"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}
