// internal/domain/models/logentry.go
package models

import "time"

// Audit log actions.
const (
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// LogEntry is one audit trail record: who did what to which entity, with a
// snapshot of the resulting data (only {_id} for deletions).
type LogEntry struct {
	ID        string    `bson:"_id" json:"_id"`
	Action    string    `bson:"action" json:"action"`
	Comment   string    `bson:"comment" json:"comment"`
	DataType  Kind      `bson:"data_type" json:"data_type"`
	Data      Record    `bson:"data" json:"data"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	User      string    `bson:"user" json:"user"` // actor user id; "system" when no user
}
