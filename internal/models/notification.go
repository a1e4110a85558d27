package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Notification types.
const (
	NotificationInfo    = "INFO"
	NotificationWarning = "WARNING"
	NotificationError   = "ERROR"
	NotificationSuccess = "SUCCESS"
)

// Notification is an ephemeral event record: persisted once for history and broadcast
// live on the bus. The core never mutates it after creation (the read flag belongs to
// the dashboard layer).
type Notification struct {
	bun.BaseModel `bun:"table:notifications"`

	NotificationID string    `bun:"notification_id,pk" json:"notification_id"`
	EventID        string    `bun:"event_id" json:"event_id,omitempty"`
	TargetRole     string    `bun:"target_role" json:"target_role,omitempty"`
	Type           string    `bun:"type" json:"type"`
	Message        string    `bun:"message" json:"message"`
	Read           bool      `bun:"read" json:"read"`
	CreatedAt      time.Time `bun:"created_at" json:"created_at"`
}
