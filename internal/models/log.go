package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Audit log actions. Every state-changing booking operation writes exactly one row
// inside the same transaction as the change it records.
const (
	ActionCreateBooking = "CREATE_BOOKING"
	ActionCheckIn       = "CHECK_IN"
	ActionCheckOut      = "CHECK_OUT"
	ActionExtendBooking = "EXTEND_BOOKING"
	ActionExpiryScanRun = "EXPIRY_SCAN_RUN"
)

type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs"`

	LogID     string    `bun:"log_id,pk" json:"log_id"`
	Action    string    `bun:"action" json:"action"`
	Details   string    `bun:"details" json:"details"`
	UserID    string    `bun:"user_id" json:"user_id"`
	CreatedAt time.Time `bun:"created_at" json:"created_at"`
}
