package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Topics for outbox notifications.
const (
	TopicBookingCompleted = "booking.completed"
	TopicDisputeCreated   = "dispute.created"
	TopicDisputeResponded = "dispute.responded"
	TopicDisputeResolved  = "dispute.resolved"
)

// Notification captures outbox rows for delivery by an external worker. Rows
// are written best-effort alongside state transitions; delivery state lives
// here, not in the domain tables.
type Notification struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	RecipientID snowflake.ID      `gorm:"not null;index"`
	Topic       string            `gorm:"type:text;not null"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb;not null"`
	Delivered   bool              `gorm:"not null;default:false"`
	DeliveredAt *time.Time        `gorm:""`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }
