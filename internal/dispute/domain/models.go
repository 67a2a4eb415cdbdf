// Package domain contains persistence models for booking disputes.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DisputeType classifies what the reporter claims went wrong.
type DisputeType string

const (
	DisputeTypeClientNoShow DisputeType = "client_no_show"
	DisputeTypeExpertNoShow DisputeType = "expert_no_show"
	DisputeTypeQuality      DisputeType = "quality"
	DisputeTypeTechnical    DisputeType = "technical"
	DisputeTypeOther        DisputeType = "other"
)

// ClientInitiated reports whether the dispute resolves in the client's favor
// when unaddressed past the grace period. Only a client no-show claim favors
// the expert.
func (t DisputeType) ClientInitiated() bool {
	return t != DisputeTypeClientNoShow
}

// DisputeStatus represents lifecycle states for a dispute. resolving is the
// transient sub-state held while a refund is in flight, so a failed refund is
// retried by a later sweep instead of being stranded behind a resolved flag.
type DisputeStatus string

const (
	DisputeStatusPending         DisputeStatus = "pending"
	DisputeStatusExpertResponded DisputeStatus = "expert_responded"
	DisputeStatusResolving       DisputeStatus = "resolving"
	DisputeStatusResolved        DisputeStatus = "resolved"
)

// ActiveStatuses are the states in which a dispute blocks auto-completion of
// its booking.
var ActiveStatuses = []DisputeStatus{
	DisputeStatusPending,
	DisputeStatusExpertResponded,
	DisputeStatusResolving,
}

// Dispute is a claim of no-show or service quality failure tied to a booking.
// ResolvedBy is set only by a human decision; once set the scheduler never
// touches the record again.
type Dispute struct {
	ID               snowflake.ID  `gorm:"primaryKey"`
	BookingID        snowflake.ID  `gorm:"not null;index"`
	ReportedBy       snowflake.ID  `gorm:"not null"`
	Type             DisputeType   `gorm:"type:text;not null"`
	Status           DisputeStatus `gorm:"type:text;not null;index"`
	Reason           string        `gorm:"type:text"`
	ReportedAt       time.Time     `gorm:"not null;index"`
	RespondedAt      *time.Time    `gorm:""`
	ResolvedAt       *time.Time    `gorm:""`
	ResolvedBy       *snowflake.ID `gorm:""`
	ResolvedBySystem bool          `gorm:"not null;default:false"`
	ResolutionNotes  string        `gorm:"type:text"`
	CreatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Dispute) TableName() string { return "disputes" }

// Active reports whether the dispute still blocks its booking.
func (d Dispute) Active() bool {
	switch d.Status {
	case DisputeStatusPending, DisputeStatusExpertResponded, DisputeStatusResolving:
		return true
	default:
		return false
	}
}
