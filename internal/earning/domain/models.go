// Package domain contains the per-booking earning accrual records.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// EarningStatus is the settlement state of an accrual record.
type EarningStatus string

const (
	EarningStatusPending EarningStatus = "pending"
	EarningStatusPaid    EarningStatus = "paid"
)

var (
	ErrEarningPaid = errors.New("earning_already_paid")
)

// ExpertEarning accrues the expert's share of one booking. Exactly one row
// exists per booking; recalculation updates the row in place. Once paid the
// record is immutable.
type ExpertEarning struct {
	ID           snowflake.ID  `gorm:"primaryKey"`
	BookingID    snowflake.ID  `gorm:"not null;uniqueIndex"`
	ExpertID     snowflake.ID  `gorm:"not null;index"`
	Amount       int64         `gorm:"not null"`
	PlatformFee  int64         `gorm:"not null"`
	Currency     string        `gorm:"type:text;not null;default:usd"`
	Status       EarningStatus `gorm:"type:text;not null;index"`
	CalculatedAt time.Time     `gorm:"not null;index"`
	PaidAt       *time.Time    `gorm:""`
	Notes        string        `gorm:"type:text"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ExpertEarning) TableName() string { return "expert_earnings" }
