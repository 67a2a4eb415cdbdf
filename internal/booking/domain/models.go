// Package domain contains persistence models for consultation bookings.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BookingStatus represents lifecycle states for a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusDispute   BookingStatus = "dispute"
)

// PaymentStatus tracks whether the client's payment settled or was returned.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ConsultationStatus records how the session actually ended.
type ConsultationStatus string

const (
	ConsultationStatusCompleted    ConsultationStatus = "completed"
	ConsultationStatusClientNoShow ConsultationStatus = "client_no_show"
	ConsultationStatusCancelled    ConsultationStatus = "cancelled"
)

// Booking captures one scheduled paid consultation between a client and an
// expert. Monetary columns are minor units; expert_earnings + platform_fee
// equals amount_paid once financials have been calculated.
type Booking struct {
	ID                 snowflake.ID  `gorm:"primaryKey"`
	ClientID           snowflake.ID  `gorm:"not null;index"`
	ExpertID           *snowflake.ID `gorm:"index"`
	Status             BookingStatus `gorm:"type:text;not null;index"`
	ScheduledAt        time.Time     `gorm:"not null"`
	ScheduledEndAt     *time.Time    `gorm:"index"`
	DurationMinutes    int           `gorm:"not null;default:60"`
	PaymentStatus      PaymentStatus `gorm:"type:text;not null"`
	PaymentRef         string        `gorm:"type:text"`
	AmountPaid         int64         `gorm:"not null;default:0"`
	Currency           string        `gorm:"type:text;not null;default:usd"`
	ExpertEarnings     int64         `gorm:"not null;default:0"`
	PlatformFee        int64         `gorm:"not null;default:0"`
	CompletedAt        *time.Time    `gorm:""`
	CompletionNotes    string        `gorm:"type:text"`
	CancellationReason string        `gorm:"type:text"`
	CancelledAt        *time.Time    `gorm:""`
	CreatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Booking) TableName() string { return "bookings" }

// Consultation reflects the final outcome of a booking's session. One row per
// booking, upserted when the booking completes.
type Consultation struct {
	ID        snowflake.ID       `gorm:"primaryKey"`
	BookingID snowflake.ID       `gorm:"not null;uniqueIndex"`
	Status    ConsultationStatus `gorm:"type:text;not null"`
	Notes     string             `gorm:"type:text"`
	CreatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Consultation) TableName() string { return "consultations" }
