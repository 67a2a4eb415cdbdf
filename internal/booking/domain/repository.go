package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	// UpdateStatus conditionally flips a booking's status. The WHERE clause is
	// keyed on the expected current status so two concurrent sweeps racing the
	// same transition produce exactly one success. Returns whether a row moved.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to BookingStatus, now time.Time) (bool, error)
	SetPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, status PaymentStatus, ref string, amount int64, currency string, now time.Time) error
	SetPaymentStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status PaymentStatus, now time.Time) error
	SetCompletion(ctx context.Context, db *gorm.DB, id snowflake.ID, notes string, now time.Time) error
	SetCancellation(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) error
	SetFinancials(ctx context.Context, db *gorm.DB, id snowflake.ID, earnings, fee int64, now time.Time) error
	UpsertConsultation(ctx context.Context, db *gorm.DB, consultation *Consultation) error
}
