package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Upsert writes the accrual for a booking. A fresh row is inserted when
	// none exists; an existing pending row is overwritten in place. Paid rows
	// are never touched. Returns whether a new row was inserted.
	Upsert(ctx context.Context, db *gorm.DB, earning *ExpertEarning) (bool, error)
	FindByBookingID(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*ExpertEarning, error)
	// ListPendingInWindow returns positive-amount pending earnings for one
	// expert whose calculated_at falls in [from, to).
	ListPendingInWindow(ctx context.Context, db *gorm.DB, expertID snowflake.ID, from, to time.Time) ([]ExpertEarning, error)
	// ExpertIDsWithPendingInWindow lists distinct experts holding at least one
	// positive pending earning in [from, to).
	ExpertIDsWithPendingInWindow(ctx context.Context, db *gorm.DB, from, to time.Time) ([]snowflake.ID, error)
	// MarkPaid flips a pending earning to paid. The status gate makes the
	// transition the sole guarantee against double payout. Returns whether the
	// row transitioned.
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (bool, error)
}
