package domain

import (
	"context"

	"gorm.io/gorm"
)

type Service interface {
	// Accrue upserts the booking's accrual inside the caller's transaction and
	// maintains the expert's denormalized totals: total_earnings grows only on
	// first insert, pending_payout is recomputed from the earnings table.
	Accrue(ctx context.Context, tx *gorm.DB, earning *ExpertEarning) error
}
