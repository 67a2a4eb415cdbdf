package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, expert *Expert) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Expert, error)
	AddTotalEarnings(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) error
	// RecomputePendingPayout resets pending_payout to the sum of the expert's
	// currently pending earnings. Aggregation is the source of truth so
	// concurrent writers cannot drift the denormalized total.
	RecomputePendingPayout(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
