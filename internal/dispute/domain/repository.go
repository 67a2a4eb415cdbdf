package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, dispute *Dispute) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Dispute, error)
	FindActiveByBookingID(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*Dispute, error)
	// MarkResponded flips pending -> expert_responded. Returns whether the row
	// transitioned.
	MarkResponded(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	// MarkResolving claims an active, human-untouched dispute for automatic
	// resolution. Re-claiming a dispute already in resolving succeeds so a
	// failed refund is retried on the next sweep.
	MarkResolving(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	// MarkResolvedBySystem finishes automatic resolution. Guarded on the
	// absence of a human resolved_by.
	MarkResolvedBySystem(ctx context.Context, db *gorm.DB, id snowflake.ID, notes string, now time.Time) (bool, error)
	// MarkResolvedByAdmin records a human decision.
	MarkResolvedByAdmin(ctx context.Context, db *gorm.DB, id, adminID snowflake.ID, notes string, now time.Time) (bool, error)
}
