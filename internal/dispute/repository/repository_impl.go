package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	disputedomain "github.com/visalane/visalane/internal/dispute/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() disputedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, dispute *disputedomain.Dispute) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO disputes (
			id, booking_id, reported_by, type, status, reason, reported_at,
			responded_at, resolved_at, resolved_by, resolved_by_system,
			resolution_notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dispute.ID,
		dispute.BookingID,
		dispute.ReportedBy,
		dispute.Type,
		dispute.Status,
		dispute.Reason,
		dispute.ReportedAt,
		dispute.RespondedAt,
		dispute.ResolvedAt,
		dispute.ResolvedBy,
		dispute.ResolvedBySystem,
		dispute.ResolutionNotes,
		dispute.CreatedAt,
		dispute.UpdatedAt,
	).Error
}

const disputeColumns = `id, booking_id, reported_by, type, status, reason, reported_at,
	responded_at, resolved_at, resolved_by, resolved_by_system,
	resolution_notes, created_at, updated_at`

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*disputedomain.Dispute, error) {
	var dispute disputedomain.Dispute
	err := db.WithContext(ctx).Raw(
		`SELECT `+disputeColumns+`
		 FROM disputes
		 WHERE id = ?`,
		id,
	).Scan(&dispute).Error
	if err != nil {
		return nil, err
	}
	if dispute.ID == 0 {
		return nil, nil
	}
	return &dispute, nil
}

func (r *repo) FindActiveByBookingID(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*disputedomain.Dispute, error) {
	var dispute disputedomain.Dispute
	err := db.WithContext(ctx).Raw(
		`SELECT `+disputeColumns+`
		 FROM disputes
		 WHERE booking_id = ? AND status IN (?, ?, ?)
		 ORDER BY reported_at DESC
		 LIMIT 1`,
		bookingID,
		disputedomain.DisputeStatusPending,
		disputedomain.DisputeStatusExpertResponded,
		disputedomain.DisputeStatusResolving,
	).Scan(&dispute).Error
	if err != nil {
		return nil, err
	}
	if dispute.ID == 0 {
		return nil, nil
	}
	return &dispute, nil
}

func (r *repo) MarkResponded(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE disputes
		 SET status = ?, responded_at = COALESCE(responded_at, ?), updated_at = ?
		 WHERE id = ? AND status = ?`,
		disputedomain.DisputeStatusExpertResponded,
		now,
		now,
		id,
		disputedomain.DisputeStatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkResolving(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE disputes
		 SET status = ?, updated_at = ?
		 WHERE id = ?
		   AND status IN (?, ?, ?)
		   AND resolved_by IS NULL`,
		disputedomain.DisputeStatusResolving,
		now,
		id,
		disputedomain.DisputeStatusPending,
		disputedomain.DisputeStatusExpertResponded,
		disputedomain.DisputeStatusResolving,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkResolvedBySystem(ctx context.Context, db *gorm.DB, id snowflake.ID, notes string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE disputes
		 SET status = ?, resolved_at = ?, resolved_by_system = ?, resolution_notes = ?, updated_at = ?
		 WHERE id = ?
		   AND status IN (?, ?, ?)
		   AND resolved_by IS NULL`,
		disputedomain.DisputeStatusResolved,
		now,
		true,
		notes,
		now,
		id,
		disputedomain.DisputeStatusPending,
		disputedomain.DisputeStatusExpertResponded,
		disputedomain.DisputeStatusResolving,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkResolvedByAdmin(ctx context.Context, db *gorm.DB, id, adminID snowflake.ID, notes string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE disputes
		 SET status = ?, resolved_at = ?, resolved_by = ?, resolved_by_system = ?, resolution_notes = ?, updated_at = ?
		 WHERE id = ?
		   AND status IN (?, ?, ?)`,
		disputedomain.DisputeStatusResolved,
		now,
		adminID,
		false,
		notes,
		now,
		id,
		disputedomain.DisputeStatusPending,
		disputedomain.DisputeStatusExpertResponded,
		disputedomain.DisputeStatusResolving,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
