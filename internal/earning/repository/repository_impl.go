package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	earningdomain "github.com/visalane/visalane/internal/earning/domain"
	pkgdb "github.com/visalane/visalane/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() earningdomain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, earning *earningdomain.ExpertEarning) (bool, error) {
	existing, err := r.FindByBookingID(ctx, db, earning.BookingID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		insertErr := db.WithContext(ctx).Exec(
			`INSERT INTO expert_earnings (
				id, booking_id, expert_id, amount, platform_fee, currency, status,
				calculated_at, paid_at, notes, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			earning.ID,
			earning.BookingID,
			earning.ExpertID,
			earning.Amount,
			earning.PlatformFee,
			earning.Currency,
			earning.Status,
			earning.CalculatedAt,
			earning.PaidAt,
			earning.Notes,
			earning.CreatedAt,
			earning.UpdatedAt,
		).Error
		if insertErr == nil {
			return true, nil
		}
		if !pkgdb.IsDuplicateKeyErr(insertErr) {
			return false, insertErr
		}
		// ux_expert_earnings_booking: a concurrent accrual inserted the row
		// first. Re-read and fall through to the recalculation path.
		existing, err = r.FindByBookingID(ctx, db, earning.BookingID)
		if err != nil {
			return false, err
		}
		if existing == nil {
			return false, insertErr
		}
	}

	if existing.Status == earningdomain.EarningStatusPaid {
		return false, earningdomain.ErrEarningPaid
	}

	earning.ID = existing.ID
	result := db.WithContext(ctx).Exec(
		`UPDATE expert_earnings
		 SET expert_id = ?, amount = ?, platform_fee = ?, currency = ?, status = ?,
		     calculated_at = ?, notes = ?, updated_at = ?
		 WHERE booking_id = ? AND status = ?`,
		earning.ExpertID,
		earning.Amount,
		earning.PlatformFee,
		earning.Currency,
		earning.Status,
		earning.CalculatedAt,
		earning.Notes,
		earning.UpdatedAt,
		earning.BookingID,
		earningdomain.EarningStatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		// Lost a race with the payout batcher marking it paid.
		return false, earningdomain.ErrEarningPaid
	}
	return false, nil
}

func (r *repo) FindByBookingID(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*earningdomain.ExpertEarning, error) {
	var earning earningdomain.ExpertEarning
	err := db.WithContext(ctx).Raw(
		`SELECT id, booking_id, expert_id, amount, platform_fee, currency, status,
		        calculated_at, paid_at, notes, created_at, updated_at
		 FROM expert_earnings
		 WHERE booking_id = ?`,
		bookingID,
	).Scan(&earning).Error
	if err != nil {
		return nil, err
	}
	if earning.ID == 0 {
		return nil, nil
	}
	return &earning, nil
}

func (r *repo) ListPendingInWindow(ctx context.Context, db *gorm.DB, expertID snowflake.ID, from, to time.Time) ([]earningdomain.ExpertEarning, error) {
	var earnings []earningdomain.ExpertEarning
	err := db.WithContext(ctx).Raw(
		`SELECT id, booking_id, expert_id, amount, platform_fee, currency, status,
		        calculated_at, paid_at, notes, created_at, updated_at
		 FROM expert_earnings
		 WHERE expert_id = ?
		   AND status = ?
		   AND amount > 0
		   AND calculated_at >= ?
		   AND calculated_at < ?
		 ORDER BY calculated_at ASC, id ASC`,
		expertID,
		earningdomain.EarningStatusPending,
		from,
		to,
	).Scan(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}

func (r *repo) ExpertIDsWithPendingInWindow(ctx context.Context, db *gorm.DB, from, to time.Time) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT expert_id
		 FROM expert_earnings
		 WHERE status = ?
		   AND amount > 0
		   AND calculated_at >= ?
		   AND calculated_at < ?
		 ORDER BY expert_id`,
		earningdomain.EarningStatusPending,
		from,
		to,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE expert_earnings
		 SET status = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		earningdomain.EarningStatusPaid,
		paidAt,
		paidAt,
		id,
		earningdomain.EarningStatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
