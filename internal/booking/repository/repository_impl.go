package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/visalane/visalane/internal/booking/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() bookingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, booking *bookingdomain.Booking) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bookings (
			id, client_id, expert_id, status, scheduled_at, scheduled_end_at,
			duration_minutes, payment_status, payment_ref, amount_paid, currency,
			expert_earnings, platform_fee, completed_at, completion_notes,
			cancellation_reason, cancelled_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.ClientID,
		booking.ExpertID,
		booking.Status,
		booking.ScheduledAt,
		booking.ScheduledEndAt,
		booking.DurationMinutes,
		booking.PaymentStatus,
		booking.PaymentRef,
		booking.AmountPaid,
		booking.Currency,
		booking.ExpertEarnings,
		booking.PlatformFee,
		booking.CompletedAt,
		booking.CompletionNotes,
		booking.CancellationReason,
		booking.CancelledAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*bookingdomain.Booking, error) {
	var booking bookingdomain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT id, client_id, expert_id, status, scheduled_at, scheduled_end_at,
		        duration_minutes, payment_status, payment_ref, amount_paid, currency,
		        expert_earnings, platform_fee, completed_at, completion_notes,
		        cancellation_reason, cancelled_at, created_at, updated_at
		 FROM bookings
		 WHERE id = ?`,
		id,
	).Scan(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		return nil, nil
	}
	return &booking, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to bookingdomain.BookingStatus, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		now,
		id,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) SetPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, status bookingdomain.PaymentStatus, ref string, amount int64, currency string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET payment_status = ?, payment_ref = ?, amount_paid = ?, currency = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		ref,
		amount,
		currency,
		now,
		id,
	).Error
}

func (r *repo) SetPaymentStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status bookingdomain.PaymentStatus, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET payment_status = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		now,
		id,
	).Error
}

func (r *repo) SetCompletion(ctx context.Context, db *gorm.DB, id snowflake.ID, notes string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET completed_at = COALESCE(completed_at, ?), completion_notes = ?, updated_at = ?
		 WHERE id = ?`,
		now,
		notes,
		now,
		id,
	).Error
}

func (r *repo) SetCancellation(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET cancellation_reason = ?, cancelled_at = COALESCE(cancelled_at, ?), updated_at = ?
		 WHERE id = ?`,
		reason,
		now,
		now,
		id,
	).Error
}

func (r *repo) SetFinancials(ctx context.Context, db *gorm.DB, id snowflake.ID, earnings, fee int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET expert_earnings = ?, platform_fee = ?, updated_at = ?
		 WHERE id = ?`,
		earnings,
		fee,
		now,
		id,
	).Error
}

func (r *repo) UpsertConsultation(ctx context.Context, db *gorm.DB, consultation *bookingdomain.Consultation) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE consultations
		 SET status = ?, notes = ?, updated_at = ?
		 WHERE booking_id = ?`,
		consultation.Status,
		consultation.Notes,
		consultation.UpdatedAt,
		consultation.BookingID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO consultations (id, booking_id, status, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		consultation.ID,
		consultation.BookingID,
		consultation.Status,
		consultation.Notes,
		consultation.CreatedAt,
		consultation.UpdatedAt,
	).Error
}
