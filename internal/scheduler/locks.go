package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/visalane/visalane/internal/booking/domain"
	disputedomain "github.com/visalane/visalane/internal/dispute/domain"
)

// WorkBooking is the claim-query projection for the auto-completion pass.
type WorkBooking struct {
	ID             snowflake.ID
	Status         bookingdomain.BookingStatus
	ScheduledEndAt *time.Time
}

// WorkDispute is the claim-query projection for the dispute-resolution pass.
type WorkDispute struct {
	ID         snowflake.ID
	BookingID  snowflake.ID
	Type       disputedomain.DisputeType
	Status     disputedomain.DisputeStatus
	ReportedAt time.Time
}

// fetchBookingsForAutoComplete claims confirmed bookings whose session ended
// before cutoff and that carry no active dispute. SKIP LOCKED keeps two
// concurrent sweeps from claiming the same rows; the conditional status flip
// in the completion unit remains the correctness backstop.
func (s *Scheduler) fetchBookingsForAutoComplete(ctx context.Context, cutoff time.Time, limit int) ([]WorkBooking, error) {
	if limit <= 0 {
		limit = s.cfg.BatchSize
	}
	var bookings []WorkBooking
	err := s.db.WithContext(ctx).Raw(
		`SELECT b.id, b.status, b.scheduled_end_at
		 FROM bookings b
		 WHERE b.status = ?
		   AND b.scheduled_end_at IS NOT NULL
		   AND b.scheduled_end_at < ?
		   AND NOT EXISTS (
			   SELECT 1 FROM disputes d
			   WHERE d.booking_id = b.id
				 AND d.status IN (?, ?, ?)
		   )
		 ORDER BY b.scheduled_end_at ASC, b.id ASC
		 LIMIT ?
		 FOR UPDATE SKIP LOCKED`,
		bookingdomain.BookingStatusConfirmed,
		cutoff,
		disputedomain.DisputeStatusPending,
		disputedomain.DisputeStatusExpertResponded,
		disputedomain.DisputeStatusResolving,
		limit,
	).Scan(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// fetchDisputesForResolution claims active, human-untouched disputes reported
// before cutoff. Pending and responded disputes must still hold their booking
// in dispute status; a resolving dispute is claimed regardless, because a
// crash between the booking transition and the resolution write leaves the
// booking already cancelled or completed and AutoResolve closes the orphan.
func (s *Scheduler) fetchDisputesForResolution(ctx context.Context, cutoff time.Time, limit int) ([]WorkDispute, error) {
	if limit <= 0 {
		limit = s.cfg.BatchSize
	}
	var disputes []WorkDispute
	err := s.db.WithContext(ctx).Raw(
		`SELECT d.id, d.booking_id, d.type, d.status, d.reported_at
		 FROM disputes d
		 JOIN bookings b ON b.id = d.booking_id
		 WHERE d.status IN (?, ?, ?)
		   AND d.resolved_by IS NULL
		   AND d.reported_at < ?
		   AND (b.status = ? OR d.status = ?)
		 ORDER BY d.reported_at ASC, d.id ASC
		 LIMIT ?
		 FOR UPDATE SKIP LOCKED`,
		disputedomain.DisputeStatusPending,
		disputedomain.DisputeStatusExpertResponded,
		disputedomain.DisputeStatusResolving,
		cutoff,
		bookingdomain.BookingStatusDispute,
		disputedomain.DisputeStatusResolving,
		limit,
	).Scan(&disputes).Error
	if err != nil {
		return nil, err
	}
	return disputes, nil
}
