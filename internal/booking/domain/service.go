package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// CreateBookingRequest opens a new pending booking.
type CreateBookingRequest struct {
	ClientID        snowflake.ID
	ExpertID        *snowflake.ID
	ScheduledAt     time.Time
	DurationMinutes int
	Currency        string
}

// CompleteParams drives the confirmed/dispute -> completed transition.
type CompleteParams struct {
	BookingID snowflake.ID
	// From is the status the booking must currently hold; defaults to
	// confirmed. Dispute resolution passes dispute.
	From               BookingStatus
	Notes              string
	ConsultationStatus ConsultationStatus
}

// CancelParams drives a transition into cancelled.
type CancelParams struct {
	BookingID snowflake.ID
	From      BookingStatus
	Reason    string
	// MarkRefunded also flips the payment status to refunded; set after a
	// successful gateway refund.
	MarkRefunded bool
}

type Service interface {
	Create(ctx context.Context, req CreateBookingRequest) (*Booking, error)
	// Confirm records the client's payment and moves pending -> confirmed.
	Confirm(ctx context.Context, id snowflake.ID, paymentRef string, amount int64, currency string) error
	// Complete performs the full completion unit: status flip, consultation
	// upsert, financials, earning accrual, expert totals, notification.
	// Returns false without error when the booking already left the expected
	// status (idempotent no-op).
	Complete(ctx context.Context, params CompleteParams) (bool, error)
	Cancel(ctx context.Context, params CancelParams) (bool, error)
	// MarkDisputed gates confirmed -> dispute when a party reports an issue.
	MarkDisputed(ctx context.Context, id snowflake.ID) (bool, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Booking, error)
}
