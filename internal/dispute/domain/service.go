package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// ReportRequest opens a dispute against a confirmed booking.
type ReportRequest struct {
	BookingID  snowflake.ID
	ReportedBy snowflake.ID
	Type       DisputeType
	Reason     string
}

// Resolution is the outcome an admin picks when closing a dispute by hand.
type Resolution string

const (
	ResolutionCompleteBooking Resolution = "complete_booking"
	ResolutionCancelBooking   Resolution = "cancel_booking"
	ResolutionRefundClient    Resolution = "refund_client"
)

// Auto-resolution outcomes, reported for metrics.
const (
	OutcomeRefunded     = "refunded"
	OutcomeCancelled    = "cancelled"
	OutcomeClientNoShow = "client_no_show"
	OutcomeNoop         = "noop"
)

type Service interface {
	Report(ctx context.Context, req ReportRequest) (*Dispute, error)
	// Respond records the accused party's reply (pending -> expert_responded).
	Respond(ctx context.Context, id snowflake.ID) error
	// Resolve closes a dispute by admin decision. Once a human resolves, the
	// scheduler never touches the record again.
	Resolve(ctx context.Context, id, adminID snowflake.ID, resolution Resolution, notes string) error
	// AutoResolve applies the deadline-based escalation policy to one dispute:
	// client-initiated types refund and cancel, a client no-show completes the
	// booking so the expert is paid. Returns the outcome taken.
	AutoResolve(ctx context.Context, id snowflake.ID) (string, error)
}
