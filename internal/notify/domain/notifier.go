// Package domain declares the outbound notification contract. Delivery is
// fire-and-forget: implementations log failures and never surface them to the
// caller, so a broken channel cannot block a state transition.
package domain

import (
	"context"

	bookingdomain "github.com/visalane/visalane/internal/booking/domain"
	disputedomain "github.com/visalane/visalane/internal/dispute/domain"
)

type Notifier interface {
	BookingCompleted(ctx context.Context, booking *bookingdomain.Booking)
	DisputeCreated(ctx context.Context, dispute *disputedomain.Dispute)
	DisputeResponded(ctx context.Context, dispute *disputedomain.Dispute)
	DisputeResolved(ctx context.Context, dispute *disputedomain.Dispute)
}
