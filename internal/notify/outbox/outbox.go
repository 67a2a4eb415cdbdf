// Package outbox persists notifications for delivery by an external worker.
// Writes are best-effort: a failed insert is logged and dropped so a broken
// notification path never rolls back a settled state transition.
package outbox

import (
	"context"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/visalane/visalane/internal/booking/domain"
	"github.com/visalane/visalane/internal/clock"
	disputedomain "github.com/visalane/visalane/internal/dispute/domain"
	notifydomain "github.com/visalane/visalane/internal/notify/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Outbox struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) notifydomain.Notifier {
	return &Outbox{
		db:    p.DB,
		log:   p.Log.Named("notify.outbox"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (o *Outbox) write(ctx context.Context, recipientID snowflake.ID, topic string, payload datatypes.JSONMap) {
	if recipientID == 0 {
		return
	}
	notification := &notifydomain.Notification{
		ID:          o.genID.Generate(),
		RecipientID: recipientID,
		Topic:       topic,
		Payload:     payload,
		CreatedAt:   o.clock.Now(),
	}
	if err := o.db.WithContext(ctx).Create(notification).Error; err != nil {
		o.log.Error("notification write failed",
			zap.String("topic", topic),
			zap.Int64("recipient_id", int64(recipientID)),
			zap.Error(err),
		)
	}
}

func (o *Outbox) BookingCompleted(ctx context.Context, booking *bookingdomain.Booking) {
	payload := datatypes.JSONMap{
		"booking_id":      booking.ID.String(),
		"expert_earnings": booking.ExpertEarnings,
		"platform_fee":    booking.PlatformFee,
		"currency":        booking.Currency,
	}
	o.write(ctx, booking.ClientID, notifydomain.TopicBookingCompleted, payload)
	if booking.ExpertID != nil {
		o.write(ctx, *booking.ExpertID, notifydomain.TopicBookingCompleted, payload)
	}
}

func (o *Outbox) DisputeCreated(ctx context.Context, dispute *disputedomain.Dispute) {
	o.write(ctx, dispute.ReportedBy, notifydomain.TopicDisputeCreated, disputePayload(dispute))
}

func (o *Outbox) DisputeResponded(ctx context.Context, dispute *disputedomain.Dispute) {
	o.write(ctx, dispute.ReportedBy, notifydomain.TopicDisputeResponded, disputePayload(dispute))
}

func (o *Outbox) DisputeResolved(ctx context.Context, dispute *disputedomain.Dispute) {
	payload := disputePayload(dispute)
	payload["resolved_by_system"] = dispute.ResolvedBySystem
	payload["resolution_notes"] = dispute.ResolutionNotes
	o.write(ctx, dispute.ReportedBy, notifydomain.TopicDisputeResolved, payload)
}

func disputePayload(dispute *disputedomain.Dispute) datatypes.JSONMap {
	return datatypes.JSONMap{
		"dispute_id": dispute.ID.String(),
		"booking_id": dispute.BookingID.String(),
		"type":       string(dispute.Type),
		"status":     string(dispute.Status),
	}
}
