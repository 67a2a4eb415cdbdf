package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/visalane/visalane/internal/booking/domain"
	"github.com/visalane/visalane/internal/clock"
	disputedomain "github.com/visalane/visalane/internal/dispute/domain"
	notifydomain "github.com/visalane/visalane/internal/notify/domain"
	paymentdomain "github.com/visalane/visalane/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        disputedomain.Repository
	BookingRepo bookingdomain.Repository
	BookingSvc  bookingdomain.Service
	Gateway     paymentdomain.Gateway
	Notifier    notifydomain.Notifier
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        disputedomain.Repository
	bookingRepo bookingdomain.Repository
	bookingSvc  bookingdomain.Service
	gateway     paymentdomain.Gateway
	notifier    notifydomain.Notifier
}

func NewService(p Params) disputedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("dispute.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		bookingRepo: p.BookingRepo,
		bookingSvc:  p.BookingSvc,
		gateway:     p.Gateway,
		notifier:    p.Notifier,
	}
}

func validType(t disputedomain.DisputeType) bool {
	switch t {
	case disputedomain.DisputeTypeClientNoShow,
		disputedomain.DisputeTypeExpertNoShow,
		disputedomain.DisputeTypeQuality,
		disputedomain.DisputeTypeTechnical,
		disputedomain.DisputeTypeOther:
		return true
	default:
		return false
	}
}

func (s *Service) Report(ctx context.Context, req disputedomain.ReportRequest) (*disputedomain.Dispute, error) {
	if req.BookingID == 0 || req.ReportedBy == 0 {
		return nil, disputedomain.ErrInvalidDispute
	}
	if !validType(req.Type) {
		return nil, disputedomain.ErrInvalidDisputeType
	}

	now := s.clock.Now()
	dispute := &disputedomain.Dispute{
		ID:         s.genID.Generate(),
		BookingID:  req.BookingID,
		ReportedBy: req.ReportedBy,
		Type:       req.Type,
		Status:     disputedomain.DisputeStatusPending,
		Reason:     strings.TrimSpace(req.Reason),
		ReportedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindActiveByBookingID(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		if existing != nil {
			return bookingdomain.ErrBookingHasDispute
		}

		moved, err := s.bookingRepo.UpdateStatus(ctx, tx, req.BookingID,
			bookingdomain.BookingStatusConfirmed, bookingdomain.BookingStatusDispute, now)
		if err != nil {
			return err
		}
		if !moved {
			return bookingdomain.ErrInvalidTransition
		}

		return s.repo.Insert(ctx, tx, dispute)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("dispute reported",
		zap.Int64("dispute_id", int64(dispute.ID)),
		zap.Int64("booking_id", int64(dispute.BookingID)),
		zap.String("type", string(dispute.Type)),
	)
	s.notifier.DisputeCreated(ctx, dispute)
	return dispute, nil
}

func (s *Service) Respond(ctx context.Context, id snowflake.ID) error {
	now := s.clock.Now()

	dispute, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if dispute == nil {
		return disputedomain.ErrDisputeNotFound
	}

	moved, err := s.repo.MarkResponded(ctx, s.db, id, now)
	if err != nil {
		return err
	}
	if !moved {
		// Already responded, resolving, or resolved.
		return disputedomain.ErrDisputeNotActive
	}

	dispute.Status = disputedomain.DisputeStatusExpertResponded
	dispute.RespondedAt = &now
	s.notifier.DisputeResponded(ctx, dispute)
	return nil
}

func (s *Service) Resolve(ctx context.Context, id, adminID snowflake.ID, resolution disputedomain.Resolution, notes string) error {
	dispute, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if dispute == nil {
		return disputedomain.ErrDisputeNotFound
	}
	if !dispute.Active() {
		return disputedomain.ErrAlreadyResolved
	}

	booking, err := s.bookingSvc.GetByID(ctx, dispute.BookingID)
	if err != nil {
		return err
	}
	if booking.Status != bookingdomain.BookingStatusDispute {
		return disputedomain.ErrBookingNotDisputed
	}

	now := s.clock.Now()
	switch resolution {
	case disputedomain.ResolutionCompleteBooking:
		if _, err := s.bookingSvc.Complete(ctx, bookingdomain.CompleteParams{
			BookingID:          booking.ID,
			From:               bookingdomain.BookingStatusDispute,
			Notes:              notes,
			ConsultationStatus: bookingdomain.ConsultationStatusCompleted,
		}); err != nil {
			return err
		}
	case disputedomain.ResolutionRefundClient:
		if err := s.refundAndCancel(ctx, booking, notes); err != nil {
			return err
		}
	case disputedomain.ResolutionCancelBooking:
		if _, err := s.bookingSvc.Cancel(ctx, bookingdomain.CancelParams{
			BookingID: booking.ID,
			From:      bookingdomain.BookingStatusDispute,
			Reason:    notes,
		}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("dispute_unknown_resolution: %q", resolution)
	}

	moved, err := s.repo.MarkResolvedByAdmin(ctx, s.db, id, adminID, notes, now)
	if err != nil {
		return err
	}
	if !moved {
		return disputedomain.ErrAlreadyResolved
	}

	s.log.Info("dispute resolved by admin",
		zap.Int64("dispute_id", int64(id)),
		zap.Int64("admin_id", int64(adminID)),
		zap.String("resolution", string(resolution)),
	)
	dispute.Status = disputedomain.DisputeStatusResolved
	dispute.ResolvedAt = &now
	dispute.ResolvedBy = &adminID
	dispute.ResolutionNotes = notes
	s.notifier.DisputeResolved(ctx, dispute)
	return nil
}

func (s *Service) refundAndCancel(ctx context.Context, booking *bookingdomain.Booking, reason string) error {
	wasPaid := booking.PaymentStatus == bookingdomain.PaymentStatusPaid && booking.AmountPaid > 0
	if wasPaid {
		if _, err := s.gateway.RequestRefund(ctx, paymentdomain.RefundRequest{
			PaymentRef: booking.PaymentRef,
			Amount:     booking.AmountPaid,
			Currency:   booking.Currency,
			Reason:     paymentdomain.RefundReasonRequestedByCustomer,
		}); err != nil {
			return errors.Join(disputedomain.ErrRefundFailed, err)
		}
	}
	_, err := s.bookingSvc.Cancel(ctx, bookingdomain.CancelParams{
		BookingID:    booking.ID,
		From:         bookingdomain.BookingStatusDispute,
		Reason:       reason,
		MarkRefunded: wasPaid,
	})
	return err
}

// AutoResolve escalates one unaddressed dispute past its response deadline.
// Eligibility (deadline age, active status) is enforced by the caller's claim
// query; this method re-checks only the guards that protect correctness.
func (s *Service) AutoResolve(ctx context.Context, id snowflake.ID) (string, error) {
	dispute, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return disputedomain.OutcomeNoop, err
	}
	if dispute == nil {
		return disputedomain.OutcomeNoop, disputedomain.ErrDisputeNotFound
	}
	if dispute.ResolvedBy != nil {
		return disputedomain.OutcomeNoop, disputedomain.ErrHumanResolved
	}
	if !dispute.Active() {
		return disputedomain.OutcomeNoop, nil
	}

	booking, err := s.bookingSvc.GetByID(ctx, dispute.BookingID)
	if err != nil {
		return disputedomain.OutcomeNoop, err
	}
	if booking.Status != bookingdomain.BookingStatusDispute {
		// The booking moved out from under an orphaned dispute record, most
		// likely an admin action racing the sweep. Close the dispute so it
		// stops surfacing.
		_, err := s.repo.MarkResolvedBySystem(ctx, s.db, id, "booking no longer in dispute", s.clock.Now())
		return disputedomain.OutcomeNoop, err
	}

	now := s.clock.Now()
	claimed, err := s.repo.MarkResolving(ctx, s.db, id, now)
	if err != nil {
		return disputedomain.OutcomeNoop, err
	}
	if !claimed {
		return disputedomain.OutcomeNoop, nil
	}

	if dispute.Type.ClientInitiated() {
		return s.autoRefund(ctx, dispute, booking)
	}
	return s.autoComplete(ctx, dispute, booking)
}

// autoRefund resolves an unanswered client-initiated dispute in the client's
// favor: refund the payment, cancel the booking, close the dispute. The
// gateway call happens outside any transaction; on failure the dispute stays
// in resolving and the next sweep retries.
func (s *Service) autoRefund(ctx context.Context, dispute *disputedomain.Dispute, booking *bookingdomain.Booking) (string, error) {
	wasPaid := booking.PaymentStatus == bookingdomain.PaymentStatusPaid && booking.AmountPaid > 0

	outcome := disputedomain.OutcomeCancelled
	if wasPaid {
		if _, err := s.gateway.RequestRefund(ctx, paymentdomain.RefundRequest{
			PaymentRef: booking.PaymentRef,
			Amount:     booking.AmountPaid,
			Currency:   booking.Currency,
			Reason:     paymentdomain.RefundReasonRequestedByCustomer,
		}); err != nil {
			s.log.Error("refund failed, dispute left for retry",
				zap.Int64("dispute_id", int64(dispute.ID)),
				zap.Int64("booking_id", int64(booking.ID)),
				zap.Error(err),
			)
			return disputedomain.OutcomeNoop, errors.Join(disputedomain.ErrRefundFailed, err)
		}
		outcome = disputedomain.OutcomeRefunded
	}

	if _, err := s.bookingSvc.Cancel(ctx, bookingdomain.CancelParams{
		BookingID:    booking.ID,
		From:         bookingdomain.BookingStatusDispute,
		Reason:       "dispute auto-resolved: no expert response within grace period",
		MarkRefunded: wasPaid,
	}); err != nil {
		return disputedomain.OutcomeNoop, err
	}

	return outcome, s.finishAuto(ctx, dispute, outcome)
}

// autoComplete resolves an unanswered client no-show claim in the expert's
// favor: the booking completes and the expert's earning accrues.
func (s *Service) autoComplete(ctx context.Context, dispute *disputedomain.Dispute, booking *bookingdomain.Booking) (string, error) {
	if _, err := s.bookingSvc.Complete(ctx, bookingdomain.CompleteParams{
		BookingID:          booking.ID,
		From:               bookingdomain.BookingStatusDispute,
		Notes:              "dispute auto-resolved: client no-show unanswered within grace period",
		ConsultationStatus: bookingdomain.ConsultationStatusClientNoShow,
	}); err != nil {
		return disputedomain.OutcomeNoop, err
	}
	return disputedomain.OutcomeClientNoShow, s.finishAuto(ctx, dispute, disputedomain.OutcomeClientNoShow)
}

func (s *Service) finishAuto(ctx context.Context, dispute *disputedomain.Dispute, outcome string) error {
	now := s.clock.Now()
	notes := "auto-resolved: " + outcome
	moved, err := s.repo.MarkResolvedBySystem(ctx, s.db, dispute.ID, notes, now)
	if err != nil {
		return err
	}
	if !moved {
		// A human resolved concurrently; their decision wins.
		s.log.Warn("auto-resolution lost to human decision",
			zap.Int64("dispute_id", int64(dispute.ID)),
		)
		return nil
	}

	s.log.Info("dispute auto-resolved",
		zap.Int64("dispute_id", int64(dispute.ID)),
		zap.Int64("booking_id", int64(dispute.BookingID)),
		zap.String("outcome", outcome),
	)
	dispute.Status = disputedomain.DisputeStatusResolved
	dispute.ResolvedAt = &now
	dispute.ResolvedBySystem = true
	dispute.ResolutionNotes = notes
	s.notifier.DisputeResolved(ctx, dispute)
	return nil
}
