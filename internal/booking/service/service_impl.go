package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/visalane/visalane/internal/booking/domain"
	"github.com/visalane/visalane/internal/booking/guard"
	"github.com/visalane/visalane/internal/clock"
	"github.com/visalane/visalane/internal/config"
	earningdomain "github.com/visalane/visalane/internal/earning/domain"
	"github.com/visalane/visalane/internal/money"
	notifydomain "github.com/visalane/visalane/internal/notify/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	FeePolicy  *config.FeePolicyHolder
	Repo       bookingdomain.Repository
	EarningSvc earningdomain.Service
	Notifier   notifydomain.Notifier
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	feePolicy  *config.FeePolicyHolder
	repo       bookingdomain.Repository
	earningSvc earningdomain.Service
	notifier   notifydomain.Notifier
}

func NewService(p Params) bookingdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("booking.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		feePolicy:  p.FeePolicy,
		repo:       p.Repo,
		earningSvc: p.EarningSvc,
		notifier:   p.Notifier,
	}
}

func (s *Service) Create(ctx context.Context, req bookingdomain.CreateBookingRequest) (*bookingdomain.Booking, error) {
	if req.ClientID == 0 || req.ScheduledAt.IsZero() {
		return nil, bookingdomain.ErrInvalidBooking
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 60
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.feePolicy.Get().Currency
	}

	now := s.clock.Now()
	end := req.ScheduledAt.Add(time.Duration(req.DurationMinutes) * time.Minute)
	booking := &bookingdomain.Booking{
		ID:              s.genID.Generate(),
		ClientID:        req.ClientID,
		ExpertID:        req.ExpertID,
		Status:          bookingdomain.BookingStatusPending,
		ScheduledAt:     req.ScheduledAt.UTC(),
		ScheduledEndAt:  &end,
		DurationMinutes: req.DurationMinutes,
		PaymentStatus:   bookingdomain.PaymentStatusUnpaid,
		Currency:        currency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, s.db, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *Service) Confirm(ctx context.Context, id snowflake.ID, paymentRef string, amount int64, currency string) error {
	if id == 0 || strings.TrimSpace(paymentRef) == "" || amount <= 0 {
		return bookingdomain.ErrInvalidBooking
	}
	now := s.clock.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := s.repo.UpdateStatus(ctx, tx, id, bookingdomain.BookingStatusPending, bookingdomain.BookingStatusConfirmed, now)
		if err != nil {
			return err
		}
		if !updated {
			return bookingdomain.ErrInvalidTransition
		}
		return s.repo.SetPayment(ctx, tx, id, bookingdomain.PaymentStatusPaid, paymentRef, amount, strings.ToLower(strings.TrimSpace(currency)), now)
	})
}

// Complete performs the whole completion unit in one transaction. The status
// flip is the conditional gate: when it reports zero rows the booking already
// left the expected status and the rest of the unit is skipped.
func (s *Service) Complete(ctx context.Context, params bookingdomain.CompleteParams) (bool, error) {
	if params.BookingID == 0 {
		return false, bookingdomain.ErrInvalidBooking
	}
	from := params.From
	if from == "" {
		from = bookingdomain.BookingStatusConfirmed
	}
	if err := guard.EnsureTransition(from, bookingdomain.BookingStatusCompleted); err != nil {
		return false, err
	}
	consultationStatus := params.ConsultationStatus
	if consultationStatus == "" {
		consultationStatus = bookingdomain.ConsultationStatusCompleted
	}

	now := s.clock.Now()
	var completed *bookingdomain.Booking

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := s.repo.UpdateStatus(ctx, tx, params.BookingID, from, bookingdomain.BookingStatusCompleted, now)
		if err != nil {
			return err
		}
		if !updated {
			return nil
		}

		if err := s.repo.SetCompletion(ctx, tx, params.BookingID, params.Notes, now); err != nil {
			return err
		}

		booking, err := s.repo.FindByID(ctx, tx, params.BookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return bookingdomain.ErrBookingNotFound
		}

		if err := s.repo.UpsertConsultation(ctx, tx, &bookingdomain.Consultation{
			ID:        s.genID.Generate(),
			BookingID: booking.ID,
			Status:    consultationStatus,
			Notes:     params.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}

		// Inconsistent revenue data never blocks session closure: complete the
		// booking, skip the accrual, and leave a trail for operators.
		if booking.AmountPaid <= 0 {
			s.log.Warn("booking completed without payment amount, no earning written",
				zap.String("booking_id", booking.ID.String()),
			)
			completed = booking
			return nil
		}
		if booking.ExpertID == nil {
			s.log.Warn("booking completed without expert, no earning written",
				zap.String("booking_id", booking.ID.String()),
			)
			completed = booking
			return nil
		}

		policy := s.feePolicy.Get()
		earnings, fee := money.Split(booking.AmountPaid, policy.CommissionBps)
		if err := s.repo.SetFinancials(ctx, tx, booking.ID, earnings, fee, now); err != nil {
			return err
		}
		booking.ExpertEarnings = earnings
		booking.PlatformFee = fee

		if earnings <= 0 {
			s.log.Warn("calculated earnings are zero, no earning written",
				zap.String("booking_id", booking.ID.String()),
				zap.Int64("amount_paid", booking.AmountPaid),
			)
			completed = booking
			return nil
		}

		// The accrual is always pending here; only the weekly batch pays out.
		if err := s.earningSvc.Accrue(ctx, tx, &earningdomain.ExpertEarning{
			ID:           s.genID.Generate(),
			BookingID:    booking.ID,
			ExpertID:     *booking.ExpertID,
			Amount:       earnings,
			PlatformFee:  fee,
			Currency:     booking.Currency,
			Status:       earningdomain.EarningStatusPending,
			CalculatedAt: now,
			Notes:        params.Notes,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return err
		}

		completed = booking
		return nil
	})
	if err != nil {
		return false, err
	}
	if completed == nil {
		return false, nil
	}

	s.notifier.BookingCompleted(ctx, completed)
	return true, nil
}

func (s *Service) Cancel(ctx context.Context, params bookingdomain.CancelParams) (bool, error) {
	if params.BookingID == 0 {
		return false, bookingdomain.ErrInvalidBooking
	}
	from := params.From
	if from == "" {
		from = bookingdomain.BookingStatusConfirmed
	}
	if err := guard.EnsureTransition(from, bookingdomain.BookingStatusCancelled); err != nil {
		return false, err
	}

	now := s.clock.Now()
	updated := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flipped, err := s.repo.UpdateStatus(ctx, tx, params.BookingID, from, bookingdomain.BookingStatusCancelled, now)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		if err := s.repo.SetCancellation(ctx, tx, params.BookingID, params.Reason, now); err != nil {
			return err
		}
		if params.MarkRefunded {
			if err := s.repo.SetPaymentStatus(ctx, tx, params.BookingID, bookingdomain.PaymentStatusRefunded, now); err != nil {
				return err
			}
		}
		updated = true
		return nil
	})
	return updated, err
}

func (s *Service) MarkDisputed(ctx context.Context, id snowflake.ID) (bool, error) {
	if id == 0 {
		return false, bookingdomain.ErrInvalidBooking
	}
	if err := guard.EnsureTransition(bookingdomain.BookingStatusConfirmed, bookingdomain.BookingStatusDispute); err != nil {
		return false, err
	}
	now := s.clock.Now()
	return s.repo.UpdateStatus(ctx, s.db, id, bookingdomain.BookingStatusConfirmed, bookingdomain.BookingStatusDispute, now)
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*bookingdomain.Booking, error) {
	booking, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, bookingdomain.ErrBookingNotFound
	}
	return booking, nil
}
