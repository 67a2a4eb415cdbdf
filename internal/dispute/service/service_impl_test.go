package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bookingdomain "github.com/visalane/visalane/internal/booking/domain"
	bookingrepo "github.com/visalane/visalane/internal/booking/repository"
	bookingservice "github.com/visalane/visalane/internal/booking/service"
	"github.com/visalane/visalane/internal/clock"
	"github.com/visalane/visalane/internal/config"
	disputedomain "github.com/visalane/visalane/internal/dispute/domain"
	disputerepo "github.com/visalane/visalane/internal/dispute/repository"
	earningdomain "github.com/visalane/visalane/internal/earning/domain"
	earningrepo "github.com/visalane/visalane/internal/earning/repository"
	earningservice "github.com/visalane/visalane/internal/earning/service"
	expertdomain "github.com/visalane/visalane/internal/expert/domain"
	expertrepo "github.com/visalane/visalane/internal/expert/repository"
	paymentdomain "github.com/visalane/visalane/internal/payment/domain"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu          sync.Mutex
	refundErr   error
	refunds     []paymentdomain.RefundRequest
	payoutsOn   bool
	payouts     []paymentdomain.PayoutRequest
	transferSeq int
}

func (g *fakeGateway) RequestRefund(_ context.Context, req paymentdomain.RefundRequest) (*paymentdomain.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, req)
	return &paymentdomain.RefundResult{RefundID: "re_1"}, nil
}

func (g *fakeGateway) SubmitPayout(_ context.Context, req paymentdomain.PayoutRequest) (*paymentdomain.PayoutResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payouts = append(g.payouts, req)
	g.transferSeq++
	return &paymentdomain.PayoutResult{TransferID: "tr_1"}, nil
}

func (g *fakeGateway) PayoutEnabled(context.Context, string) (bool, error) {
	return g.payoutsOn, nil
}

type nopNotifier struct{}

func (nopNotifier) BookingCompleted(context.Context, *bookingdomain.Booking) {}
func (nopNotifier) DisputeCreated(context.Context, *disputedomain.Dispute)   {}
func (nopNotifier) DisputeResponded(context.Context, *disputedomain.Dispute) {}
func (nopNotifier) DisputeResolved(context.Context, *disputedomain.Dispute)  {}

type fixture struct {
	db         *gorm.DB
	svc        disputedomain.Service
	bookingSvc bookingdomain.Service
	clock      *clock.FakeClock
	genID      *snowflake.Node
	gateway    *fakeGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&expertdomain.Expert{},
		&bookingdomain.Booking{},
		&bookingdomain.Consultation{},
		&disputedomain.Dispute{},
		&earningdomain.ExpertEarning{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)
	gateway := &fakeGateway{}

	earningSvc := earningservice.NewService(earningservice.Params{
		Log:        log,
		Repo:       earningrepo.Provide(),
		ExpertRepo: expertrepo.Provide(),
	})
	bookingSvc := bookingservice.NewService(bookingservice.Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fakeClock,
		FeePolicy:  config.NewStaticFeePolicyHolder(config.FeePolicy{CommissionBps: 2000, Currency: "usd"}),
		Repo:       bookingrepo.Provide(),
		EarningSvc: earningSvc,
		Notifier:   nopNotifier{},
	})
	svc := NewService(Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       fakeClock,
		Repo:        disputerepo.Provide(),
		BookingRepo: bookingrepo.Provide(),
		BookingSvc:  bookingSvc,
		Gateway:     gateway,
		Notifier:    nopNotifier{},
	})

	return &fixture{db: db, svc: svc, bookingSvc: bookingSvc, clock: fakeClock, genID: node, gateway: gateway}
}

func (f *fixture) seedDisputedBooking(t *testing.T, disputeType disputedomain.DisputeType, amount int64) (snowflake.ID, snowflake.ID) {
	t.Helper()
	ctx := context.Background()

	expert := &expertdomain.Expert{
		ID:     f.genID.Generate(),
		Name:   "Sana Qureshi",
		Email:  "sana@example.com",
		Active: true,
	}
	require.NoError(t, f.db.Create(expert).Error)

	booking, err := f.bookingSvc.Create(ctx, bookingdomain.CreateBookingRequest{
		ClientID:    f.genID.Generate(),
		ExpertID:    &expert.ID,
		ScheduledAt: f.clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	if amount > 0 {
		require.NoError(t, f.bookingSvc.Confirm(ctx, booking.ID, "pi_disp", amount, "usd"))
	} else {
		// Confirmed without a captured payment.
		require.NoError(t, f.db.Exec(
			`UPDATE bookings SET status = ? WHERE id = ?`,
			bookingdomain.BookingStatusConfirmed, booking.ID,
		).Error)
	}

	dispute, err := f.svc.Report(ctx, disputedomain.ReportRequest{
		BookingID:  booking.ID,
		ReportedBy: booking.ClientID,
		Type:       disputeType,
		Reason:     "issue",
	})
	require.NoError(t, err)
	return booking.ID, dispute.ID
}

func TestReport_MovesBookingToDispute(t *testing.T) {
	f := newFixture(t)
	bookingID, disputeID := f.seedDisputedBooking(t, disputedomain.DisputeTypeQuality, 10000)

	booking, err := f.bookingSvc.GetByID(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.BookingStatusDispute, booking.Status)

	var dispute disputedomain.Dispute
	require.NoError(t, f.db.First(&dispute, "id = ?", disputeID).Error)
	assert.Equal(t, disputedomain.DisputeStatusPending, dispute.Status)
}

func TestReport_SecondActiveDisputeRejected(t *testing.T) {
	f := newFixture(t)
	bookingID, _ := f.seedDisputedBooking(t, disputedomain.DisputeTypeQuality, 10000)

	_, err := f.svc.Report(context.Background(), disputedomain.ReportRequest{
		BookingID:  bookingID,
		ReportedBy: f.genID.Generate(),
		Type:       disputedomain.DisputeTypeOther,
		Reason:     "again",
	})
	assert.ErrorIs(t, err, bookingdomain.ErrBookingHasDispute)
}

func TestAutoResolve_ClientInitiated_RefundsAndCancels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookingID, disputeID := f.seedDisputedBooking(t, disputedomain.DisputeTypeExpertNoShow, 10000)

	outcome, err := f.svc.AutoResolve(ctx, disputeID)
	require.NoError(t, err)
	assert.Equal(t, disputedomain.OutcomeRefunded, outcome)

	booking, err := f.bookingSvc.GetByID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.BookingStatusCancelled, booking.Status)
	assert.Equal(t, bookingdomain.PaymentStatusRefunded, booking.PaymentStatus)

	var dispute disputedomain.Dispute
	require.NoError(t, f.db.First(&dispute, "id = ?", disputeID).Error)
	assert.Equal(t, disputedomain.DisputeStatusResolved, dispute.Status)
	assert.True(t, dispute.ResolvedBySystem)
	require.NotNil(t, dispute.ResolvedAt)
	assert.Nil(t, dispute.ResolvedBy)

	require.Len(t, f.gateway.refunds, 1)
	assert.Equal(t, int64(10000), f.gateway.refunds[0].Amount)
	assert.Equal(t, paymentdomain.RefundReasonRequestedByCustomer, f.gateway.refunds[0].Reason)
}

func TestAutoResolve_UnpaidBookingCancelsWithoutRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookingID, disputeID := f.seedDisputedBooking(t, disputedomain.DisputeTypeQuality, 0)

	outcome, err := f.svc.AutoResolve(ctx, disputeID)
	require.NoError(t, err)
	assert.Equal(t, disputedomain.OutcomeCancelled, outcome)

	booking, err := f.bookingSvc.GetByID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.BookingStatusCancelled, booking.Status)
	assert.Empty(t, f.gateway.refunds)
}

func TestAutoResolve_RefundFailureLeavesDisputeResolving(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookingID, disputeID := f.seedDisputedBooking(t, disputedomain.DisputeTypeQuality, 10000)
	f.gateway.refundErr = errors.New("card_network_down")

	_, err := f.svc.AutoResolve(ctx, disputeID)
	require.ErrorIs(t, err, disputedomain.ErrRefundFailed)

	booking, err2 := f.bookingSvc.GetByID(ctx, bookingID)
	require.NoError(t, err2)
	assert.Equal(t, bookingdomain.BookingStatusDispute, booking.Status)

	var dispute disputedomain.Dispute
	require.NoError(t, f.db.First(&dispute, "id = ?", disputeID).Error)
	assert.Equal(t, disputedomain.DisputeStatusResolving, dispute.Status)
	assert.False(t, dispute.ResolvedBySystem)

	// Next sweep retries: gateway recovered, resolution completes.
	f.gateway.refundErr = nil
	outcome, err := f.svc.AutoResolve(ctx, disputeID)
	require.NoError(t, err)
	assert.Equal(t, disputedomain.OutcomeRefunded, outcome)

	require.NoError(t, f.db.First(&dispute, "id = ?", disputeID).Error)
	assert.Equal(t, disputedomain.DisputeStatusResolved, dispute.Status)
}

func TestAutoResolve_ClientNoShow_CompletesBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookingID, disputeID := f.seedDisputedBooking(t, disputedomain.DisputeTypeClientNoShow, 10000)

	outcome, err := f.svc.AutoResolve(ctx, disputeID)
	require.NoError(t, err)
	assert.Equal(t, disputedomain.OutcomeClientNoShow, outcome)

	booking, err := f.bookingSvc.GetByID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.BookingStatusCompleted, booking.Status)

	var consultation bookingdomain.Consultation
	require.NoError(t, f.db.Where("booking_id = ?", bookingID).First(&consultation).Error)
	assert.Equal(t, bookingdomain.ConsultationStatusClientNoShow, consultation.Status)

	var earning earningdomain.ExpertEarning
	require.NoError(t, f.db.Where("booking_id = ?", bookingID).First(&earning).Error)
	assert.Equal(t, earningdomain.EarningStatusPending, earning.Status)
	assert.Equal(t, int64(8000), earning.Amount)
	assert.Empty(t, f.gateway.refunds)
}

func TestAutoResolve_HumanResolutionWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, disputeID := f.seedDisputedBooking(t, disputedomain.DisputeTypeQuality, 10000)

	adminID := f.genID.Generate()
	require.NoError(t, f.svc.Resolve(ctx, disputeID, adminID, disputedomain.ResolutionCancelBooking, "admin call"))

	outcome, err := f.svc.AutoResolve(ctx, disputeID)
	require.ErrorIs(t, err, disputedomain.ErrHumanResolved)
	assert.Equal(t, disputedomain.OutcomeNoop, outcome)

	var dispute disputedomain.Dispute
	require.NoError(t, f.db.First(&dispute, "id = ?", disputeID).Error)
	assert.False(t, dispute.ResolvedBySystem)
	require.NotNil(t, dispute.ResolvedBy)
	assert.Equal(t, adminID, *dispute.ResolvedBy)
}

func TestRespond_FlipsPendingOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, disputeID := f.seedDisputedBooking(t, disputedomain.DisputeTypeQuality, 10000)

	require.NoError(t, f.svc.Respond(ctx, disputeID))

	var dispute disputedomain.Dispute
	require.NoError(t, f.db.First(&dispute, "id = ?", disputeID).Error)
	assert.Equal(t, disputedomain.DisputeStatusExpertResponded, dispute.Status)
	require.NotNil(t, dispute.RespondedAt)

	assert.ErrorIs(t, f.svc.Respond(ctx, disputeID), disputedomain.ErrDisputeNotActive)
}
