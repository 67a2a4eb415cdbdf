package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	earningdomain "github.com/visalane/visalane/internal/earning/domain"
	earningrepo "github.com/visalane/visalane/internal/earning/repository"
	expertdomain "github.com/visalane/visalane/internal/expert/domain"
	expertrepo "github.com/visalane/visalane/internal/expert/repository"
	paymentdomain "github.com/visalane/visalane/internal/payment/domain"
	payoutdomain "github.com/visalane/visalane/internal/payout/domain"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fakeGateway struct {
	payoutErr     error
	accountErr    error
	payoutsOn     bool
	payouts       []paymentdomain.PayoutRequest
	transferSeq   int
	accountChecks []string
}

func (g *fakeGateway) RequestRefund(context.Context, paymentdomain.RefundRequest) (*paymentdomain.RefundResult, error) {
	return &paymentdomain.RefundResult{RefundID: "re_test"}, nil
}

func (g *fakeGateway) SubmitPayout(_ context.Context, req paymentdomain.PayoutRequest) (*paymentdomain.PayoutResult, error) {
	if g.payoutErr != nil {
		return nil, g.payoutErr
	}
	g.transferSeq++
	g.payouts = append(g.payouts, req)
	return &paymentdomain.PayoutResult{TransferID: "tr_test"}, nil
}

func (g *fakeGateway) PayoutEnabled(_ context.Context, ref string) (bool, error) {
	g.accountChecks = append(g.accountChecks, ref)
	if g.accountErr != nil {
		return false, g.accountErr
	}
	return g.payoutsOn, nil
}

type fixture struct {
	db      *gorm.DB
	batcher payoutdomain.Batcher
	gateway *fakeGateway
	genID   *snowflake.Node
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	stripLocking := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			newSQL = strings.ReplaceAll(newSQL, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripLocking)
	db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripLocking)
	require.NoError(t, db.AutoMigrate(&expertdomain.Expert{}, &earningdomain.ExpertEarning{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	gateway := &fakeGateway{payoutsOn: true}
	batcher := NewBatcher(Params{
		DB:          db,
		Log:         zaptest.NewLogger(t),
		EarningRepo: earningrepo.Provide(),
		ExpertRepo:  expertrepo.Provide(),
		Gateway:     gateway,
	})
	return &fixture{db: db, batcher: batcher, gateway: gateway, genID: node}
}

func (f *fixture) seedExpert(t *testing.T, name string, payoutEnabled bool) snowflake.ID {
	t.Helper()
	expert := &expertdomain.Expert{
		ID:               f.genID.Generate(),
		Name:             name,
		Email:            strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Active:           true,
		PayoutAccountRef: "acct_" + name,
		PayoutEnabled:    payoutEnabled,
	}
	require.NoError(t, f.db.Create(expert).Error)
	return expert.ID
}

func (f *fixture) seedEarning(t *testing.T, expertID snowflake.ID, amount int64, calculatedAt time.Time) snowflake.ID {
	t.Helper()
	earning := &earningdomain.ExpertEarning{
		ID:           f.genID.Generate(),
		BookingID:    f.genID.Generate(),
		ExpertID:     expertID,
		Amount:       amount,
		PlatformFee:  amount / 4,
		Currency:     "usd",
		Status:       earningdomain.EarningStatusPending,
		CalculatedAt: calculatedAt,
		CreatedAt:    calculatedAt,
		UpdatedAt:    calculatedAt,
	}
	require.NoError(t, f.db.Create(earning).Error)
	require.NoError(t, f.db.Exec(
		`UPDATE experts SET pending_payout = pending_payout + ? WHERE id = ?`,
		amount, expertID,
	).Error)
	return earning.ID
}

// Friday 2025-06-20; the batch window is Monday 2025-06-16 through the end of
// this Friday.
var payoutNow = time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)

func TestRun_PaysOneTransferPerExpert(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	expertID := f.seedExpert(t, "Mirela Ionescu", true)
	f.seedEarning(t, expertID, 8000, payoutNow.AddDate(0, 0, -3))
	f.seedEarning(t, expertID, 4000, payoutNow.AddDate(0, 0, -1))

	summary, err := f.batcher.Run(ctx, payoutNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Experts)
	assert.Equal(t, 1, summary.Submitted)
	assert.Equal(t, int64(12000), summary.TotalAmount)

	require.Len(t, f.gateway.payouts, 1)
	payout := f.gateway.payouts[0]
	assert.Equal(t, int64(12000), payout.Amount)
	assert.Equal(t, "usd", payout.Currency)
	assert.Equal(t, "acct_Mirela Ionescu", payout.AccountRef)
	assert.Equal(t, fmt.Sprintf("%s:2025-06-20", expertID), payout.DedupeRef)
	assert.Contains(t, payout.Description, "week ending 2025-06-20")
	assert.False(t, payout.Instant)

	var expert expertdomain.Expert
	require.NoError(t, f.db.First(&expert, "id = ?", expertID).Error)
	assert.Equal(t, int64(0), expert.PendingPayout)
}

func TestRun_SecondRunPaysNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	expertID := f.seedExpert(t, "Mirela Ionescu", true)
	f.seedEarning(t, expertID, 8000, payoutNow.AddDate(0, 0, -3))

	_, err := f.batcher.Run(ctx, payoutNow)
	require.NoError(t, err)

	summary, err := f.batcher.Run(ctx, payoutNow)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Experts)
	assert.Equal(t, 0, summary.Submitted)
	assert.Len(t, f.gateway.payouts, 1)

	var paid int64
	require.NoError(t, f.db.Model(&earningdomain.ExpertEarning{}).
		Where("expert_id = ? AND status = ?", expertID, earningdomain.EarningStatusPaid).
		Count(&paid).Error)
	assert.Equal(t, int64(1), paid)
}

func TestRun_EarningOutsideWindowIsHeldBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	expertID := f.seedExpert(t, "Mirela Ionescu", true)
	inWindow := f.seedEarning(t, expertID, 8000, payoutNow.AddDate(0, 0, -2))
	// Previous week; waits for the next batch.
	held := f.seedEarning(t, expertID, 5000, payoutNow.AddDate(0, 0, -8))

	summary, err := f.batcher.Run(ctx, payoutNow)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), summary.TotalAmount)

	var paid earningdomain.ExpertEarning
	require.NoError(t, f.db.First(&paid, "id = ?", inWindow).Error)
	assert.Equal(t, earningdomain.EarningStatusPaid, paid.Status)

	var pending earningdomain.ExpertEarning
	require.NoError(t, f.db.First(&pending, "id = ?", held).Error)
	assert.Equal(t, earningdomain.EarningStatusPending, pending.Status)
}

func TestRun_DisabledAccountIsSkippedAndEarningsStayPending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	disabledID := f.seedExpert(t, "Omar Haddad", false)
	enabledID := f.seedExpert(t, "Mirela Ionescu", true)
	f.seedEarning(t, disabledID, 6000, payoutNow.AddDate(0, 0, -2))
	f.seedEarning(t, enabledID, 8000, payoutNow.AddDate(0, 0, -2))

	summary, err := f.batcher.Run(ctx, payoutNow)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Experts)
	assert.Equal(t, 1, summary.Submitted)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, int64(8000), summary.TotalAmount)

	var pending int64
	require.NoError(t, f.db.Model(&earningdomain.ExpertEarning{}).
		Where("expert_id = ? AND status = ?", disabledID, earningdomain.EarningStatusPending).
		Count(&pending).Error)
	assert.Equal(t, int64(1), pending)
}

func TestRun_DeactivatedExpertIsSkipped(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	expertID := f.seedExpert(t, "Omar Haddad", true)
	f.seedEarning(t, expertID, 6000, payoutNow.AddDate(0, 0, -2))
	require.NoError(t, f.db.Exec(`UPDATE experts SET active = ? WHERE id = ?`, false, expertID).Error)

	summary, err := f.batcher.Run(ctx, payoutNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Submitted)
	assert.Empty(t, f.gateway.payouts)

	var pending int64
	require.NoError(t, f.db.Model(&earningdomain.ExpertEarning{}).
		Where("expert_id = ? AND status = ?", expertID, earningdomain.EarningStatusPending).
		Count(&pending).Error)
	assert.Equal(t, int64(1), pending)
}

func TestRun_GatewayRejectionLeavesEarningsPending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	expertID := f.seedExpert(t, "Mirela Ionescu", true)
	f.seedEarning(t, expertID, 8000, payoutNow.AddDate(0, 0, -2))
	f.gateway.payoutErr = errors.New("transfer rejected")

	summary, err := f.batcher.Run(ctx, payoutNow)
	require.Error(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Submitted)

	var pending int64
	require.NoError(t, f.db.Model(&earningdomain.ExpertEarning{}).
		Where("expert_id = ? AND status = ?", expertID, earningdomain.EarningStatusPending).
		Count(&pending).Error)
	assert.Equal(t, int64(1), pending)

	// Nothing was marked paid, so the next run retries the transfer under
	// the same dedupe ref.
	f.gateway.payoutErr = nil
	summary, err = f.batcher.Run(ctx, payoutNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Submitted)
	require.Len(t, f.gateway.payouts, 1)
	assert.Equal(t, fmt.Sprintf("%s:2025-06-20", expertID), f.gateway.payouts[0].DedupeRef)
}

func TestRun_StripeAccountCheckGatesPayout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	expertID := f.seedExpert(t, "Mirela Ionescu", true)
	f.seedEarning(t, expertID, 8000, payoutNow.AddDate(0, 0, -2))
	f.gateway.payoutsOn = false

	summary, err := f.batcher.Run(ctx, payoutNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, f.gateway.payouts)
	assert.NotEmpty(t, f.gateway.accountChecks)
}
