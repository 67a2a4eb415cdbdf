package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	earningdomain "github.com/visalane/visalane/internal/earning/domain"
	expertdomain "github.com/visalane/visalane/internal/expert/domain"
	"github.com/visalane/visalane/internal/observability/metrics"
	paymentdomain "github.com/visalane/visalane/internal/payment/domain"
	payoutdomain "github.com/visalane/visalane/internal/payout/domain"
	"github.com/visalane/visalane/pkg/busday"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	EarningRepo earningdomain.Repository
	ExpertRepo  expertdomain.Repository
	Gateway     paymentdomain.Gateway
}

type Batcher struct {
	db          *gorm.DB
	log         *zap.Logger
	earningRepo earningdomain.Repository
	expertRepo  expertdomain.Repository
	gateway     paymentdomain.Gateway
	metrics     *metrics.SettlementMetrics
}

func NewBatcher(p Params) payoutdomain.Batcher {
	return &Batcher{
		db:          p.DB,
		log:         p.Log.Named("payout.batcher"),
		earningRepo: p.EarningRepo,
		expertRepo:  p.ExpertRepo,
		gateway:     p.Gateway,
		metrics:     metrics.Settlement(),
	}
}

func (b *Batcher) Run(ctx context.Context, now time.Time) (payoutdomain.Summary, error) {
	monday, fridayEnd := busday.Week(now)
	summary := payoutdomain.Summary{
		WindowStart: monday,
		WindowEnd:   fridayEnd,
	}

	expertIDs, err := b.earningRepo.ExpertIDsWithPendingInWindow(ctx, b.db, monday, fridayEnd)
	if err != nil {
		return summary, fmt.Errorf("list payout candidates: %w", err)
	}
	summary.Experts = len(expertIDs)
	if len(expertIDs) == 0 {
		b.log.Info("no pending earnings in window",
			zap.Time("window_start", monday),
			zap.Time("window_end", fridayEnd),
		)
		return summary, nil
	}

	var errs []error
	for _, expertID := range expertIDs {
		amount, err := b.settleExpert(ctx, expertID, now, monday, fridayEnd)
		switch {
		case errors.Is(err, errSkipped):
			summary.Skipped++
			b.metrics.IncPayoutExpertSkipped()
		case err != nil:
			summary.Failed++
			b.metrics.IncPayoutFailed()
			errs = append(errs, fmt.Errorf("expert %s: %w", expertID, err))
		default:
			summary.Submitted++
			summary.TotalAmount += amount
			b.metrics.IncPayoutSubmitted(amount)
		}
	}

	b.log.Info("weekly payout batch finished",
		zap.Time("window_start", monday),
		zap.Time("window_end", fridayEnd),
		zap.Int("experts", summary.Experts),
		zap.Int("submitted", summary.Submitted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int64("total_amount", summary.TotalAmount),
	)
	return summary, errors.Join(errs...)
}

// errSkipped marks an expert passed over for eligibility, not failure.
var errSkipped = errors.New("payout_expert_skipped")

func (b *Batcher) settleExpert(ctx context.Context, expertID snowflake.ID, now, from, to time.Time) (int64, error) {
	expert, err := b.expertRepo.FindByID(ctx, b.db, expertID)
	if err != nil {
		return 0, err
	}
	if expert == nil {
		return 0, expertdomain.ErrExpertNotFound
	}

	if !expert.Active {
		b.log.Warn("expert deactivated, skipping payout",
			zap.Int64("expert_id", int64(expertID)),
			zap.String("name", expert.Name),
		)
		return 0, errSkipped
	}
	if !expert.PayoutEnabled || expert.PayoutAccountRef == "" {
		b.log.Warn("payout account not ready, skipping expert",
			zap.Int64("expert_id", int64(expertID)),
			zap.String("name", expert.Name),
		)
		return 0, errSkipped
	}
	enabled, err := b.gateway.PayoutEnabled(ctx, expert.PayoutAccountRef)
	if err != nil {
		return 0, fmt.Errorf("check payout account: %w", err)
	}
	if !enabled {
		b.log.Warn("gateway reports payouts disabled, skipping expert",
			zap.Int64("expert_id", int64(expertID)),
			zap.String("account_ref", expert.PayoutAccountRef),
		)
		return 0, errSkipped
	}

	earnings, err := b.earningRepo.ListPendingInWindow(ctx, b.db, expertID, from, to)
	if err != nil {
		return 0, err
	}
	if len(earnings) == 0 {
		return 0, errSkipped
	}

	var total int64
	currency := ""
	for _, earning := range earnings {
		total += earning.Amount
		if currency == "" {
			currency = earning.Currency
		}
	}
	if total <= 0 {
		return 0, errSkipped
	}

	weekEnding := busday.Friday(from).Format("2006-01-02")
	result, err := b.gateway.SubmitPayout(ctx, paymentdomain.PayoutRequest{
		AccountRef: expert.PayoutAccountRef,
		Amount:     total,
		Currency:   currency,
		// Stable per expert and week: an overlapping run replays the same
		// transfer instead of submitting a second one.
		DedupeRef:   fmt.Sprintf("%s:%s", expert.ID, weekEnding),
		Description: fmt.Sprintf("Weekly payout for %s (week ending %s)", expert.Name, weekEnding),
		Instant:     false,
	})
	if err != nil {
		// Earnings stay pending; next week's run reconsiders them.
		b.log.Error("payout submission failed",
			zap.Int64("expert_id", int64(expertID)),
			zap.Int64("amount", total),
			zap.Error(err),
		)
		return 0, err
	}

	err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		paidAt := now.UTC()
		for _, earning := range earnings {
			moved, err := b.earningRepo.MarkPaid(ctx, tx, earning.ID, paidAt)
			if err != nil {
				return err
			}
			if !moved {
				// A concurrent run won the status flip. Keep going so the
				// rest of the batch still closes.
				b.log.Warn("earning already paid",
					zap.Int64("earning_id", int64(earning.ID)),
					zap.Int64("booking_id", int64(earning.BookingID)),
				)
			}
		}
		return b.expertRepo.RecomputePendingPayout(ctx, tx, expertID)
	})
	if err != nil {
		return 0, fmt.Errorf("mark earnings paid: %w", err)
	}

	b.log.Info("payout submitted",
		zap.Int64("expert_id", int64(expertID)),
		zap.String("transfer_id", result.TransferID),
		zap.Int64("amount", total),
		zap.Int("earnings", len(earnings)),
	)
	return total, nil
}
