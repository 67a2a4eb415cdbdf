// Package domain declares the external payment gateway contract used for
// refunds and expert payouts. Implementations own their own timeouts and
// retries; callers treat every method as a single synchronous attempt.
package domain

import (
	"context"
	"errors"
)

// RefundReasonRequestedByCustomer is the gateway reason code attached to
// dispute-driven refunds.
const RefundReasonRequestedByCustomer = "requested_by_customer"

var (
	ErrMissingPaymentRef  = errors.New("payment_missing_reference")
	ErrMissingAccountRef  = errors.New("payment_missing_account_reference")
	ErrInvalidAmount      = errors.New("payment_invalid_amount")
	ErrGatewayUnavailable = errors.New("payment_gateway_unavailable")
)

// RefundRequest asks the gateway to return a captured payment to the client.
type RefundRequest struct {
	PaymentRef string
	Amount     int64
	Currency   string
	Reason     string
}

type RefundResult struct {
	RefundID string
}

// PayoutRequest asks the gateway to transfer accrued earnings to an expert's
// connected account. Instant is always false for the weekly batch; scheduled
// payouts carry no gateway fee.
type PayoutRequest struct {
	AccountRef string
	Amount     int64
	Currency   string
	// DedupeRef must be stable across retries of the same logical payout
	// (account + settlement window) so the gateway rejects a replayed
	// transfer instead of creating a second one.
	DedupeRef   string
	Description string
	Instant     bool
}

type PayoutResult struct {
	TransferID string
}

type Gateway interface {
	RequestRefund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	SubmitPayout(ctx context.Context, req PayoutRequest) (*PayoutResult, error)
	PayoutEnabled(ctx context.Context, accountRef string) (bool, error)
}
