// Package stripe implements the payment gateway against Stripe's HTTP API.
// Refunds return captured booking payments; payouts are transfers into an
// expert's connected account.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/visalane/visalane/internal/config"
	paymentdomain "github.com/visalane/visalane/internal/payment/domain"
	"go.uber.org/zap"
)

const apiBase = "https://api.stripe.com"

type stripeRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

type stripeTransfer struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type stripeAccount struct {
	ID             string `json:"id"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Gateway struct {
	apiKey  string
	baseURL string
	log     *zap.Logger
	client  *http.Client
}

func New(cfg config.Config, log *zap.Logger) paymentdomain.Gateway {
	return &Gateway{
		apiKey:  strings.TrimSpace(cfg.StripeSecretKey),
		baseURL: apiBase,
		log:     log.Named("payment.stripe"),
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (g *Gateway) RequestRefund(ctx context.Context, req paymentdomain.RefundRequest) (*paymentdomain.RefundResult, error) {
	if strings.TrimSpace(req.PaymentRef) == "" {
		return nil, paymentdomain.ErrMissingPaymentRef
	}
	if req.Amount <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}

	values := url.Values{}
	values.Set("payment_intent", req.PaymentRef)
	values.Set("amount", strconv.FormatInt(req.Amount, 10))
	if req.Reason != "" {
		values.Set("reason", req.Reason)
	}

	var refund stripeRefund
	err := g.doRequest(ctx, http.MethodPost, "/v1/refunds", values, "refund:"+req.PaymentRef, &refund)
	if err != nil {
		return nil, err
	}
	if refund.ID == "" {
		return nil, errors.New("stripe_response_invalid")
	}

	g.log.Info("refund submitted",
		zap.String("payment_ref", req.PaymentRef),
		zap.String("refund_id", refund.ID),
		zap.Int64("amount", req.Amount),
	)
	return &paymentdomain.RefundResult{RefundID: refund.ID}, nil
}

func (g *Gateway) SubmitPayout(ctx context.Context, req paymentdomain.PayoutRequest) (*paymentdomain.PayoutResult, error) {
	if strings.TrimSpace(req.AccountRef) == "" {
		return nil, paymentdomain.ErrMissingAccountRef
	}
	if req.Amount <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}

	values := url.Values{}
	values.Set("amount", strconv.FormatInt(req.Amount, 10))
	values.Set("currency", strings.ToLower(req.Currency))
	values.Set("destination", req.AccountRef)
	if req.Description != "" {
		values.Set("description", req.Description)
	}
	if req.Instant {
		values.Set("metadata[speed]", "instant")
	}

	// A stable dedupe ref lets Stripe reject replays of the same logical
	// payout; ad-hoc transfers without one get a fresh key.
	idempotencyKey := "transfer:" + req.DedupeRef
	if req.DedupeRef == "" {
		idempotencyKey = "transfer:" + uuid.NewString()
	}

	var transfer stripeTransfer
	err := g.doRequest(ctx, http.MethodPost, "/v1/transfers", values, idempotencyKey, &transfer)
	if err != nil {
		return nil, err
	}
	if transfer.ID == "" {
		return nil, errors.New("stripe_response_invalid")
	}

	g.log.Info("payout submitted",
		zap.String("account_ref", req.AccountRef),
		zap.String("transfer_id", transfer.ID),
		zap.Int64("amount", req.Amount),
	)
	return &paymentdomain.PayoutResult{TransferID: transfer.ID}, nil
}

func (g *Gateway) PayoutEnabled(ctx context.Context, accountRef string) (bool, error) {
	if strings.TrimSpace(accountRef) == "" {
		return false, paymentdomain.ErrMissingAccountRef
	}

	var account stripeAccount
	err := g.doRequest(ctx, http.MethodGet, "/v1/accounts/"+url.PathEscape(accountRef), nil, "", &account)
	if err != nil {
		return false, err
	}
	return account.PayoutsEnabled, nil
}

func (g *Gateway) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
	out any,
) error {
	if g.apiKey == "" {
		return paymentdomain.ErrGatewayUnavailable
	}

	var bodyReader *strings.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return errors.Join(paymentdomain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return errors.New("stripe_request_failed")
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return errors.New(message)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
