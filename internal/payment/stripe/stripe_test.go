package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	paymentdomain "github.com/visalane/visalane/internal/payment/domain"
	"go.uber.org/zap/zaptest"
)

func newTestGateway(t *testing.T, handler http.Handler) *Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Gateway{
		apiKey:  "sk_test",
		baseURL: server.URL,
		log:     zaptest.NewLogger(t),
		client:  &http.Client{Timeout: time.Second},
	}
}

func TestRequestRefund(t *testing.T) {
	var gotAuth, gotIdempotency, gotIntent, gotAmount string
	gateway := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/refunds" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotAuth = r.Header.Get("Authorization")
		gotIdempotency = r.Header.Get("Idempotency-Key")
		gotIntent = r.PostForm.Get("payment_intent")
		gotAmount = r.PostForm.Get("amount")
		w.Write([]byte(`{"id":"re_1","status":"succeeded","amount":10000}`))
	}))

	result, err := gateway.RequestRefund(context.Background(), paymentdomain.RefundRequest{
		PaymentRef: "pi_123",
		Amount:     10000,
		Reason:     "requested_by_customer",
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if result.RefundID != "re_1" {
		t.Fatalf("refund id = %q, want re_1", result.RefundID)
	}
	if gotAuth != "Bearer sk_test" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotIdempotency != "refund:pi_123" {
		t.Fatalf("idempotency key = %q", gotIdempotency)
	}
	if gotIntent != "pi_123" || gotAmount != "10000" {
		t.Fatalf("form = intent %q amount %q", gotIntent, gotAmount)
	}
}

func TestRequestRefundValidation(t *testing.T) {
	gateway := newTestGateway(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	}))

	if _, err := gateway.RequestRefund(context.Background(), paymentdomain.RefundRequest{Amount: 100}); err != paymentdomain.ErrMissingPaymentRef {
		t.Fatalf("err = %v, want ErrMissingPaymentRef", err)
	}
	if _, err := gateway.RequestRefund(context.Background(), paymentdomain.RefundRequest{PaymentRef: "pi_1"}); err != paymentdomain.ErrInvalidAmount {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestSubmitPayout(t *testing.T) {
	gateway := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transfers" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("destination"); got != "acct_1" {
			t.Fatalf("destination = %q", got)
		}
		if got := r.PostForm.Get("currency"); got != "usd" {
			t.Fatalf("currency = %q", got)
		}
		if got := r.Header.Get("Idempotency-Key"); got != "transfer:acct_1:2025-06-20" {
			t.Fatalf("idempotency key = %q", got)
		}
		w.Write([]byte(`{"id":"tr_1","amount":8000,"currency":"usd"}`))
	}))

	result, err := gateway.SubmitPayout(context.Background(), paymentdomain.PayoutRequest{
		AccountRef: "acct_1",
		Amount:     8000,
		Currency:   "USD",
		DedupeRef:  "acct_1:2025-06-20",
	})
	if err != nil {
		t.Fatalf("payout: %v", err)
	}
	if result.TransferID != "tr_1" {
		t.Fatalf("transfer id = %q, want tr_1", result.TransferID)
	}
}

func TestPayoutEnabled(t *testing.T) {
	gateway := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/accounts/acct_1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"acct_1","payouts_enabled":true}`))
	}))

	enabled, err := gateway.PayoutEnabled(context.Background(), "acct_1")
	if err != nil {
		t.Fatalf("payout enabled: %v", err)
	}
	if !enabled {
		t.Fatal("expected payouts enabled")
	}
}

func TestErrorResponseSurfacesStripeMessage(t *testing.T) {
	gateway := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"charge already refunded"}}`))
	}))

	_, err := gateway.RequestRefund(context.Background(), paymentdomain.RefundRequest{
		PaymentRef: "pi_1",
		Amount:     100,
	})
	if err == nil || err.Error() != "charge already refunded" {
		t.Fatalf("err = %v, want stripe message", err)
	}
}

func TestMissingAPIKey(t *testing.T) {
	gateway := &Gateway{baseURL: "http://invalid", log: zaptest.NewLogger(t), client: http.DefaultClient}
	_, err := gateway.RequestRefund(context.Background(), paymentdomain.RefundRequest{
		PaymentRef: "pi_1",
		Amount:     100,
	})
	if err != paymentdomain.ErrGatewayUnavailable {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
}
