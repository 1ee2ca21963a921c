package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/obinna-okoro1/convozo/internal/connect"
	"github.com/obinna-okoro1/convozo/internal/fulfillment"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
	"github.com/obinna-okoro1/convozo/pkg/logger"
)

type stubFulfiller struct {
	sessions []*stripe.CheckoutSession
	result   *fulfillment.Result
	err      error
}

func (s *stubFulfiller) Fulfill(ctx context.Context, cs *stripe.CheckoutSession) (*fulfillment.Result, error) {
	s.sessions = append(s.sessions, cs)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubSyncer struct {
	accounts []*stripe.Account
	err      error
}

func (s *stubSyncer) Sync(ctx context.Context, acct *stripe.Account) (*connect.AccountStatus, error) {
	s.accounts = append(s.accounts, acct)
	return &connect.AccountStatus{}, s.err
}

type countingMetrics struct {
	outcomes map[string]int
}

func (m *countingMetrics) IncWebhook(eventType, outcome string) {
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[eventType+"/"+outcome]++
}

func newTestService(t *testing.T, f *stubFulfiller, s *stubSyncer, m *countingMetrics) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Fulfillment: f, Accounts: s, Metrics: m, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return svc
}

func eventWith(t *testing.T, eventType stripe.EventType, object any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &stripe.Event{ID: "evt_1", Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

func TestService_HandleCheckoutCompleted(t *testing.T) {
	fulfiller := &stubFulfiller{result: &fulfillment.Result{Outcome: fulfillment.OutcomeFulfilled}}
	metrics := &countingMetrics{}
	svc := newTestService(t, fulfiller, &stubSyncer{}, metrics)

	event := eventWith(t, stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"id":             "cs_test_1",
		"object":         "checkout.session",
		"amount_total":   1000,
		"payment_status": "paid",
		"metadata":       map[string]string{"kind": "message"},
		"created":        time.Now().Unix(),
	})

	outcome, err := svc.HandleEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if outcome != OutcomeFulfilled {
		t.Fatalf("expected fulfilled, got %s", outcome)
	}
	if len(fulfiller.sessions) != 1 || fulfiller.sessions[0].ID != "cs_test_1" || fulfiller.sessions[0].AmountTotal != 1000 {
		t.Fatalf("session not decoded: %+v", fulfiller.sessions)
	}
	if fulfiller.sessions[0].Metadata["kind"] != "message" {
		t.Fatal("metadata not passed through")
	}
	if metrics.outcomes["checkout.session.completed/fulfilled"] != 1 {
		t.Fatalf("unexpected metrics %v", metrics.outcomes)
	}
}

func TestService_HandleCheckoutOutcomes(t *testing.T) {
	cases := []struct {
		name    string
		result  *fulfillment.Result
		err     error
		want    Outcome
		wantErr bool
	}{
		{name: "duplicate", result: &fulfillment.Result{Outcome: fulfillment.OutcomeAlreadyProcessed}, want: OutcomeSkipped},
		{name: "unpaid", result: &fulfillment.Result{Outcome: fulfillment.OutcomeAwaitingPayment}, want: OutcomePending},
		{name: "bad metadata", err: pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout metadata"), want: OutcomeRejected, wantErr: true},
		{name: "store down", err: pkgerrors.New(pkgerrors.CodeDependency, "db"), want: OutcomeFailed, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, &stubFulfiller{result: tc.result, err: tc.err}, &stubSyncer{}, nil)
			event := eventWith(t, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded, map[string]any{"id": "cs_1"})

			outcome, err := svc.HandleEvent(context.Background(), event)
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if outcome != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, outcome)
			}
		})
	}
}

func TestService_HandleAccountUpdated(t *testing.T) {
	syncer := &stubSyncer{}
	svc := newTestService(t, &stubFulfiller{}, syncer, nil)

	event := eventWith(t, stripe.EventTypeAccountUpdated, map[string]any{
		"id":                "acct_1",
		"object":            "account",
		"charges_enabled":   true,
		"details_submitted": true,
	})
	outcome, err := svc.HandleEvent(context.Background(), event)
	if err != nil || outcome != OutcomeSynced {
		t.Fatalf("expected synced, got %s %v", outcome, err)
	}
	if len(syncer.accounts) != 1 || !syncer.accounts[0].ChargesEnabled {
		t.Fatalf("account not decoded: %+v", syncer.accounts)
	}

	syncer.err = errors.New("db down")
	if _, err := svc.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("expected sync error to surface")
	}
}

func TestService_IgnoresOtherEvents(t *testing.T) {
	fulfiller := &stubFulfiller{}
	svc := newTestService(t, fulfiller, &stubSyncer{}, nil)

	outcome, err := svc.HandleEvent(context.Background(), eventWith(t, stripe.EventTypeCustomerCreated, map[string]any{"id": "cus_1"}))
	if err != nil || outcome != OutcomeIgnored {
		t.Fatalf("expected ignored, got %s %v", outcome, err)
	}
	if len(fulfiller.sessions) != 0 {
		t.Fatal("unrelated events must not fulfill")
	}

	if _, err := svc.HandleEvent(context.Background(), &stripe.Event{ID: "evt_empty"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty event, got %v", err)
	}
}
