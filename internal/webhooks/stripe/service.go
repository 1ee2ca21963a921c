package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/obinna-okoro1/convozo/internal/connect"
	"github.com/obinna-okoro1/convozo/internal/fulfillment"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
	"github.com/obinna-okoro1/convozo/pkg/logger"
)

type fulfiller interface {
	Fulfill(ctx context.Context, cs *stripe.CheckoutSession) (*fulfillment.Result, error)
}

type accountSyncer interface {
	Sync(ctx context.Context, acct *stripe.Account) (*connect.AccountStatus, error)
}

type webhookMetrics interface {
	IncWebhook(eventType, outcome string)
}

// Outcome labels what a delivery did. It is logged and exported as a metric.
type Outcome string

const (
	OutcomeFulfilled Outcome = "fulfilled"
	OutcomeSkipped   Outcome = "skipped"
	OutcomePending   Outcome = "pending"
	OutcomeSynced    Outcome = "synced"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

type ServiceParams struct {
	Fulfillment fulfiller
	Accounts    accountSyncer
	Metrics     webhookMetrics
	Logger      *logger.Logger
}

type Service struct {
	fulfillment fulfiller
	accounts    accountSyncer
	metrics     webhookMetrics
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Fulfillment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "connect service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		fulfillment: params.Fulfillment,
		accounts:    params.Accounts,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// HandleEvent dispatches a verified event. Validation errors are permanent;
// any other error should make the provider redeliver.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (Outcome, error) {
	if event == nil || event.Data == nil {
		return OutcomeRejected, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	fields := map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
	}
	if strings.HasPrefix(string(event.Type), "checkout.session.") {
		fields["checkout_session_id"] = event.GetObjectValue("id")
	}
	ctx = s.logg.WithFields(ctx, fields)

	outcome, err := s.dispatch(ctx, event)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			outcome = OutcomeRejected
		} else {
			outcome = OutcomeFailed
		}
		s.logg.Error(s.logg.WithField(ctx, "outcome", string(outcome)), "stripe event failed", err)
	} else {
		s.logg.Info(s.logg.WithField(ctx, "outcome", string(outcome)), "stripe event handled")
	}
	if s.metrics != nil {
		s.metrics.IncWebhook(string(event.Type), string(outcome))
	}
	return outcome, err
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) (Outcome, error) {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return OutcomeRejected, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		res, err := s.fulfillment.Fulfill(ctx, &cs)
		if err != nil {
			return OutcomeFailed, err
		}
		if res.IsAlreadyProcessed() {
			return OutcomeSkipped, nil
		}
		if res.Outcome == fulfillment.OutcomeAwaitingPayment {
			return OutcomePending, nil
		}
		return OutcomeFulfilled, nil

	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		s.logg.Warn(ctx, "delayed payment failed, nothing fulfilled")
		return OutcomeIgnored, nil

	case stripe.EventTypeAccountUpdated:
		var acct stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
			return OutcomeRejected, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode account")
		}
		if _, err := s.accounts.Sync(ctx, &acct); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeSynced, nil

	default:
		return OutcomeIgnored, nil
	}
}
