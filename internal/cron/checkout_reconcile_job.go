package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/obinna-okoro1/convozo/internal/fulfillment"
	"github.com/obinna-okoro1/convozo/internal/intent"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
	"github.com/obinna-okoro1/convozo/pkg/logger"
)

const (
	defaultCheckoutLookback = 24 * time.Hour
	defaultCheckoutLimit    = 100
)

type paidSessionLister interface {
	ListPaidSessions(ctx context.Context, since time.Time, limit int) ([]*stripe.CheckoutSession, error)
}

type sessionFulfiller interface {
	Fulfill(ctx context.Context, cs *stripe.CheckoutSession) (*fulfillment.Result, error)
}

type CheckoutReconcileJobParams struct {
	Logger      *logger.Logger
	Sessions    paidSessionLister
	Fulfillment sessionFulfiller
	Lookback    time.Duration
	Limit       int
	Now         func() time.Time
}

// NewCheckoutReconcileJob replays recently paid checkout sessions through
// fulfillment. Sessions the webhook already handled come back as already
// processed, so only lost deliveries create rows.
func NewCheckoutReconcileJob(params CheckoutReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session lister required")
	}
	if params.Fulfillment == nil {
		return nil, fmt.Errorf("fulfillment service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultCheckoutLookback
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultCheckoutLimit
	}
	return &checkoutReconcileJob{
		logg:        params.Logger,
		sessions:    params.Sessions,
		fulfillment: params.Fulfillment,
		lookback:    lookback,
		limit:       limit,
		now:         now,
	}, nil
}

type checkoutReconcileJob struct {
	logg        *logger.Logger
	sessions    paidSessionLister
	fulfillment sessionFulfiller
	lookback    time.Duration
	limit       int
	now         func() time.Time
}

func (j *checkoutReconcileJob) Name() string { return "checkout-fulfillment-reconcile" }

func (j *checkoutReconcileJob) Run(ctx context.Context) error {
	since := j.now().Add(-j.lookback)
	sessions, err := j.sessions.ListPaidSessions(ctx, since, j.limit)
	if err != nil && len(sessions) == 0 {
		return fmt.Errorf("list paid sessions: %w", err)
	}
	// A partial listing is still worth replaying.
	errs := err

	recovered, skipped := 0, 0
	for _, cs := range sessions {
		if cs == nil || !intent.IsPurchase(cs.Metadata) {
			continue
		}
		sessionCtx := j.logg.WithField(ctx, "checkout_session_id", cs.ID)
		res, err := j.fulfillment.Fulfill(ctx, cs)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				// Retrying cannot fix bad metadata; report it once per cycle and move on.
				skipped++
				j.logg.Warn(sessionCtx, "skipping checkout session with unusable metadata: "+err.Error())
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("fulfill %s: %w", cs.ID, err))
			continue
		}
		if res.Outcome == fulfillment.OutcomeFulfilled {
			recovered++
			j.logg.Warn(sessionCtx, "fulfilled checkout session missed by webhook")
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"candidates": len(sessions),
		"recovered":  recovered,
		"skipped":    skipped,
		"since":      since.UTC().Format(time.RFC3339),
	}), "checkout reconcile loop complete")
	return errs
}
