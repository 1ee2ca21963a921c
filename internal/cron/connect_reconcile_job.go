package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/obinna-okoro1/convozo/internal/connect"
	"github.com/obinna-okoro1/convozo/pkg/db/models"
	"github.com/obinna-okoro1/convozo/pkg/logger"
)

const defaultConnectReconcileLimit = 100

type incompleteAccountLister interface {
	ListIncomplete(ctx context.Context, limit int) ([]models.StripeAccount, error)
}

type accountRefresher interface {
	Refresh(ctx context.Context, row *models.StripeAccount) (*connect.AccountStatus, error)
}

type ConnectReconcileJobParams struct {
	Logger   *logger.Logger
	Accounts incompleteAccountLister
	Connect  accountRefresher
	Limit    int
}

// NewConnectReconcileJob re-verifies payout accounts that have not finished
// onboarding, covering account.updated events that never arrived.
func NewConnectReconcileJob(params ConnectReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("stripe account repository required")
	}
	if params.Connect == nil {
		return nil, fmt.Errorf("connect service required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultConnectReconcileLimit
	}
	return &connectReconcileJob{
		logg:     params.Logger,
		accounts: params.Accounts,
		connect:  params.Connect,
		limit:    limit,
	}, nil
}

type connectReconcileJob struct {
	logg     *logger.Logger
	accounts incompleteAccountLister
	connect  accountRefresher
	limit    int
}

func (j *connectReconcileJob) Name() string { return "connect-account-reconcile" }

func (j *connectReconcileJob) Run(ctx context.Context) error {
	rows, err := j.accounts.ListIncomplete(ctx, j.limit)
	if err != nil {
		return fmt.Errorf("list incomplete accounts: %w", err)
	}

	var errs error
	completed := 0
	for i := range rows {
		row := &rows[i]
		status, err := j.connect.Refresh(ctx, row)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refresh %s: %w", row.StripeAccountID, err))
			continue
		}
		if status.OnboardingCompleted {
			completed++
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"candidates": len(rows),
		"completed":  completed,
		"failed":     len(multierr.Errors(errs)),
	}), "connect reconcile loop complete")
	return errs
}
