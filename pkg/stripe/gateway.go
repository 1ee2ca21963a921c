package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/accountlink"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

// Gateway performs the remote calls of the payments pipeline. Each call is a
// single attempt; callers decide whether to retry.
type Gateway struct {
	client *Client
}

// NewGateway binds the gateway to an initialized client.
func NewGateway(client *Client) (*Gateway, error) {
	if client == nil {
		return nil, errors.New("stripe client required")
	}
	return &Gateway{client: client}, nil
}

// Currency exposes the configured checkout currency.
func (g *Gateway) Currency() string {
	return g.client.Currency()
}

// CreateCheckoutSession creates a hosted checkout session.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		return nil, errors.New("checkout session params required")
	}
	params.Context = ctx
	return session.New(params)
}

// ListPaidSessions returns completed, paid checkout sessions created at or
// after since, newest first, capped at limit.
func (g *Gateway) ListPaidSessions(ctx context.Context, since time.Time, limit int) ([]*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{
		Status: stripe.String(string(stripe.CheckoutSessionStatusComplete)),
		CreatedRange: &stripe.RangeQueryParams{
			GreaterThanOrEqual: since.Unix(),
		},
	}
	params.Context = ctx
	params.Limit = stripe.Int64(100)

	var out []*stripe.CheckoutSession
	iter := session.List(params)
	for iter.Next() {
		cs := iter.CheckoutSession()
		if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			continue
		}
		out = append(out, cs)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return out, fmt.Errorf("list checkout sessions: %w", err)
	}
	return out, nil
}

// CreateAccount creates a Connect account.
func (g *Gateway) CreateAccount(ctx context.Context, params *stripe.AccountParams) (*stripe.Account, error) {
	if params == nil {
		return nil, errors.New("account params required")
	}
	params.Context = ctx
	return account.New(params)
}

// GetAccount fetches the current state of a Connect account.
func (g *Gateway) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	return account.GetByID(accountID, params)
}

// CreateAccountLink issues a single-use onboarding link.
func (g *Gateway) CreateAccountLink(ctx context.Context, params *stripe.AccountLinkParams) (*stripe.AccountLink, error) {
	if params == nil {
		return nil, errors.New("account link params required")
	}
	params.Context = ctx
	return accountlink.New(params)
}
