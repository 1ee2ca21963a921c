package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/obinna-okoro1/convozo/api/responses"
	stripewebhook "github.com/obinna-okoro1/convozo/internal/webhooks/stripe"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
	"github.com/obinna-okoro1/convozo/pkg/logger"
)

// Stripe caps event payloads well below this.
const maxPayloadBytes = 1 << 20

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) (stripewebhook.Outcome, error)
}

type StripeWebhookGuard interface {
	Handled(ctx context.Context, event *stripe.Event) (bool, error)
	MarkHandled(ctx context.Context, event *stripe.Event) error
}

type EventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type webhookAck struct {
	Received bool `json:"received"`
	Skipped  bool `json:"skipped,omitempty"`
}

// StripeWebhook verifies and dispatches payment provider events. The guard
// is optional and only short-circuits events that already completed; without
// Redis the database fence alone absorbs redeliveries.
func StripeWebhook(svc StripeWebhookService, verifier EventVerifier, guard StripeWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "No signature"))
			return
		}

		event, err := verifier.ConstructEvent(payload, sigHeader)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "Webhook signature verification failed"))
			return
		}

		if guard != nil {
			handled, err := guard.Handled(ctx, &event)
			if err != nil {
				// The guard only saves work; fall through to the database fence.
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "event_id", event.ID), "webhook guard unavailable: "+err.Error())
				}
			} else if handled {
				responses.WriteSuccess(w, webhookAck{Received: true, Skipped: true})
				return
			}
		}

		outcome, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if guard != nil {
			if err := guard.MarkHandled(ctx, &event); err != nil && logg != nil {
				logg.Error(logg.WithField(ctx, "event_id", event.ID), "webhook guard mark failed", err)
			}
		}

		responses.WriteSuccess(w, webhookAck{Received: true, Skipped: outcome == stripewebhook.OutcomeSkipped})
	}
}
