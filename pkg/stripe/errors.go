package stripe

import (
	"errors"

	"github.com/stripe/stripe-go/v84"
)

// ErrorFields extracts the provider's error code and message for logging.
func ErrorFields(err error) map[string]any {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return nil
	}
	return map[string]any{
		"stripe_error_type":   string(stripeErr.Type),
		"stripe_error_code":   string(stripeErr.Code),
		"stripe_http_status":  stripeErr.HTTPStatusCode,
		"stripe_request_id":   stripeErr.RequestID,
		"stripe_error_detail": stripeErr.Msg,
	}
}
