package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obinna-okoro1/convozo/api/controllers"
	webhookcontrollers "github.com/obinna-okoro1/convozo/api/controllers/webhooks"
	"github.com/obinna-okoro1/convozo/api/middleware"
	checkoutsvc "github.com/obinna-okoro1/convozo/internal/checkout"
	"github.com/obinna-okoro1/convozo/internal/messages"
	stripewebhook "github.com/obinna-okoro1/convozo/internal/webhooks/stripe"
	"github.com/obinna-okoro1/convozo/pkg/config"
	"github.com/obinna-okoro1/convozo/pkg/logger"
	"github.com/obinna-okoro1/convozo/pkg/stripe"
)

// Dependencies are the services the HTTP surface dispatches to. Redis and
// the webhook guard are nil when Redis is not configured.
type Dependencies struct {
	DB      controllers.Pinger
	Redis   controllers.Pinger
	Metrics prometheus.Gatherer

	Checkout       checkoutsvc.Service
	Connect        controllers.ConnectService
	Messages       messages.Service
	Stripe         *stripe.Client
	StripeWebhooks *stripewebhook.Service
	WebhookGuard   *stripewebhook.EventGuard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	// Paths match the edge functions the frontend already calls.
	r.Route("/functions/v1", func(r chi.Router) {
		r.Post("/create-checkout-session", controllers.CreateCheckoutSession(deps.Checkout, logg))
		r.Post("/create-call-booking-session", controllers.CreateCallBookingSession(deps.Checkout, logg))
		r.Post("/stripe-webhook", webhookcontrollers.StripeWebhook(stripeWebhookService(deps), stripeVerifier(deps), webhookGuard(deps), logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Auth, logg))
			r.Post("/create-connect-account", controllers.CreateConnectAccount(deps.Connect, logg))
			r.Post("/verify-connect-account", controllers.VerifyConnectAccount(deps.Connect, logg))
			r.Post("/send-reply-email", controllers.SendReplyEmail(deps.Messages, logg))
		})
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/creators/{slug}/availability", controllers.CreatorAvailability(deps.Messages, logg))
	})

	r.Route("/api/v1/creator", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth, logg))
		r.Get("/messages", controllers.CreatorMessages(deps.Messages, logg))
		r.Post("/messages/{messageId}/handled", controllers.MarkMessageHandled(deps.Messages, logg))
		r.Get("/call-bookings", controllers.CreatorCallBookings(deps.Messages, logg))
	})

	return r
}

// The helpers below keep typed nil pointers from reaching the handlers as
// non-nil interfaces.

func stripeWebhookService(deps Dependencies) webhookcontrollers.StripeWebhookService {
	if deps.StripeWebhooks == nil {
		return nil
	}
	return deps.StripeWebhooks
}

func stripeVerifier(deps Dependencies) webhookcontrollers.EventVerifier {
	if deps.Stripe == nil {
		return nil
	}
	return deps.Stripe
}

func webhookGuard(deps Dependencies) webhookcontrollers.StripeWebhookGuard {
	if deps.WebhookGuard == nil {
		return nil
	}
	return deps.WebhookGuard
}
