package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/obinna-okoro1/convozo/internal/intent"
	"github.com/obinna-okoro1/convozo/internal/ledger"
	"github.com/obinna-okoro1/convozo/internal/ratelimit"
	"github.com/obinna-okoro1/convozo/pkg/config"
	"github.com/obinna-okoro1/convozo/pkg/db/models"
	"github.com/obinna-okoro1/convozo/pkg/enums"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
	"github.com/obinna-okoro1/convozo/pkg/logger"
	pkgstripe "github.com/obinna-okoro1/convozo/pkg/stripe"
)

type creatorLookup interface {
	FindActiveBySlug(ctx context.Context, slug string) (*models.Creator, error)
	FindSettings(ctx context.Context, creatorID uuid.UUID) (*models.CreatorSettings, error)
}

type payoutAccountLookup interface {
	FindByCreatorID(ctx context.Context, creatorID uuid.UUID) (*models.StripeAccount, error)
}

type sessionGateway interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Currency() string
}

type admitter interface {
	Allow(key string) ratelimit.Decision
}

type checkoutMetrics interface {
	IncCheckoutCreated(kind string)
	IncRateLimited()
}

// Service creates hosted checkout sessions. It never writes to the database:
// purchases only exist once the provider confirms payment.
type Service interface {
	CreateMessageCheckout(ctx context.Context, input MessageCheckoutInput) (*Session, error)
	CreateCallCheckout(ctx context.Context, input CallCheckoutInput) (*Session, error)
}

type ServiceParams struct {
	Creators       creatorLookup
	PayoutAccounts payoutAccountLookup
	Gateway        sessionGateway
	Limiter        admitter
	Metrics        checkoutMetrics
	Logger         *logger.Logger
	App            config.AppConfig
	Stripe         config.StripeConfig
	FeePercent     decimal.Decimal
}

type service struct {
	creators   creatorLookup
	accounts   payoutAccountLookup
	gateway    sessionGateway
	limiter    admitter
	metrics    checkoutMetrics
	logg       *logger.Logger
	app        config.AppConfig
	stripeCfg  config.StripeConfig
	feePercent decimal.Decimal
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Creators == nil {
		return nil, fmt.Errorf("creator repository required")
	}
	if params.PayoutAccounts == nil {
		return nil, fmt.Errorf("stripe account repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("stripe gateway required")
	}
	if params.Limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if _, err := ledger.SplitFee(0, params.FeePercent); err != nil {
		return nil, err
	}
	return &service{
		creators:   params.Creators,
		accounts:   params.PayoutAccounts,
		gateway:    params.Gateway,
		limiter:    params.Limiter,
		metrics:    params.Metrics,
		logg:       params.Logger,
		app:        params.App,
		stripeCfg:  params.Stripe,
		feePercent: params.FeePercent,
	}, nil
}

func (s *service) CreateMessageCheckout(ctx context.Context, input MessageCheckoutInput) (*Session, error) {
	input.normalize()
	if err := input.validate(s.stripeCfg.MinimumAmount); err != nil {
		return nil, err
	}
	if err := s.admit(ctx, input.SenderEmail); err != nil {
		return nil, err
	}

	creator, settings, err := s.resolveCreator(ctx, input.CreatorSlug)
	if err != nil {
		return nil, err
	}
	if settings != nil && settings.MessagePrice > 0 && settings.MessagePrice != input.Price {
		return nil, fieldError("price", "does not match the creator's message price")
	}
	account, err := s.payoutAccount(ctx, creator.ID)
	if err != nil {
		return nil, err
	}

	metadata, err := intent.Encode(intent.MessagePurchase{
		CreatorID:       creator.ID,
		SenderName:      input.SenderName,
		SenderEmail:     input.SenderEmail,
		SenderInstagram: input.SenderInstagram,
		Content:         input.MessageContent,
		MessageType:     enums.MessageType(input.MessageType),
		Price:           input.Price,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchase")
	}

	params := s.baseParams(input.Price, input.SenderEmail, metadata)
	params.LineItems[0].PriceData.ProductData = &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name:        stripe.String("Paid DM to " + creator.DisplayName),
		Description: stripe.String("Priority direct message"),
	}
	params.SuccessURL = stripe.String(s.app.PublicURL("success?session_id={CHECKOUT_SESSION_ID}"))
	params.CancelURL = stripe.String(s.app.PublicURL(creator.Slug))

	return s.create(ctx, params, account, enums.PurchaseKindMessage)
}

func (s *service) CreateCallCheckout(ctx context.Context, input CallCheckoutInput) (*Session, error) {
	input.normalize()
	if err := input.validate(s.stripeCfg.MinimumAmount); err != nil {
		return nil, err
	}
	if err := s.admit(ctx, input.BookerEmail); err != nil {
		return nil, err
	}

	creator, settings, err := s.resolveCreator(ctx, input.CreatorSlug)
	if err != nil {
		return nil, err
	}
	if settings == nil || !settings.CallsEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeFeatureDisabled, "call bookings are not enabled for this creator")
	}
	if price := settings.CallPriceOrZero(); price > 0 && price != input.Price {
		return nil, fieldError("price", "does not match the creator's call price")
	}
	duration := settings.CallDurationOrZero()
	if duration <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeFeatureDisabled, "call duration is not configured for this creator")
	}
	account, err := s.payoutAccount(ctx, creator.ID)
	if err != nil {
		return nil, err
	}

	metadata, err := intent.Encode(intent.CallBookingPurchase{
		CreatorID:       creator.ID,
		BookerName:      input.BookerName,
		BookerEmail:     input.BookerEmail,
		BookerInstagram: input.BookerInstagram,
		Notes:           input.MessageContent,
		DurationMinutes: duration,
		Price:           input.Price,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchase")
	}

	params := s.baseParams(input.Price, input.BookerEmail, metadata)
	params.LineItems[0].PriceData.ProductData = &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name:        stripe.String("Video Call with " + creator.DisplayName),
		Description: stripe.String(fmt.Sprintf("%d minute video call", duration)),
	}
	params.SuccessURL = stripe.String(s.app.PublicURL("success?session_id={CHECKOUT_SESSION_ID}&type=call"))
	params.CancelURL = stripe.String(s.app.PublicURL(creator.Slug))

	return s.create(ctx, params, account, enums.PurchaseKindCallBooking)
}

func (s *service) admit(ctx context.Context, email string) error {
	decision := s.limiter.Allow(ratelimit.NormalizeKey(email))
	if decision.Allowed {
		return nil
	}
	if s.metrics != nil {
		s.metrics.IncRateLimited()
	}
	s.logg.Warn(s.logg.WithField(ctx, "retry_after", decision.RetryAfter.String()), "checkout rate limited")
	return pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded, please try again later").
		WithRetryAfter(decision.RetryAfter).
		WithDetails(map[string]any{"retry_after_seconds": int(decision.RetryAfter.Round(time.Second).Seconds())})
}

func (s *service) resolveCreator(ctx context.Context, slug string) (*models.Creator, *models.CreatorSettings, error) {
	creator, err := s.creators.FindActiveBySlug(ctx, slug)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load creator")
	}
	if creator == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "creator not found")
	}
	settings, err := s.creators.FindSettings(ctx, creator.ID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load creator settings")
	}
	return creator, settings, nil
}

func (s *service) payoutAccount(ctx context.Context, creatorID uuid.UUID) (*models.StripeAccount, error) {
	account, err := s.accounts.FindByCreatorID(ctx, creatorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout account")
	}
	if account == nil || account.StripeAccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodePayoutMissing, "creator payment setup incomplete")
	}
	if s.stripeCfg.IsSandboxAccount(account.StripeAccountID) {
		if s.app.IsProd() && !s.stripeCfg.AllowSandboxPayout {
			return nil, pkgerrors.New(pkgerrors.CodePayoutMissing, "creator payment setup incomplete")
		}
		return account, nil
	}
	if !account.ChargesEnabled {
		return nil, pkgerrors.New(pkgerrors.CodePayoutMissing, "creator payment setup incomplete")
	}
	return account, nil
}

func (s *service) baseParams(price int64, email string, metadata map[string]string) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.gateway.Currency()),
					UnitAmount: stripe.Int64(price),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	return params
}

func (s *service) create(ctx context.Context, params *stripe.CheckoutSessionParams, account *models.StripeAccount, kind enums.PurchaseKind) (*Session, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"creator_id":    account.CreatorID.String(),
		"purchase_kind": kind.String(),
	})

	if s.stripeCfg.IsSandboxAccount(account.StripeAccountID) {
		s.logg.Warn(s.logg.WithField(ctx, "sandbox_payout", true), "sandbox payout account, skipping fee routing")
	} else {
		split, err := ledger.SplitFee(*params.LineItems[0].PriceData.UnitAmount, s.feePercent)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute platform fee")
		}
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(split.PlatformFee),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(account.StripeAccountID),
			},
		}
	}

	cs, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.logg.Error(s.logg.WithFields(ctx, pkgstripe.ErrorFields(err)), "create checkout session failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "could not create checkout session")
	}
	if s.metrics != nil {
		s.metrics.IncCheckoutCreated(kind.String())
	}
	s.logg.Info(s.logg.WithField(ctx, "checkout_session_id", cs.ID), "checkout session created")
	return &Session{ID: cs.ID, URL: cs.URL}, nil
}
