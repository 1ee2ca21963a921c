package checkout

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/obinna-okoro1/convozo/internal/intent"
	"github.com/obinna-okoro1/convozo/internal/ratelimit"
	"github.com/obinna-okoro1/convozo/pkg/config"
	"github.com/obinna-okoro1/convozo/pkg/db/models"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
	"github.com/obinna-okoro1/convozo/pkg/logger"
)

type stubCreators struct {
	creator  *models.Creator
	settings *models.CreatorSettings
	err      error
}

func (s *stubCreators) FindActiveBySlug(ctx context.Context, slug string) (*models.Creator, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.creator == nil || s.creator.Slug != slug {
		return nil, nil
	}
	return s.creator, nil
}

func (s *stubCreators) FindSettings(ctx context.Context, creatorID uuid.UUID) (*models.CreatorSettings, error) {
	return s.settings, nil
}

type stubAccounts struct {
	account *models.StripeAccount
}

func (s *stubAccounts) FindByCreatorID(ctx context.Context, creatorID uuid.UUID) (*models.StripeAccount, error) {
	return s.account, nil
}

type stubGateway struct {
	params *stripe.CheckoutSessionParams
	calls  int
	err    error
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	g.calls++
	g.params = params
	if g.err != nil {
		return nil, g.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.test/cs_test_123"}, nil
}

func (g *stubGateway) Currency() string { return "usd" }

type fixture struct {
	svc      Service
	creators *stubCreators
	accounts *stubAccounts
	gateway  *stubGateway
	limiter  *ratelimit.SlidingWindow
}

func newFixture(t *testing.T, mutate func(p *ServiceParams)) *fixture {
	t.Helper()
	callPrice := int64(5000)
	duration := 30
	creator := &models.Creator{ID: uuid.New(), Slug: "ada", DisplayName: "Ada", IsActive: true}
	f := &fixture{
		creators: &stubCreators{
			creator: creator,
			settings: &models.CreatorSettings{
				CreatorID:    creator.ID,
				MessagePrice: 1000,
				CallPrice:    &callPrice,
				CallDuration: &duration,
				CallsEnabled: true,
			},
		},
		accounts: &stubAccounts{account: &models.StripeAccount{
			CreatorID:       creator.ID,
			StripeAccountID: "acct_1RealCreator",
			ChargesEnabled:  true,
		}},
		gateway: &stubGateway{},
		limiter: ratelimit.New(10, time.Hour),
	}
	params := ServiceParams{
		Creators:       f.creators,
		PayoutAccounts: f.accounts,
		Gateway:        f.gateway,
		Limiter:        f.limiter,
		Logger:         logger.Nop(),
		App:            config.AppConfig{Env: "dev", BaseURL: "https://convozo.test/"},
		Stripe:         config.StripeConfig{MinimumAmount: 50, TestAccountPrefix: "acct_test_"},
		FeePercent:     decimal.NewFromInt(35),
	}
	if mutate != nil {
		mutate(&params)
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func validMessageInput() MessageCheckoutInput {
	return MessageCheckoutInput{
		CreatorSlug:    "ada",
		SenderName:     "Grace",
		SenderEmail:    "grace@example.com",
		MessageContent: "Hi Ada!",
		MessageType:    "message",
		Price:          1000,
	}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if !pkgerrors.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestCreateMessageCheckoutRoutesFeeToCreator(t *testing.T) {
	f := newFixture(t, nil)

	session, err := f.svc.CreateMessageCheckout(context.Background(), validMessageInput())
	if err != nil {
		t.Fatalf("CreateMessageCheckout: %v", err)
	}
	if session.ID != "cs_test_123" || session.URL == "" {
		t.Fatalf("unexpected session %+v", session)
	}

	p := f.gateway.params
	if p.PaymentIntentData == nil || *p.PaymentIntentData.ApplicationFeeAmount != 350 {
		t.Fatalf("expected application fee 350, got %+v", p.PaymentIntentData)
	}
	if *p.PaymentIntentData.TransferData.Destination != "acct_1RealCreator" {
		t.Fatalf("unexpected destination %s", *p.PaymentIntentData.TransferData.Destination)
	}
	if *p.SuccessURL != "https://convozo.test/success?session_id={CHECKOUT_SESSION_ID}" {
		t.Fatalf("unexpected success url %s", *p.SuccessURL)
	}
	if *p.CancelURL != "https://convozo.test/ada" {
		t.Fatalf("unexpected cancel url %s", *p.CancelURL)
	}
	if *p.CustomerEmail != "grace@example.com" {
		t.Fatalf("unexpected customer email %s", *p.CustomerEmail)
	}

	purchase, err := intent.Decode(p.Metadata)
	if err != nil {
		t.Fatalf("metadata does not decode: %v", err)
	}
	if purchase.Amount() != 1000 || purchase.Creator() != f.creators.creator.ID {
		t.Fatalf("unexpected purchase %+v", purchase)
	}
}

func TestCreateMessageCheckoutValidationOrder(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(in *MessageCheckoutInput)
		field string
	}{
		{"missing slug", func(in *MessageCheckoutInput) { in.CreatorSlug = " " }, "creator_slug"},
		{"missing name", func(in *MessageCheckoutInput) { in.SenderName = ""; in.SenderEmail = "bad" }, "sender_name"},
		{"name too long", func(in *MessageCheckoutInput) { in.SenderName = strings.Repeat("g", 501) }, "sender_name"},
		{"bad email", func(in *MessageCheckoutInput) { in.SenderEmail = "grace@example" }, "sender_email"},
		{"email too long", func(in *MessageCheckoutInput) { in.SenderEmail = strings.Repeat("g", 300) + "@example.com" }, "sender_email"},
		{"instagram too long", func(in *MessageCheckoutInput) { in.SenderInstagram = strings.Repeat("g", 256) }, "sender_instagram"},
		{"price below minimum", func(in *MessageCheckoutInput) { in.Price = 49 }, "price"},
		{"missing content", func(in *MessageCheckoutInput) { in.MessageContent = "  " }, "message_content"},
		{"content too long", func(in *MessageCheckoutInput) { in.MessageContent = strings.Repeat("ü", 1001) }, "message_content"},
		{"price mismatch", func(in *MessageCheckoutInput) { in.Price = 900 }, "price"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			in := validMessageInput()
			tc.edit(&in)

			_, err := f.svc.CreateMessageCheckout(context.Background(), in)
			requireCode(t, err, pkgerrors.CodeValidation)
			details, _ := pkgerrors.As(err).Details().(map[string]string)
			if _, ok := details[tc.field]; !ok {
				t.Fatalf("expected %s to be reported, got %v", tc.field, details)
			}
			if f.gateway.calls != 0 {
				t.Fatal("gateway must not be called on validation failure")
			}
		})
	}
}

func TestCreateMessageCheckoutAcceptsExactlyThousandCharacters(t *testing.T) {
	f := newFixture(t, nil)
	in := validMessageInput()
	in.MessageContent = strings.Repeat("ü", 1000)
	if _, err := f.svc.CreateMessageCheckout(context.Background(), in); err != nil {
		t.Fatalf("expected 1000 characters to be accepted: %v", err)
	}
}

func TestCreateMessageCheckoutRateLimitsPerEmail(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		in := validMessageInput()
		if i%2 == 0 {
			in.SenderEmail = "  GRACE@example.com "
		}
		if _, err := f.svc.CreateMessageCheckout(ctx, in); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	_, err := f.svc.CreateMessageCheckout(ctx, validMessageInput())
	requireCode(t, err, pkgerrors.CodeRateLimit)
	if pkgerrors.As(err).RetryAfter() <= 0 {
		t.Fatal("expected retry after on rate limit")
	}
	if f.gateway.calls != 10 {
		t.Fatalf("expected 10 sessions, got %d", f.gateway.calls)
	}

	other := validMessageInput()
	other.SenderEmail = "alan@example.com"
	if _, err := f.svc.CreateMessageCheckout(ctx, other); err != nil {
		t.Fatalf("other buyers must not be throttled: %v", err)
	}
}

func TestCreateMessageCheckoutResolutionErrors(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, nil)
	in := validMessageInput()
	in.CreatorSlug = "unknown"
	_, err := f.svc.CreateMessageCheckout(ctx, in)
	requireCode(t, err, pkgerrors.CodeNotFound)

	f = newFixture(t, nil)
	f.accounts.account = nil
	_, err = f.svc.CreateMessageCheckout(ctx, validMessageInput())
	requireCode(t, err, pkgerrors.CodePayoutMissing)

	f = newFixture(t, nil)
	f.accounts.account.ChargesEnabled = false
	_, err = f.svc.CreateMessageCheckout(ctx, validMessageInput())
	requireCode(t, err, pkgerrors.CodePayoutMissing)

	f = newFixture(t, nil)
	f.creators.err = errors.New("connection reset")
	_, err = f.svc.CreateMessageCheckout(ctx, validMessageInput())
	requireCode(t, err, pkgerrors.CodeDependency)

	f = newFixture(t, nil)
	f.gateway.err = errors.New("card_declined")
	_, err = f.svc.CreateMessageCheckout(ctx, validMessageInput())
	requireCode(t, err, pkgerrors.CodeUpstream)
	if f.gateway.calls != 1 {
		t.Fatalf("checkout creation must not be retried, got %d calls", f.gateway.calls)
	}
}

func TestSandboxAccountSkipsFeeRouting(t *testing.T) {
	f := newFixture(t, nil)
	f.accounts.account.StripeAccountID = "acct_test_local"
	f.accounts.account.ChargesEnabled = false

	if _, err := f.svc.CreateMessageCheckout(context.Background(), validMessageInput()); err != nil {
		t.Fatalf("sandbox checkout: %v", err)
	}
	if f.gateway.params.PaymentIntentData != nil {
		t.Fatal("sandbox accounts must not route fees")
	}
}

func TestSandboxAccountRefusedInProduction(t *testing.T) {
	f := newFixture(t, func(p *ServiceParams) { p.App.Env = "prod" })
	f.accounts.account.StripeAccountID = "acct_test_local"

	_, err := f.svc.CreateMessageCheckout(context.Background(), validMessageInput())
	requireCode(t, err, pkgerrors.CodePayoutMissing)

	allowed := newFixture(t, func(p *ServiceParams) {
		p.App.Env = "prod"
		p.Stripe.AllowSandboxPayout = true
	})
	allowed.accounts.account.StripeAccountID = "acct_test_local"
	if _, err := allowed.svc.CreateMessageCheckout(context.Background(), validMessageInput()); err != nil {
		t.Fatalf("explicitly allowed sandbox should pass: %v", err)
	}
}

func validCallInput() CallCheckoutInput {
	return CallCheckoutInput{
		CreatorSlug:     "ada",
		BookerName:      "Alan",
		BookerEmail:     "alan@example.com",
		BookerInstagram: "alan.t",
		MessageContent:  "Career chat",
		Price:           5000,
	}
}

func TestCreateCallCheckout(t *testing.T) {
	f := newFixture(t, nil)

	if _, err := f.svc.CreateCallCheckout(context.Background(), validCallInput()); err != nil {
		t.Fatalf("CreateCallCheckout: %v", err)
	}
	p := f.gateway.params
	if !strings.HasSuffix(*p.SuccessURL, "&type=call") {
		t.Fatalf("expected call success url, got %s", *p.SuccessURL)
	}
	if *p.PaymentIntentData.ApplicationFeeAmount != 1750 {
		t.Fatalf("expected fee 1750, got %d", *p.PaymentIntentData.ApplicationFeeAmount)
	}
	purchase, err := intent.Decode(p.Metadata)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	call, ok := purchase.(intent.CallBookingPurchase)
	if !ok || call.DurationMinutes != 30 || call.Notes != "Career chat" {
		t.Fatalf("unexpected call purchase %+v", purchase)
	}
}

func TestCreateCallCheckoutFailures(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, nil)
	f.creators.settings.CallsEnabled = false
	_, err := f.svc.CreateCallCheckout(ctx, validCallInput())
	requireCode(t, err, pkgerrors.CodeFeatureDisabled)

	f = newFixture(t, nil)
	in := validCallInput()
	in.BookerInstagram = ""
	_, err = f.svc.CreateCallCheckout(ctx, in)
	requireCode(t, err, pkgerrors.CodeValidation)

	f = newFixture(t, nil)
	in = validCallInput()
	in.BookerName = strings.Repeat("b", intent.MaxFieldLength+1)
	_, err = f.svc.CreateCallCheckout(ctx, in)
	requireCode(t, err, pkgerrors.CodeValidation)
	if details, _ := pkgerrors.As(err).Details().(map[string]string); details["booker_name"] == "" {
		t.Fatalf("expected booker_name to be reported, got %v", details)
	}
	if f.gateway.calls != 0 {
		t.Fatal("gateway must not be called for an oversize name")
	}

	f = newFixture(t, nil)
	in = validCallInput()
	in.Price = 4000
	_, err = f.svc.CreateCallCheckout(ctx, in)
	requireCode(t, err, pkgerrors.CodeValidation)

	f = newFixture(t, nil)
	f.creators.settings = nil
	_, err = f.svc.CreateCallCheckout(ctx, validCallInput())
	requireCode(t, err, pkgerrors.CodeFeatureDisabled)
}

func TestProviderFailureLogsStripeError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := newFixture(t, func(p *ServiceParams) {
		p.Logger = logger.New(logger.Options{ServiceName: "test", Output: buf})
	})
	f.gateway.err = &stripe.Error{Code: stripe.ErrorCodeAccountInvalid, Msg: "No such destination", HTTPStatusCode: 400, RequestID: "req_123"}

	_, err := f.svc.CreateMessageCheckout(context.Background(), validMessageInput())
	requireCode(t, err, pkgerrors.CodeUpstream)

	out := buf.String()
	for _, want := range []string{"create checkout session failed", `"stripe_error_code":"account_invalid"`, `"stripe_request_id":"req_123"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log output, got %s", want, out)
		}
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected missing dependencies to fail")
	}
}
