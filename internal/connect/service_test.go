package connect

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/obinna-okoro1/convozo/pkg/config"
	"github.com/obinna-okoro1/convozo/pkg/db/models"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
	"github.com/obinna-okoro1/convozo/pkg/logger"
)

type stubGateway struct {
	created     []*stripe.AccountParams
	links       []*stripe.AccountLinkParams
	account     *stripe.Account
	createErr   error
	retrieveErr error
}

func (g *stubGateway) CreateAccount(ctx context.Context, params *stripe.AccountParams) (*stripe.Account, error) {
	g.created = append(g.created, params)
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &stripe.Account{ID: "acct_new"}, nil
}

func (g *stubGateway) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	acct := *g.account
	acct.ID = accountID
	return &acct, nil
}

func (g *stubGateway) CreateAccountLink(ctx context.Context, params *stripe.AccountLinkParams) (*stripe.AccountLink, error) {
	g.links = append(g.links, params)
	return &stripe.AccountLink{URL: "https://connect.stripe.test/setup/" + *params.Account}, nil
}

type memoryAccounts struct {
	byCreator map[uuid.UUID]*models.StripeAccount
	createErr error
	// winner is inserted by a "concurrent" request when Create is called.
	winner  *models.StripeAccount
	updated []models.StripeAccount
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{byCreator: map[uuid.UUID]*models.StripeAccount{}}
}

func (m *memoryAccounts) FindByCreatorID(ctx context.Context, creatorID uuid.UUID) (*models.StripeAccount, error) {
	return m.byCreator[creatorID], nil
}

func (m *memoryAccounts) FindByAccountID(ctx context.Context, id string) (*models.StripeAccount, error) {
	for _, acct := range m.byCreator {
		if acct.StripeAccountID == id {
			return acct, nil
		}
	}
	return nil, nil
}

func (m *memoryAccounts) Create(ctx context.Context, account *models.StripeAccount) error {
	if m.winner != nil {
		m.byCreator[m.winner.CreatorID] = m.winner
		return errors.New("UNIQUE constraint failed: stripe_accounts.creator_id")
	}
	if m.createErr != nil {
		return m.createErr
	}
	m.byCreator[account.CreatorID] = account
	return nil
}

func (m *memoryAccounts) UpdateFlags(ctx context.Context, account *models.StripeAccount) error {
	m.updated = append(m.updated, *account)
	return nil
}

type stubCreators struct {
	creator *models.Creator
}

func (s *stubCreators) FindByID(ctx context.Context, id uuid.UUID) (*models.Creator, error) {
	if s.creator != nil && s.creator.ID == id {
		return s.creator, nil
	}
	return nil, nil
}

type connectFixture struct {
	svc      *Service
	gateway  *stubGateway
	accounts *memoryAccounts
	creator  *models.Creator
}

func newConnectFixture(t *testing.T) *connectFixture {
	t.Helper()
	creator := &models.Creator{ID: uuid.New(), UserID: uuid.New(), DisplayName: "Ada"}
	f := &connectFixture{
		gateway:  &stubGateway{account: &stripe.Account{}},
		accounts: newMemoryAccounts(),
		creator:  creator,
	}
	svc, err := NewService(ServiceParams{
		Gateway:  f.gateway,
		Accounts: f.accounts,
		Creators: &stubCreators{creator: creator},
		Logger:   logger.Nop(),
		App:      config.AppConfig{BaseURL: "https://convozo.test"},
		Stripe:   config.StripeConfig{ConnectCountry: "us"},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *connectFixture) provisionInput() ProvisionInput {
	return ProvisionInput{CreatorID: f.creator.ID, Email: "ada@example.com", DisplayName: "Ada", ActorUserID: f.creator.UserID}
}

func TestProvisionCreatesAccountOnce(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()

	first, err := f.svc.Provision(ctx, f.provisionInput())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if first.AccountID != "acct_new" {
		t.Fatalf("unexpected account id %s", first.AccountID)
	}
	params := f.gateway.created[0]
	if *params.Country != "US" || *params.Type != "express" || *params.BusinessType != "individual" {
		t.Fatalf("unexpected account params %+v", params)
	}
	if params.Metadata["creator_id"] != f.creator.ID.String() {
		t.Fatalf("creator id missing from metadata: %v", params.Metadata)
	}
	row := f.accounts.byCreator[f.creator.ID]
	if row == nil || row.ChargesEnabled || row.OnboardingCompleted {
		t.Fatalf("expected empty account row, got %+v", row)
	}

	second, err := f.svc.Provision(ctx, f.provisionInput())
	if err != nil {
		t.Fatalf("second Provision: %v", err)
	}
	if second.AccountID != first.AccountID {
		t.Fatal("existing account must be reused")
	}
	if len(f.gateway.created) != 1 {
		t.Fatalf("expected one remote account, got %d", len(f.gateway.created))
	}
	if len(f.gateway.links) != 2 {
		t.Fatalf("expected a fresh link per call, got %d", len(f.gateway.links))
	}
	link := f.gateway.links[1]
	if *link.RefreshURL != "https://convozo.test/creator/onboarding" || *link.ReturnURL != "https://convozo.test/creator/dashboard" {
		t.Fatalf("unexpected link urls %s %s", *link.RefreshURL, *link.ReturnURL)
	}
}

func TestProvisionLosingRaceReusesWinner(t *testing.T) {
	f := newConnectFixture(t)
	f.accounts.winner = &models.StripeAccount{CreatorID: f.creator.ID, StripeAccountID: "acct_winner"}

	link, err := f.svc.Provision(context.Background(), f.provisionInput())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if link.AccountID != "acct_winner" {
		t.Fatalf("expected winner account, got %s", link.AccountID)
	}
	if *f.gateway.links[0].Account != "acct_winner" {
		t.Fatal("link must target the stored account")
	}
}

func TestProvisionRejections(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()

	in := f.provisionInput()
	in.Email = ""
	if _, err := f.svc.Provision(ctx, in); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	in = f.provisionInput()
	in.ActorUserID = uuid.New()
	if _, err := f.svc.Provision(ctx, in); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	f.gateway.createErr = errors.New("stripe down")
	if _, err := f.svc.Provision(ctx, f.provisionInput()); !pkgerrors.IsCode(err, pkgerrors.CodeUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(f.accounts.byCreator) != 0 {
		t.Fatal("no row should be stored when the provider fails")
	}
}

func TestVerifyRecomputesOnboarding(t *testing.T) {
	cases := []struct {
		name    string
		account stripe.Account
		want    AccountStatus
	}{
		{
			name:    "fully onboarded",
			account: stripe.Account{ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true},
			want:    AccountStatus{ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true, OnboardingCompleted: true},
		},
		{
			name:    "details without charges",
			account: stripe.Account{DetailsSubmitted: true},
			want:    AccountStatus{DetailsSubmitted: true},
		},
		{
			name:    "charges without details",
			account: stripe.Account{ChargesEnabled: true},
			want:    AccountStatus{ChargesEnabled: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newConnectFixture(t)
			f.accounts.byCreator[f.creator.ID] = &models.StripeAccount{
				CreatorID:           f.creator.ID,
				StripeAccountID:     "acct_1",
				OnboardingCompleted: true,
			}
			f.gateway.account = &tc.account

			got, err := f.svc.Verify(context.Background(), "acct_1", f.creator.UserID)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if *got != tc.want {
				t.Fatalf("got %+v want %+v", *got, tc.want)
			}
			stored := f.accounts.updated[len(f.accounts.updated)-1]
			if stored.OnboardingCompleted != tc.want.OnboardingCompleted {
				t.Fatalf("stored flag not overwritten: %+v", stored)
			}
		})
	}
}

func TestVerifyRejections(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()
	f.accounts.byCreator[f.creator.ID] = &models.StripeAccount{CreatorID: f.creator.ID, StripeAccountID: "acct_1"}

	if _, err := f.svc.Verify(ctx, "", f.creator.UserID); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.Verify(ctx, "acct_unknown", f.creator.UserID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.Verify(ctx, "acct_1", uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	f.gateway.retrieveErr = errors.New("timeout")
	if _, err := f.svc.Verify(ctx, "acct_1", f.creator.UserID); !pkgerrors.IsCode(err, pkgerrors.CodeUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(f.accounts.updated) != 0 {
		t.Fatal("flags must not change on failed verification")
	}
}

func TestSyncFromWebhook(t *testing.T) {
	f := newConnectFixture(t)
	ctx := context.Background()
	f.accounts.byCreator[f.creator.ID] = &models.StripeAccount{CreatorID: f.creator.ID, StripeAccountID: "acct_1"}

	status, err := f.svc.Sync(ctx, &stripe.Account{ID: "acct_1", ChargesEnabled: true, DetailsSubmitted: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !status.OnboardingCompleted {
		t.Fatal("expected onboarding completed")
	}

	status, err = f.svc.Sync(ctx, &stripe.Account{ID: "acct_other"})
	if err != nil || status != nil {
		t.Fatalf("unknown accounts should be ignored, got %v %v", status, err)
	}
}
