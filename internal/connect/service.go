// Package connect provisions and verifies creator payout accounts.
package connect

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/obinna-okoro1/convozo/pkg/config"
	"github.com/obinna-okoro1/convozo/pkg/db"
	"github.com/obinna-okoro1/convozo/pkg/db/models"
	pkgerrors "github.com/obinna-okoro1/convozo/pkg/errors"
	"github.com/obinna-okoro1/convozo/pkg/logger"
	pkgstripe "github.com/obinna-okoro1/convozo/pkg/stripe"
)

type accountGateway interface {
	CreateAccount(ctx context.Context, params *stripe.AccountParams) (*stripe.Account, error)
	GetAccount(ctx context.Context, accountID string) (*stripe.Account, error)
	CreateAccountLink(ctx context.Context, params *stripe.AccountLinkParams) (*stripe.AccountLink, error)
}

type accountStore interface {
	FindByCreatorID(ctx context.Context, creatorID uuid.UUID) (*models.StripeAccount, error)
	FindByAccountID(ctx context.Context, stripeAccountID string) (*models.StripeAccount, error)
	Create(ctx context.Context, account *models.StripeAccount) error
	UpdateFlags(ctx context.Context, account *models.StripeAccount) error
}

type creatorLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Creator, error)
}

// ProvisionInput asks for an onboarding link for a creator.
type ProvisionInput struct {
	CreatorID   uuid.UUID
	Email       string
	DisplayName string
	ActorUserID uuid.UUID
}

// OnboardingLink is a single-use hosted onboarding URL.
type OnboardingLink struct {
	URL       string `json:"url"`
	AccountID string `json:"account_id"`
}

// AccountStatus is the capability snapshot stored for a payout account.
type AccountStatus struct {
	ChargesEnabled      bool `json:"charges_enabled"`
	PayoutsEnabled      bool `json:"payouts_enabled"`
	DetailsSubmitted    bool `json:"details_submitted"`
	OnboardingCompleted bool `json:"onboarding_completed"`
}

type ServiceParams struct {
	Gateway  accountGateway
	Accounts accountStore
	Creators creatorLookup
	Logger   *logger.Logger
	App      config.AppConfig
	Stripe   config.StripeConfig
}

type Service struct {
	gateway  accountGateway
	accounts accountStore
	creators creatorLookup
	logg     *logger.Logger
	app      config.AppConfig
	country  string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("stripe gateway required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("stripe account repository required")
	}
	if params.Creators == nil {
		return nil, fmt.Errorf("creator repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	country := strings.ToUpper(strings.TrimSpace(params.Stripe.ConnectCountry))
	if country == "" {
		country = "US"
	}
	return &Service{
		gateway:  params.Gateway,
		accounts: params.Accounts,
		creators: params.Creators,
		logg:     params.Logger,
		app:      params.App,
		country:  country,
	}, nil
}

// Provision reuses the creator's payout account when one exists and creates
// it otherwise. A fresh onboarding link is issued every time.
func (s *Service) Provision(ctx context.Context, input ProvisionInput) (*OnboardingLink, error) {
	if input.CreatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator_id is required")
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if _, err := s.authorize(ctx, input.CreatorID, input.ActorUserID); err != nil {
		return nil, err
	}
	ctx = s.logg.WithCreatorID(ctx, input.CreatorID.String())

	existing, err := s.accounts.FindByCreatorID(ctx, input.CreatorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout account")
	}

	accountID := ""
	if existing != nil {
		accountID = existing.StripeAccountID
	} else {
		accountID, err = s.createAccount(ctx, input.CreatorID, email, input.DisplayName)
		if err != nil {
			return nil, err
		}
	}

	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(s.app.PublicURL("creator/onboarding")),
		ReturnURL:  stripe.String(s.app.PublicURL("creator/dashboard")),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	link, err := s.gateway.CreateAccountLink(ctx, params)
	if err != nil {
		s.logg.Error(s.logg.WithFields(ctx, pkgstripe.ErrorFields(err)), "create account link failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "could not create onboarding link")
	}
	return &OnboardingLink{URL: link.URL, AccountID: accountID}, nil
}

func (s *Service) createAccount(ctx context.Context, creatorID uuid.UUID, email, displayName string) (string, error) {
	params := &stripe.AccountParams{
		Type:         stripe.String(string(stripe.AccountTypeExpress)),
		Country:      stripe.String(s.country),
		Email:        stripe.String(email),
		BusinessType: stripe.String(string(stripe.AccountBusinessTypeIndividual)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.AddMetadata("creator_id", creatorID.String())
	params.AddMetadata("display_name", strings.TrimSpace(displayName))

	acct, err := s.gateway.CreateAccount(ctx, params)
	if err != nil {
		s.logg.Error(s.logg.WithFields(ctx, pkgstripe.ErrorFields(err)), "create connect account failed", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "could not create payout account")
	}

	row := &models.StripeAccount{CreatorID: creatorID, StripeAccountID: acct.ID}
	if err := s.accounts.Create(ctx, row); err != nil {
		if !db.IsUniqueViolation(err, "") {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payout account")
		}
		winner, findErr := s.accounts.FindByCreatorID(ctx, creatorID)
		if findErr != nil || winner == nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payout account")
		}
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"orphan_account_id": acct.ID,
			"stripe_account_id": winner.StripeAccountID,
		}), "concurrent provisioning, reusing existing payout account")
		return winner.StripeAccountID, nil
	}

	s.logg.Info(s.logg.WithField(ctx, "stripe_account_id", acct.ID), "connect account created")
	return acct.ID, nil
}

// Verify refreshes the stored capability flags from the provider.
func (s *Service) Verify(ctx context.Context, accountID string, actorUserID uuid.UUID) (*AccountStatus, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account_id is required")
	}
	row, err := s.accounts.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout account")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout account not found")
	}
	if _, err := s.authorize(ctx, row.CreatorID, actorUserID); err != nil {
		return nil, err
	}

	acct, err := s.gateway.GetAccount(ctx, accountID)
	if err != nil {
		s.logg.Error(s.logg.WithFields(ctx, pkgstripe.ErrorFields(err)), "retrieve connect account failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "could not retrieve payout account")
	}
	return s.apply(ctx, row, acct)
}

// Sync overwrites the stored flags from an account snapshot pushed by the
// provider. Unknown accounts are ignored.
func (s *Service) Sync(ctx context.Context, acct *stripe.Account) (*AccountStatus, error) {
	if acct == nil || acct.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account is required")
	}
	row, err := s.accounts.FindByAccountID(ctx, acct.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout account")
	}
	if row == nil {
		s.logg.Info(s.logg.WithField(ctx, "stripe_account_id", acct.ID), "account update for unknown payout account ignored")
		return nil, nil
	}
	return s.apply(ctx, row, acct)
}

// Refresh re-fetches a stored account without an acting user. Used by the
// reconcile job.
func (s *Service) Refresh(ctx context.Context, row *models.StripeAccount) (*AccountStatus, error) {
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account is required")
	}
	acct, err := s.gateway.GetAccount(ctx, row.StripeAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "could not retrieve payout account")
	}
	return s.apply(ctx, row, acct)
}

func (s *Service) apply(ctx context.Context, row *models.StripeAccount, acct *stripe.Account) (*AccountStatus, error) {
	status := StatusOf(acct)
	row.ChargesEnabled = status.ChargesEnabled
	row.PayoutsEnabled = status.PayoutsEnabled
	row.DetailsSubmitted = status.DetailsSubmitted
	row.OnboardingCompleted = status.OnboardingCompleted
	if err := s.accounts.UpdateFlags(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout account")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"stripe_account_id":    row.StripeAccountID,
		"charges_enabled":      status.ChargesEnabled,
		"onboarding_completed": status.OnboardingCompleted,
	}), "payout account synced")
	return &status, nil
}

// StatusOf derives the stored flags. Onboarding is complete only when details
// are submitted and charges are enabled.
func StatusOf(acct *stripe.Account) AccountStatus {
	if acct == nil {
		return AccountStatus{}
	}
	return AccountStatus{
		ChargesEnabled:      acct.ChargesEnabled,
		PayoutsEnabled:      acct.PayoutsEnabled,
		DetailsSubmitted:    acct.DetailsSubmitted,
		OnboardingCompleted: acct.DetailsSubmitted && acct.ChargesEnabled,
	}
}

func (s *Service) authorize(ctx context.Context, creatorID, actorUserID uuid.UUID) (*models.Creator, error) {
	if actorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	creator, err := s.creators.FindByID(ctx, creatorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load creator")
	}
	if creator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "creator not found")
	}
	if creator.UserID != actorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "creator belongs to another user")
	}
	return creator, nil
}
