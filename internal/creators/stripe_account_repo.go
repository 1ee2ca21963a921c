package creators

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obinna-okoro1/convozo/pkg/db/models"
)

// StripeAccountRepository persists the creator payout account mirror.
type StripeAccountRepository struct {
	db *gorm.DB
}

// NewStripeAccountRepository binds a GORM DB to payout account operations.
func NewStripeAccountRepository(db *gorm.DB) *StripeAccountRepository {
	return &StripeAccountRepository{db: db}
}

func (r *StripeAccountRepository) FindByCreatorID(ctx context.Context, creatorID uuid.UUID) (*models.StripeAccount, error) {
	var account models.StripeAccount
	err := r.db.WithContext(ctx).Where("creator_id = ?", creatorID).First(&account).Error
	return firstOrNil(&account, err)
}

func (r *StripeAccountRepository) FindByAccountID(ctx context.Context, stripeAccountID string) (*models.StripeAccount, error) {
	var account models.StripeAccount
	err := r.db.WithContext(ctx).Where("stripe_account_id = ?", stripeAccountID).First(&account).Error
	return firstOrNil(&account, err)
}

// Create inserts a new mirror row. Callers detect the creator_id race with
// db.IsUniqueViolation.
func (r *StripeAccountRepository) Create(ctx context.Context, account *models.StripeAccount) error {
	if account == nil {
		return fmt.Errorf("stripe account is required")
	}
	return r.db.WithContext(ctx).Create(account).Error
}

// UpdateFlags overwrites the capability flags of an existing row.
func (r *StripeAccountRepository) UpdateFlags(ctx context.Context, account *models.StripeAccount) error {
	if account == nil {
		return fmt.Errorf("stripe account is required")
	}
	return r.db.WithContext(ctx).
		Model(&models.StripeAccount{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"charges_enabled":      account.ChargesEnabled,
			"payouts_enabled":      account.PayoutsEnabled,
			"details_submitted":    account.DetailsSubmitted,
			"onboarding_completed": account.OnboardingCompleted,
		}).Error
}

// ListIncomplete returns accounts whose onboarding has not finished, oldest
// first, for the reconcile job.
func (r *StripeAccountRepository) ListIncomplete(ctx context.Context, limit int) ([]models.StripeAccount, error) {
	var accounts []models.StripeAccount
	query := r.db.WithContext(ctx).
		Where("onboarding_completed = ?", false).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}
