package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StripeAccount mirrors a creator's Connect payout account. Flags are
// overwritten from the provider on every verification.
type StripeAccount struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CreatorID           uuid.UUID `gorm:"column:creator_id;type:uuid;not null;uniqueIndex"`
	StripeAccountID     string    `gorm:"column:stripe_account_id;not null;uniqueIndex"`
	ChargesEnabled      bool      `gorm:"column:charges_enabled;not null"`
	PayoutsEnabled      bool      `gorm:"column:payouts_enabled;not null"`
	DetailsSubmitted    bool      `gorm:"column:details_submitted;not null"`
	OnboardingCompleted bool      `gorm:"column:onboarding_completed;not null"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (StripeAccount) TableName() string { return "stripe_accounts" }

func (a *StripeAccount) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}
