package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obinna-okoro1/convozo/pkg/enums"
)

// Payment is the ledger row for one settled checkout session. The unique
// session id makes fulfillment exactly-once.
type Payment struct {
	ID                      uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CreatorID               uuid.UUID           `gorm:"column:creator_id;type:uuid;not null;index"`
	MessageID               *uuid.UUID          `gorm:"column:message_id;type:uuid"`
	CallBookingID           *uuid.UUID          `gorm:"column:call_booking_id;type:uuid"`
	StripeCheckoutSessionID string              `gorm:"column:stripe_checkout_session_id;not null;uniqueIndex"`
	StripePaymentIntentID   *string             `gorm:"column:stripe_payment_intent_id"`
	Amount                  int64               `gorm:"column:amount;not null"`
	PlatformFee             int64               `gorm:"column:platform_fee;not null"`
	CreatorAmount           int64               `gorm:"column:creator_amount;not null"`
	Status                  enums.PaymentStatus `gorm:"column:status;not null"`
	SenderEmail             string              `gorm:"column:sender_email;not null"`
	CreatedAt               time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
