package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obinna-okoro1/convozo/pkg/enums"
)

// CallBooking is a paid video call request.
type CallBooking struct {
	ID                      uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	CreatorID               uuid.UUID               `gorm:"column:creator_id;type:uuid;not null;index"`
	BookerName              string                  `gorm:"column:booker_name;not null"`
	BookerEmail             string                  `gorm:"column:booker_email;not null"`
	BookerInstagram         string                  `gorm:"column:booker_instagram;not null"`
	ScheduledAt             *time.Time              `gorm:"column:scheduled_at"`
	Duration                int                     `gorm:"column:duration;not null"`
	AmountPaid              int64                   `gorm:"column:amount_paid;not null"`
	Status                  enums.CallBookingStatus `gorm:"column:status;not null"`
	CallNotes               *string                 `gorm:"column:call_notes"`
	StripeCheckoutSessionID string                  `gorm:"column:stripe_checkout_session_id;not null;uniqueIndex"`
	StripePaymentIntentID   *string                 `gorm:"column:stripe_payment_intent_id"`
	CreatedAt               time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (CallBooking) TableName() string { return "call_bookings" }

func (b *CallBooking) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}
