package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Creator is a monetized profile addressed publicly by slug.
type Creator struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Email             string    `gorm:"column:email;not null"`
	DisplayName       string    `gorm:"column:display_name;not null"`
	Slug              string    `gorm:"column:slug;not null;uniqueIndex"`
	Bio               *string   `gorm:"column:bio"`
	ProfileImageURL   *string   `gorm:"column:profile_image_url"`
	InstagramUsername *string   `gorm:"column:instagram_username"`
	IsActive          bool      `gorm:"column:is_active;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Creator) TableName() string { return "creators" }

func (c *Creator) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// CreatorSettings holds pricing and feature toggles, one row per creator.
type CreatorSettings struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CreatorID           uuid.UUID `gorm:"column:creator_id;type:uuid;not null;uniqueIndex"`
	MessagePrice        int64     `gorm:"column:message_price;not null"`
	CallPrice           *int64    `gorm:"column:call_price"`
	CallDuration        *int      `gorm:"column:call_duration"`
	CallsEnabled        bool      `gorm:"column:calls_enabled;not null"`
	ResponseExpectation *string   `gorm:"column:response_expectation"`
	AutoReplyText       *string   `gorm:"column:auto_reply_text"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CreatorSettings) TableName() string { return "creator_settings" }

func (s *CreatorSettings) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// CallPriceOrZero returns the configured call price in minor units.
func (s *CreatorSettings) CallPriceOrZero() int64 {
	if s == nil || s.CallPrice == nil {
		return 0
	}
	return *s.CallPrice
}

// CallDurationOrZero returns the configured call length in minutes.
func (s *CreatorSettings) CallDurationOrZero() int {
	if s == nil || s.CallDuration == nil {
		return 0
	}
	return *s.CallDuration
}
