package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AvailabilitySlot is a weekly window in which a creator takes calls.
type AvailabilitySlot struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CreatorID uuid.UUID `gorm:"column:creator_id;type:uuid;not null;index"`
	DayOfWeek int       `gorm:"column:day_of_week;not null"`
	StartTime string    `gorm:"column:start_time;not null"`
	EndTime   string    `gorm:"column:end_time;not null"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (AvailabilitySlot) TableName() string { return "availability_slots" }

func (s *AvailabilitySlot) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
