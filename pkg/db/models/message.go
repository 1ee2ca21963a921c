package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obinna-okoro1/convozo/pkg/enums"
)

// Message is a paid DM. Rows are only ever created by payment fulfillment.
type Message struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CreatorID       uuid.UUID         `gorm:"column:creator_id;type:uuid;not null;index"`
	SenderName      string            `gorm:"column:sender_name;not null"`
	SenderEmail     string            `gorm:"column:sender_email;not null"`
	SenderInstagram *string           `gorm:"column:sender_instagram"`
	MessageContent  string            `gorm:"column:message_content;not null"`
	AmountPaid      int64             `gorm:"column:amount_paid;not null"`
	MessageType     enums.MessageType `gorm:"column:message_type;not null"`
	IsHandled       bool              `gorm:"column:is_handled;not null"`
	ReplyContent    *string           `gorm:"column:reply_content"`
	RepliedAt       *time.Time        `gorm:"column:replied_at"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
