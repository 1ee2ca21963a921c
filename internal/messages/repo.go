package messages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obinna-okoro1/convozo/pkg/db/models"
	"github.com/obinna-okoro1/convozo/pkg/enums"
	"github.com/obinna-okoro1/convozo/pkg/pagination"
)

// Repository persists paid messages and call bookings.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to message operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to an open transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreateMessage(ctx context.Context, message *models.Message) error {
	if message == nil {
		return fmt.Errorf("message is required")
	}
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *Repository) CreateCallBooking(ctx context.Context, booking *models.CallBooking) error {
	if booking == nil {
		return fmt.Errorf("call booking is required")
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

// FindByID returns (nil, nil) when the message does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// FindCallBookingBySessionID returns (nil, nil) when no booking was created
// for the checkout session.
func (r *Repository) FindCallBookingBySessionID(ctx context.Context, sessionID string) (*models.CallBooking, error) {
	var booking models.CallBooking
	err := r.db.WithContext(ctx).
		Where("stripe_checkout_session_id = ?", sessionID).
		First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// SaveReply stores the creator's reply and marks the message handled.
func (r *Repository) SaveReply(ctx context.Context, id uuid.UUID, reply string, repliedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reply_content": reply,
			"replied_at":    repliedAt,
			"is_handled":    true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) MarkHandled(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", id).
		Update("is_handled", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByCreator returns newest-first messages after the cursor. It fetches
// one extra row so callers can detect a following page.
func (r *Repository) ListByCreator(ctx context.Context, creatorID uuid.UUID, filter enums.InboxFilter, params pagination.Params) ([]models.Message, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Where("creator_id = ?", creatorID)
	switch filter {
	case enums.InboxFilterHandled:
		query = query.Where("is_handled = ?", true)
	case enums.InboxFilterUnhandled:
		query = query.Where("is_handled = ?", false)
	}
	query = applyCursor(query, cursor)

	var rows []models.Message
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) ListCallBookings(ctx context.Context, creatorID uuid.UUID, params pagination.Params) ([]models.CallBooking, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	var rows []models.CallBooking
	if err := applyCursor(r.db.WithContext(ctx).Where("creator_id = ?", creatorID), cursor).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func applyCursor(query *gorm.DB, cursor *pagination.Cursor) *gorm.DB {
	if cursor == nil {
		return query
	}
	return query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
}
