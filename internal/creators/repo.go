package creators

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/obinna-okoro1/convozo/pkg/db/models"
)

// Repository reads creator profiles and their settings. Lookups return
// (nil, nil) when no row matches.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to creator operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindActiveBySlug resolves the public slug of an active creator.
func (r *Repository) FindActiveBySlug(ctx context.Context, slug string) (*models.Creator, error) {
	var creator models.Creator
	err := r.db.WithContext(ctx).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&creator).Error
	return firstOrNil(&creator, err)
}

// FindByID loads a creator regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Creator, error) {
	var creator models.Creator
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&creator).Error
	return firstOrNil(&creator, err)
}

// FindByUserID returns the creator owned by an auth principal.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Creator, error) {
	var creator models.Creator
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&creator).Error
	return firstOrNil(&creator, err)
}

// FindSettings loads the 1:1 settings row for a creator.
func (r *Repository) FindSettings(ctx context.Context, creatorID uuid.UUID) (*models.CreatorSettings, error) {
	var settings models.CreatorSettings
	err := r.db.WithContext(ctx).Where("creator_id = ?", creatorID).First(&settings).Error
	return firstOrNil(&settings, err)
}

// ListAvailability returns active weekly slots ordered by day and start.
func (r *Repository) ListAvailability(ctx context.Context, creatorID uuid.UUID) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	if err := r.db.WithContext(ctx).
		Where("creator_id = ? AND is_active = ?", creatorID, true).
		Order("day_of_week ASC, start_time ASC").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func firstOrNil[T any](row *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query %T: %w", row, err)
	}
	return row, nil
}
