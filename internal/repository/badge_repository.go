package repository

import (
	"skillforge_backend/internal/model"

	"gorm.io/gorm"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

func (r *BadgeRepository) WithTx(tx *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: tx}
}

// Create fails on a second badge for the same session.
func (r *BadgeRepository) Create(b *model.Badge) error {
	return r.DB.Create(b).Error
}

func (r *BadgeRepository) FindBySession(sessionID string) (*model.Badge, error) {
	var b model.Badge
	if err := r.DB.Where("session_id = ?", sessionID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BadgeRepository) ListByUser(userID string) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.Where("user_id = ?", userID).Order("issued_at desc, id desc").Find(&badges).Error
	return badges, err
}
