package repository

import (
	"errors"

	"skillforge_backend/internal/model"

	"gorm.io/gorm"
)

// AssessmentRepository stores sessions and their administered items.
type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

// WithTx returns a repository bound to tx.
func (r *AssessmentRepository) WithTx(tx *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: tx}
}

func (r *AssessmentRepository) CreateSession(s *model.AssessmentSession) error {
	return r.DB.Create(s).Error
}

func (r *AssessmentRepository) UpdateSession(s *model.AssessmentSession) error {
	return r.DB.Save(s).Error
}

// FindSession returns gorm.ErrRecordNotFound for an unknown id.
func (r *AssessmentRepository) FindSession(id string) (*model.AssessmentSession, error) {
	var s model.AssessmentSession
	if err := r.DB.Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *AssessmentRepository) CreateItems(items []model.AssessmentItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.DB.Create(&items).Error
}

func (r *AssessmentRepository) UpdateItem(item *model.AssessmentItem) error {
	return r.DB.Save(item).Error
}

// ListItems returns a session's items in administration order.
func (r *AssessmentRepository) ListItems(sessionID string) ([]model.AssessmentItem, error) {
	var items []model.AssessmentItem
	err := r.DB.Where("session_id = ?", sessionID).Order("position asc").Find(&items).Error
	return items, err
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
