package repository

import (
	"skillforge_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VerdictRepository struct {
	DB *gorm.DB
}

func NewVerdictRepository(db *gorm.DB) *VerdictRepository {
	return &VerdictRepository{DB: db}
}

func (r *VerdictRepository) WithTx(tx *gorm.DB) *VerdictRepository {
	return &VerdictRepository{DB: tx}
}

// Find returns nil without error when nothing has been recorded for the session.
func (r *VerdictRepository) Find(sessionID string) (*model.IntegrityVerdict, error) {
	var v model.IntegrityVerdict
	err := r.DB.Where("session_id = ?", sessionID).First(&v).Error
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VerdictRepository) Save(v *model.IntegrityVerdict) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		UpdateAll: true,
	}).Create(v).Error
}

func (r *VerdictRepository) SetEvidenceURL(sessionID, url string) error {
	return r.DB.Model(&model.IntegrityVerdict{}).
		Where("session_id = ?", sessionID).
		Update("evidence_url", url).Error
}
