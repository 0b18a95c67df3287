package repository

import (
	"skillforge_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.BankQuestion) error {
	return r.DB.Create(q).Error
}

// ListBySkill returns the active questions of a skill in administration order.
func (r *QuestionRepository) ListBySkill(skill string) ([]model.BankQuestion, error) {
	var qs []model.BankQuestion
	err := r.DB.Where("skill_name = ? AND retired = ?", skill, false).
		Order("position asc, id asc").
		Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) FindByIDs(ids []uint) ([]model.BankQuestion, error) {
	var qs []model.BankQuestion
	if len(ids) == 0 {
		return qs, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) ListSkills() ([]model.SkillSummary, error) {
	var rows []struct {
		SkillName string
		Total     int
	}
	err := r.DB.Model(&model.BankQuestion{}).
		Select("skill_name, COUNT(*) AS total").
		Where("retired = ?", false).
		Group("skill_name").
		Order("skill_name asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make([]model.SkillSummary, 0, len(rows))
	for _, row := range rows {
		res = append(res, model.SkillSummary{Name: row.SkillName, QuestionCount: row.Total})
	}
	return res, nil
}
