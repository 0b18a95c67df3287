package database

import (
	"skillforge_backend/internal/model"
	"skillforge_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultQuestionBank is inserted when the bank is empty.
var DefaultQuestionBank = map[string][]model.BankQuestion{
	"javascript": {
		{
			Text:         "What is the output of `typeof null` in JavaScript?",
			Options:      []string{"'object'", "'null'", "'undefined'", "'number'"},
			CorrectIndex: 0,
		},
		{
			Text:         "Which company developed JavaScript?",
			Options:      []string{"Microsoft", "Apple", "Netscape", "Sun Microsystems"},
			CorrectIndex: 2,
		},
	},
	"python": {
		{
			Text:         "What is the data type of the result of `6 / 2` in Python 3?",
			Options:      []string{"int", "float", "str", "list"},
			CorrectIndex: 1,
		},
		{
			Text:         "How do you start a single-line comment in Python?",
			Options:      []string{"//", "/*", "#", "<!--"},
			CorrectIndex: 2,
		},
	},
	"sql": {
		{
			Text:         "Which SQL statement is used to extract data from a database?",
			Options:      []string{"GET", "SELECT", "EXTRACT", "OPEN"},
			CorrectIndex: 1,
		},
		{
			Text:         "Which SQL keyword is used to sort the result-set?",
			Options:      []string{"SORT BY", "ORDER", "SORT", "ORDER BY"},
			CorrectIndex: 3,
		},
	},
}

// SeedQuestionBank fills an empty bank with DefaultQuestionBank.
func SeedQuestionBank(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.BankQuestion{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, skill := range []string{"javascript", "python", "sql"} {
			for i, q := range DefaultQuestionBank[skill] {
				q.SkillName = skill
				q.Version = 1
				q.Position = i + 1
				if err := tx.Create(&q).Error; err != nil {
					return err
				}
			}
			logger.Log.Info("Seeded question bank", zap.String("skill", skill), zap.Int("questions", len(DefaultQuestionBank[skill])))
		}
		return nil
	})
}
