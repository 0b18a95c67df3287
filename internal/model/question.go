package model

// BankQuestion is one versioned multiple-choice question of a skill's bank.
// Position fixes the order in which a session administers the questions.
type BankQuestion struct {
	BaseModel
	SkillName    string   `gorm:"size:64;not null;index:idx_bank_skill_pos,priority:1" json:"skillName"`
	Version      int      `gorm:"not null;default:1" json:"version"`
	Position     int      `gorm:"not null;index:idx_bank_skill_pos,priority:2" json:"position"`
	Text         string   `gorm:"type:text;not null" json:"questionText"`
	Options      []string `gorm:"serializer:json;type:text" json:"options"`
	CorrectIndex int      `gorm:"not null" json:"-"`
	Retired      bool     `gorm:"default:false" json:"-"`
}

func (BankQuestion) TableName() string {
	return "bank_questions"
}

// ValidIndex reports whether i addresses one of the question's options.
func (q *BankQuestion) ValidIndex(i int) bool {
	return i >= 0 && i < len(q.Options)
}

// SkillSummary is the catalog view of a skill present in the bank.
type SkillSummary struct {
	Name          string `json:"name"`
	QuestionCount int    `json:"questionCount"`
}
