package model

import "time"

// Badge is an issued credential. SessionID is unique, which makes issuance
// idempotent at the storage level as well.
type Badge struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Serial     string    `gorm:"size:32;uniqueIndex" json:"serial"`
	SessionID  string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"sessionId"`
	UserID     string    `gorm:"size:64;not null;index" json:"userId"`
	SkillName  string    `gorm:"size:64;not null" json:"skillName"`
	SkillLevel string    `gorm:"size:20;not null" json:"skillLevel"`
	Score      int       `json:"score"`
	TrustScore float64   `json:"trustScore"`
	Credential string    `gorm:"type:text" json:"credential"`
	IssuedAt   time.Time `gorm:"not null" json:"issuedAt"`
}

func (Badge) TableName() string {
	return "badges"
}
