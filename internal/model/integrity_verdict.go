package model

import "time"

// IntegrityFlag is the stored form of a triggered anomaly rule.
type IntegrityFlag struct {
	Rule        string    `json:"rule"`
	Severity    string    `json:"severity"`
	Penalty     float64   `json:"penalty"`
	Evidence    int       `json:"evidence"`
	FirstSeen   time.Time `json:"firstSeen"`
	Description string    `json:"description"`
}

// IntegrityVerdict is the running anti-fabrication verdict of a session.
type IntegrityVerdict struct {
	SessionID      string          `gorm:"primaryKey;type:varchar(36)" json:"sessionId"`
	TrustScore     float64         `gorm:"not null" json:"trustScore"`
	Flags          []IntegrityFlag `gorm:"serializer:json;type:text" json:"flags"`
	EventCount     int             `json:"eventCount"`
	DiscardedCount int             `json:"discardedCount"`
	EvidenceURL    string          `gorm:"size:512" json:"evidenceUrl,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (IntegrityVerdict) TableName() string {
	return "integrity_verdicts"
}
