package model

import "time"

type SessionStatus string

const (
	SessionCreated        SessionStatus = "created"
	SessionAwaitingAnswer SessionStatus = "awaiting_answer"
	SessionComplete       SessionStatus = "complete"
)

// rank orders statuses so transitions can be checked for monotonicity.
func (s SessionStatus) rank() int {
	switch s {
	case SessionCreated:
		return 0
	case SessionAwaitingAnswer:
		return 1
	case SessionComplete:
		return 2
	default:
		return -1
	}
}

// CanMoveTo reports whether a transition from s to next keeps status monotone.
func (s SessionStatus) CanMoveTo(next SessionStatus) bool {
	if s == SessionComplete {
		return false
	}
	return next.rank() >= s.rank() && next.rank() >= 0
}

// AssessmentSession is one user's attempt at one skill.
type AssessmentSession struct {
	UUIDBase
	UserID            string        `gorm:"size:64;not null;index" json:"userId"`
	SkillName         string        `gorm:"size:64;not null" json:"skillName"`
	Status            SessionStatus `gorm:"size:20;not null" json:"status"`
	CurrentQuestionID *uint         `json:"currentQuestionId,omitempty"`
	CurrentIssuedAt   *time.Time    `json:"-"`
	QuestionCount     int           `json:"questionCount"`
	AnsweredCount     int           `json:"answeredCount"`
	Score             *int          `json:"score,omitempty"`
	Level             string        `gorm:"size:20" json:"level,omitempty"`
	FinalTrustScore   *float64      `json:"-"`
	StartedAt         time.Time     `json:"startedAt"`
	CompletedAt       *time.Time    `json:"completedAt,omitempty"`
}

func (AssessmentSession) TableName() string {
	return "assessment_sessions"
}

// AssessmentItem is one administered question of a session and, once
// answered, the submitted answer.
type AssessmentItem struct {
	BaseModel
	SessionID         string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_item_session_question,priority:1;uniqueIndex:idx_item_session_pos,priority:1" json:"sessionId"`
	QuestionID        uint       `gorm:"not null;uniqueIndex:idx_item_session_question,priority:2" json:"questionId"`
	Position          int        `gorm:"not null;uniqueIndex:idx_item_session_pos,priority:2" json:"position"`
	IssuedAt          *time.Time `json:"issuedAt,omitempty"`
	AnswerIndex       *int       `json:"answerIndex,omitempty"`
	SubmittedAt       *time.Time `json:"submittedAt,omitempty"`
	LatencyMs         int64      `json:"latencyMs"`
	Correct           bool       `json:"-"`
	TrustAtSubmission float64    `json:"-"`
}

func (AssessmentItem) TableName() string {
	return "assessment_items"
}

func (i *AssessmentItem) Answered() bool {
	return i.AnswerIndex != nil
}
