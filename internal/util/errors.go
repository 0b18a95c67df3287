package util

import "errors"

// Error kinds. Every AppError unwraps to exactly one of these.
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrStateConflict         = errors.New("state conflict")
	ErrIntegrityFailure      = errors.New("integrity failure")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// AppError is a domain error with a stable machine-readable reason.
type AppError struct {
	Kind    error
	Reason  string
	Message string
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Kind }

var (
	ErrUnknownSkill            = &AppError{Kind: ErrNotFound, Reason: "unknown_skill", Message: "no assessment available for this skill"}
	ErrSessionNotFound         = &AppError{Kind: ErrNotFound, Reason: "session_not_found", Message: "assessment session not found"}
	ErrStaleQuestion           = &AppError{Kind: ErrStateConflict, Reason: "stale_question", Message: "question is not the pending question of this session"}
	ErrInvalidAnswer           = &AppError{Kind: ErrInvalidInput, Reason: "invalid_answer", Message: "answer index is out of range"}
	ErrSessionNotActive        = &AppError{Kind: ErrStateConflict, Reason: "session_not_active", Message: "session does not accept telemetry in its current state"}
	ErrSessionNotComplete      = &AppError{Kind: ErrStateConflict, Reason: "session_not_complete", Message: "assessment is not complete"}
	ErrAssessmentNotPassed     = &AppError{Kind: ErrStateConflict, Reason: "assessment_not_passed", Message: "assessment was not passed"}
	ErrIntegrityCheckFailed    = &AppError{Kind: ErrIntegrityFailure, Reason: "integrity_check_failed", Message: "assessment was flagged for review"}
	ErrQuestionBankUnavailable = &AppError{Kind: ErrDependencyUnavailable, Reason: "dependency_unavailable", Message: "question bank is unavailable"}
	ErrSessionBusy             = &AppError{Kind: ErrDependencyUnavailable, Reason: "session_busy", Message: "session is busy, retry later"}
)

// ReasonOf returns the reason of the outermost AppError in err's chain.
func ReasonOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}
