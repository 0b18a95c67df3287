// Package integrity turns a session's behavioral telemetry into a degrade-only
// trust score with explainable flags.
//
// Every rule is monotone in its input: adding events or answers can trigger a
// flag but never clear one. Evaluating the full re-sorted log is therefore
// independent of how the events were batched or in which order batches
// arrived, and the resulting trust score can only fall as the log grows.
package integrity

import (
	"strings"
	"time"
)

type EventType string

const (
	FocusLoss       EventType = "focus_loss"
	PasteAction     EventType = "paste_action"
	RapidFireAnswer EventType = "rapid_fire_answer"
	DevtoolsOpen    EventType = "devtools_open"
	IdleGap         EventType = "idle_gap"
	TabSwitch       EventType = "tab_switch"
	Custom          EventType = "custom"
)

var knownTypes = map[EventType]bool{
	FocusLoss:       true,
	PasteAction:     true,
	RapidFireAnswer: true,
	DevtoolsOpen:    true,
	IdleGap:         true,
	TabSwitch:       true,
	Custom:          true,
}

// ParseEventType accepts both "focus-loss" and "focus_loss" spellings.
func ParseEventType(s string) (EventType, bool) {
	t := EventType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	return t, knownTypes[t]
}

// Event is one ingested telemetry event.
type Event struct {
	ID        uint
	Type      EventType
	Timestamp time.Time
	Payload   map[string]interface{}
}

// Answer is the server-side record of one submitted answer.
type Answer struct {
	QuestionID  uint
	SubmittedAt time.Time
	Latency     time.Duration
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Flag is a triggered rule.
type Flag struct {
	Rule        string
	Severity    Severity
	Penalty     float64
	Evidence    int
	FirstSeen   time.Time
	Description string
}

// Verdict is the outcome of evaluating a session's log.
type Verdict struct {
	TrustScore float64
	Flags      []Flag
}

// Clean is the verdict of a session nothing has been observed for.
func Clean() Verdict {
	return Verdict{TrustScore: 1}
}

// Discard reasons. Duplicates are detected by the caller, which knows the stored events.
const (
	DiscardUnknownType   = "unknown_type"
	DiscardNoTimestamp   = "no_timestamp"
	DiscardBeforeSession = "before_session_start"
	DiscardDuplicate     = "duplicate_event"
)

// Admissible reports whether an event may enter the log of a session that
// started at start. Events outside the session window are dropped, not failed.
func Admissible(rawType string, ts time.Time, start time.Time) (EventType, string) {
	t, ok := ParseEventType(rawType)
	if !ok {
		return "", DiscardUnknownType
	}
	if ts.IsZero() {
		return "", DiscardNoTimestamp
	}
	if ts.Before(start) {
		return "", DiscardBeforeSession
	}
	return t, ""
}
