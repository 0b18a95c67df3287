package model

import (
	"fmt"
	"time"
)

// TelemetryEvent is an immutable behavioral signal captured during a session.
type TelemetryEvent struct {
	ID        uint                   `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string                 `gorm:"type:varchar(36);not null;index" json:"sessionId"`
	EventID   string                 `gorm:"size:64;index" json:"eventId,omitempty"`
	EventType string                 `gorm:"size:32;not null" json:"eventType"`
	Timestamp time.Time              `gorm:"not null" json:"timestamp"`
	Payload   map[string]interface{} `gorm:"serializer:json;type:text" json:"payload,omitempty"`
	CreatedAt time.Time              `json:"ingestedAt"`
}

func (TelemetryEvent) TableName() string {
	return "telemetry_events"
}

// EventKey identifies a client event for deduplication. Two events sharing a
// client id but differing in type or time are distinct.
func EventKey(eventID, eventType string, ts time.Time) string {
	return fmt.Sprintf("%s|%s|%d", eventID, eventType, ts.UTC().UnixMilli())
}

func (e *TelemetryEvent) Key() string {
	return EventKey(e.EventID, e.EventType, e.Timestamp)
}
