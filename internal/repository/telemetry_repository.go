package repository

import (
	"skillforge_backend/internal/model"

	"gorm.io/gorm"
)

// TelemetryRepository is an append-only event log per session.
type TelemetryRepository struct {
	DB *gorm.DB
}

func NewTelemetryRepository(db *gorm.DB) *TelemetryRepository {
	return &TelemetryRepository{DB: db}
}

func (r *TelemetryRepository) WithTx(tx *gorm.DB) *TelemetryRepository {
	return &TelemetryRepository{DB: tx}
}

func (r *TelemetryRepository) Append(events []model.TelemetryEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.DB.CreateInBatches(&events, 200).Error
}

// ListBySession returns the log in insertion order; callers sort by timestamp.
func (r *TelemetryRepository) ListBySession(sessionID string) ([]model.TelemetryEvent, error) {
	var events []model.TelemetryEvent
	err := r.DB.Where("session_id = ?", sessionID).Order("id asc").Find(&events).Error
	return events, err
}

// KnownEvents returns the dedup keys of stored events of the session that
// carry one of the client ids.
func (r *TelemetryRepository) KnownEvents(sessionID string, ids []string) (map[string]bool, error) {
	known := make(map[string]bool)
	if len(ids) == 0 {
		return known, nil
	}
	var rows []model.TelemetryEvent
	err := r.DB.Select("event_id", "event_type", "timestamp").
		Where("session_id = ? AND event_id IN ?", sessionID, ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		known[rows[i].Key()] = true
	}
	return known, nil
}
