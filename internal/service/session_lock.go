package service

import (
	"context"
	"time"

	"skillforge_backend/internal/config"
	"skillforge_backend/internal/integrity"
	"skillforge_backend/internal/scoring"
	"skillforge_backend/internal/util"
	"skillforge_backend/pkg/keylock"

	"github.com/pkg/errors"
)

// Clock is injected so tests can control latency.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// SessionLocks serializes every mutation of one session across services.
type SessionLocks struct {
	locker  *keylock.Locker
	timeout time.Duration
}

func NewSessionLocks(timeout time.Duration) *SessionLocks {
	return &SessionLocks{locker: keylock.New(), timeout: timeout}
}

// Acquire waits at most the configured timeout for the session.
func (l *SessionLocks) Acquire(ctx context.Context, sessionID string) (func(), error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	unlock, err := l.locker.Lock(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrapf(util.ErrSessionBusy, "session %s: %v", sessionID, err)
	}
	return unlock, nil
}

func IntegrityConfigFrom(cfg *config.Config) integrity.Config {
	c := cfg.Integrity
	return integrity.Config{
		FocusLossWindow:       c.FocusLossWindow,
		FocusLossMax:          c.FocusLossMax,
		RapidFireMin:          c.RapidFireMin,
		PasteWindow:           c.PasteWindow,
		MinHumanLatency:       c.MinHumanLatency,
		ImplausibleAnswersMin: c.ImplausibleAnswersMin,
		IdleGapMin:            c.IdleGapMin,
		Penalties:             c.Penalties,
	}
}

// ScoringConfigFrom copies the loaded scoring settings as they are; viper
// supplies the defaults, so an explicit zero stays zero.
func ScoringConfigFrom(cfg *config.Config) scoring.Config {
	return scoring.Config{
		PassThreshold:         cfg.Scoring.PassThreshold,
		PlausibilityThreshold: cfg.Scoring.PlausibilityThreshold,
		ScoreCap:              cfg.Scoring.ScoreCap,
	}
}
