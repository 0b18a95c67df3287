package service

import (
	"context"
	"sync/atomic"
	"time"

	"skillforge_backend/internal/integrity"
	"skillforge_backend/internal/model"
	"skillforge_backend/internal/repository"
	"skillforge_backend/internal/util"
	"skillforge_backend/pkg/logger"
	"skillforge_backend/pkg/monitoring"
	"skillforge_backend/pkg/tracing"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TelemetryEventInput is one client-reported event.
type TelemetryEventInput struct {
	EventID   string                 `json:"eventId"`
	EventType string                 `json:"eventType"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

type IngestResult struct {
	Accepted  int `json:"accepted"`
	Discarded int `json:"discarded"`
}

// evaluation is the outcome of re-evaluating a session inside a transaction.
type evaluation struct {
	verdict   *model.IntegrityVerdict
	prevTrust float64
	newRules  []string
}

// IntegrityService ingests telemetry and maintains the degrade-only verdict
// of every session.
type IntegrityService struct {
	DB        *gorm.DB
	Sessions  *repository.AssessmentRepository
	Telemetry *repository.TelemetryRepository
	Verdicts  *repository.VerdictRepository
	Cache     VerdictCache
	Alerts    AlertPublisher
	Locks     *SessionLocks
	Now       Clock

	engine atomic.Pointer[integrity.Engine]
}

func NewIntegrityService(
	db *gorm.DB,
	sessions *repository.AssessmentRepository,
	telemetry *repository.TelemetryRepository,
	verdicts *repository.VerdictRepository,
	cache VerdictCache,
	alerts AlertPublisher,
	locks *SessionLocks,
	cfg integrity.Config,
) *IntegrityService {
	s := &IntegrityService{
		DB:        db,
		Sessions:  sessions,
		Telemetry: telemetry,
		Verdicts:  verdicts,
		Cache:     cache,
		Alerts:    alerts,
		Locks:     locks,
		Now:       systemClock,
	}
	s.engine.Store(integrity.NewEngine(cfg))
	return s
}

// Reload swaps the rule thresholds. Stored verdicts keep their minimum, so a
// looser configuration never raises a session's trust.
func (s *IntegrityService) Reload(cfg integrity.Config) {
	s.engine.Store(integrity.NewEngine(cfg))
	logger.Log.Info("integrity rules reloaded")
}

func (s *IntegrityService) IngestBatch(ctx context.Context, userID, sessionID string, events []TelemetryEventInput) (*IngestResult, error) {
	ctx, span := tracing.Tracer().Start(ctx, "IntegrityService.IngestBatch")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID), attribute.Int("batch.size", len(events)))

	unlock, err := s.Locks.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.ownedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionAwaitingAnswer && session.Status != model.SessionComplete {
		return nil, util.ErrSessionNotActive
	}

	accepted, discards, err := s.admit(session, events)
	if err != nil {
		return nil, err
	}

	var eval *evaluation
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.Telemetry.WithTx(tx).Append(accepted); err != nil {
			return errors.Wrap(err, "append telemetry")
		}
		eval, err = s.evaluate(tx, session.ID, len(discards))
		return err
	})
	if err != nil {
		return nil, err
	}

	monitoring.TelemetryEvents.WithLabelValues("accepted").Add(float64(len(accepted)))
	for _, reason := range discards {
		monitoring.TelemetryEvents.WithLabelValues(reason).Inc()
	}
	s.publish(ctx, session, eval)

	if len(discards) > 0 {
		logger.Log.Debug("telemetry events discarded",
			zap.String("sessionId", sessionID),
			zap.Strings("reasons", discards))
	}
	return &IngestResult{Accepted: len(accepted), Discarded: len(discards)}, nil
}

// admit splits a batch into storable events and discard reasons.
func (s *IntegrityService) admit(session *model.AssessmentSession, events []TelemetryEventInput) ([]model.TelemetryEvent, []string, error) {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if e.EventID != "" {
			ids = append(ids, e.EventID)
		}
	}
	known, err := s.Telemetry.KnownEvents(session.ID, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load known event ids")
	}

	var (
		accepted []model.TelemetryEvent
		discards []string
	)
	for _, e := range events {
		typ, reason := integrity.Admissible(e.EventType, e.Timestamp, session.StartedAt)
		if reason == "" && e.EventID != "" {
			key := model.EventKey(e.EventID, string(typ), e.Timestamp)
			if known[key] {
				reason = integrity.DiscardDuplicate
			}
			known[key] = true
		}
		if reason != "" {
			discards = append(discards, reason)
			continue
		}
		accepted = append(accepted, model.TelemetryEvent{
			SessionID: session.ID,
			EventID:   e.EventID,
			EventType: string(typ),
			Timestamp: e.Timestamp.UTC(),
			Payload:   e.Payload,
		})
	}
	return accepted, discards, nil
}

// evaluate recomputes the verdict of a session over its full log and stores
// the degraded result. It must run inside tx.
func (s *IntegrityService) evaluate(tx *gorm.DB, sessionID string, discarded int) (*evaluation, error) {
	stored, err := s.Telemetry.WithTx(tx).ListBySession(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "load telemetry")
	}
	items, err := s.Sessions.WithTx(tx).ListItems(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "load answers")
	}
	prev, err := s.Verdicts.WithTx(tx).Find(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "load verdict")
	}

	events := make([]integrity.Event, 0, len(stored))
	for _, e := range stored {
		events = append(events, integrity.Event{
			ID:        e.ID,
			Type:      integrity.EventType(e.EventType),
			Timestamp: e.Timestamp,
			Payload:   e.Payload,
		})
	}
	var answers []integrity.Answer
	for _, it := range items {
		if !it.Answered() || it.SubmittedAt == nil {
			continue
		}
		answers = append(answers, integrity.Answer{
			QuestionID:  it.QuestionID,
			SubmittedAt: *it.SubmittedAt,
			Latency:     time.Duration(it.LatencyMs) * time.Millisecond,
		})
	}

	next := s.engine.Load().Evaluate(events, answers)

	eval := &evaluation{prevTrust: 1}
	var prevVerdict *integrity.Verdict
	record := &model.IntegrityVerdict{SessionID: sessionID}
	if prev != nil {
		pv := toDomainVerdict(prev)
		prevVerdict = &pv
		eval.prevTrust = prev.TrustScore
		record.DiscardedCount = prev.DiscardedCount
		record.EvidenceURL = prev.EvidenceURL
	}
	merged := integrity.Degrade(prevVerdict, next)
	eval.newRules = newRules(prevVerdict, merged)

	record.TrustScore = merged.TrustScore
	record.Flags = toModelFlags(merged.Flags)
	record.EventCount = len(stored)
	record.DiscardedCount += discarded
	record.UpdatedAt = s.Now()
	if err := s.Verdicts.WithTx(tx).Save(record); err != nil {
		return nil, errors.Wrap(err, "save verdict")
	}
	eval.verdict = record
	return eval, nil
}

// publish runs after commit. Cache and alert failures are logged only.
func (s *IntegrityService) publish(ctx context.Context, session *model.AssessmentSession, eval *evaluation) {
	if eval == nil || eval.verdict == nil {
		return
	}
	v := eval.verdict
	monitoring.TrustScore.Observe(v.TrustScore)
	for _, rule := range eval.newRules {
		monitoring.IntegrityFlags.WithLabelValues(rule).Inc()
	}

	if err := s.Cache.Set(ctx, v); err != nil {
		logger.Log.Warn("verdict cache set failed", zap.String("sessionId", v.SessionID), zap.Error(err))
	}
	if v.TrustScore >= eval.prevTrust {
		return
	}
	alert := IntegrityAlert{
		SessionID:  v.SessionID,
		UserID:     session.UserID,
		SkillName:  session.SkillName,
		Previous:   eval.prevTrust,
		TrustScore: v.TrustScore,
		NewRules:   eval.newRules,
		At:         s.Now(),
	}
	if err := s.Alerts.Publish(ctx, alert); err != nil {
		logger.Log.Warn("integrity alert publish failed", zap.String("sessionId", v.SessionID), zap.Error(err))
	}
}

// GetVerdict is a pure read. A session nothing was recorded for is clean.
func (s *IntegrityService) GetVerdict(ctx context.Context, sessionID string) (*model.IntegrityVerdict, error) {
	if v, err := s.Cache.Get(ctx, sessionID); err != nil {
		logger.Log.Warn("verdict cache get failed", zap.String("sessionId", sessionID), zap.Error(err))
	} else if v != nil {
		return v, nil
	}

	if _, err := s.Sessions.FindSession(sessionID); err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "load session")
	}
	v, err := s.Verdicts.Find(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "load verdict")
	}
	if v == nil {
		return &model.IntegrityVerdict{SessionID: sessionID, TrustScore: 1, Flags: []model.IntegrityFlag{}}, nil
	}
	if err := s.Cache.Set(ctx, v); err != nil {
		logger.Log.Warn("verdict cache set failed", zap.String("sessionId", sessionID), zap.Error(err))
	}
	return v, nil
}

// currentTrust reads the stored trust inside tx, 1 when nothing is stored.
func (s *IntegrityService) currentTrust(tx *gorm.DB, sessionID string) (float64, error) {
	v, err := s.Verdicts.WithTx(tx).Find(sessionID)
	if err != nil {
		return 0, errors.Wrap(err, "load verdict")
	}
	if v == nil {
		return 1, nil
	}
	return v.TrustScore, nil
}

func (s *IntegrityService) ownedSession(userID, sessionID string) (*model.AssessmentSession, error) {
	session, err := s.Sessions.FindSession(sessionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "load session")
	}
	if session.UserID != userID {
		return nil, util.ErrSessionNotFound
	}
	return session, nil
}

func newRules(prev *integrity.Verdict, next integrity.Verdict) []string {
	seen := make(map[string]bool)
	if prev != nil {
		for _, f := range prev.Flags {
			seen[f.Rule] = true
		}
	}
	var res []string
	for _, f := range next.Flags {
		if !seen[f.Rule] {
			res = append(res, f.Rule)
		}
	}
	return res
}

func toDomainVerdict(v *model.IntegrityVerdict) integrity.Verdict {
	flags := make([]integrity.Flag, 0, len(v.Flags))
	for _, f := range v.Flags {
		flags = append(flags, integrity.Flag{
			Rule:        f.Rule,
			Severity:    integrity.Severity(f.Severity),
			Penalty:     f.Penalty,
			Evidence:    f.Evidence,
			FirstSeen:   f.FirstSeen,
			Description: f.Description,
		})
	}
	return integrity.Verdict{TrustScore: v.TrustScore, Flags: flags}
}

func toModelFlags(flags []integrity.Flag) []model.IntegrityFlag {
	res := make([]model.IntegrityFlag, 0, len(flags))
	for _, f := range flags {
		res = append(res, model.IntegrityFlag{
			Rule:        f.Rule,
			Severity:    string(f.Severity),
			Penalty:     f.Penalty,
			Evidence:    f.Evidence,
			FirstSeen:   f.FirstSeen,
			Description: f.Description,
		})
	}
	return res
}
