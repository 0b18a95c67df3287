package service

import (
	"context"
	"math"
	"time"

	"skillforge_backend/internal/config"
	"skillforge_backend/internal/model"
	"skillforge_backend/internal/repository"
	"skillforge_backend/internal/scoring"
	"skillforge_backend/internal/util"
	"skillforge_backend/pkg/logger"
	"skillforge_backend/pkg/monitoring"
	"skillforge_backend/pkg/tracing"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// EvidenceArchiver stores the material behind a refused badge.
type EvidenceArchiver interface {
	ArchiveEvidence(ctx context.Context, sessionID string, bundle interface{}) (string, error)
}

// CredentialClaims are signed into every badge credential.
type CredentialClaims struct {
	Skill     string `json:"skill"`
	Level     string `json:"level"`
	Score     int    `json:"score"`
	SessionID string `json:"session"`
	jwt.RegisteredClaims
}

// BadgeService is the issuance gate.
type BadgeService struct {
	Badges    *repository.BadgeRepository
	Sessions  *repository.AssessmentRepository
	Telemetry *repository.TelemetryRepository
	Verdicts  *repository.VerdictRepository
	Evidence  EvidenceArchiver
	Cache     VerdictCache
	Locks     *SessionLocks
	Scoring   scoring.Config
	Now       Clock

	threshold float64
	issuer    string
	secret    []byte
	node      *snowflake.Node
}

func NewBadgeService(
	badges *repository.BadgeRepository,
	sessions *repository.AssessmentRepository,
	telemetry *repository.TelemetryRepository,
	verdicts *repository.VerdictRepository,
	evidence EvidenceArchiver,
	locks *SessionLocks,
	cfg *config.Config,
) (*BadgeService, error) {
	node, err := snowflake.NewNode(cfg.Badge.NodeID)
	if err != nil {
		return nil, errors.Wrap(err, "badge serial generator")
	}
	return &BadgeService{
		Badges:    badges,
		Sessions:  sessions,
		Telemetry: telemetry,
		Verdicts:  verdicts,
		Evidence:  evidence,
		Locks:     locks,
		Scoring:   ScoringConfigFrom(cfg),
		Now:       systemClock,
		threshold: cfg.Badge.IntegrityThreshold,
		issuer:    cfg.Badge.Issuer,
		secret:    []byte(cfg.JWT.Secret),
		node:      node,
	}, nil
}

func (s *BadgeService) IssueBadge(ctx context.Context, userID, sessionID string) (*model.Badge, error) {
	ctx, span := tracing.Tracer().Start(ctx, "BadgeService.IssueBadge")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	unlock, err := s.Locks.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

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

	existing, err := s.Badges.FindBySession(sessionID)
	if err == nil {
		return existing, nil
	}
	if !repository.IsNotFound(err) {
		return nil, errors.Wrap(err, "load badge")
	}

	if session.Status != model.SessionComplete || session.Score == nil {
		return nil, s.refuse(util.ErrSessionNotComplete)
	}

	// trust is judged before the score, which low trust has already capped
	verdict, err := s.Verdicts.Find(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "load verdict")
	}
	trust := 1.0
	if session.FinalTrustScore != nil {
		trust = *session.FinalTrustScore
	}
	if verdict != nil {
		trust = math.Min(trust, verdict.TrustScore)
	}
	if trust < s.threshold {
		s.archive(ctx, session, verdict)
		logger.Log.Warn("badge refused on integrity",
			zap.String("sessionId", sessionID),
			zap.String("userId", userID),
			zap.Float64("trust", trust))
		return nil, s.refuse(util.ErrIntegrityCheckFailed)
	}
	if !scoring.Passed(s.Scoring, *session.Score) {
		return nil, s.refuse(util.ErrAssessmentNotPassed)
	}

	badge, err := s.mint(session, trust)
	if err != nil {
		return nil, err
	}
	if err := s.Badges.Create(badge); err != nil {
		// lost a race on the unique session index
		if existing, findErr := s.Badges.FindBySession(sessionID); findErr == nil {
			return existing, nil
		}
		return nil, errors.Wrap(err, "create badge")
	}

	monitoring.BadgeDecisions.WithLabelValues("issued").Inc()
	logger.Log.Info("badge issued",
		zap.String("sessionId", sessionID),
		zap.String("serial", badge.Serial),
		zap.String("level", badge.SkillLevel))

	// re-read so the first and every later call return the same record
	stored, err := s.Badges.FindBySession(sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "reload badge")
	}
	return stored, nil
}

func (s *BadgeService) mint(session *model.AssessmentSession, trust float64) (*model.Badge, error) {
	now := s.Now().Truncate(time.Second)
	serial := s.node.Generate().String()
	claims := CredentialClaims{
		Skill:     session.SkillName,
		Level:     session.Level,
		Score:     *session.Score,
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			Subject:  session.UserID,
			ID:       serial,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	credential, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, errors.Wrap(err, "sign credential")
	}
	return &model.Badge{
		Serial:     serial,
		SessionID:  session.ID,
		UserID:     session.UserID,
		SkillName:  session.SkillName,
		SkillLevel: session.Level,
		Score:      *session.Score,
		TrustScore: trust,
		Credential: credential,
		IssuedAt:   now,
	}, nil
}

// VerifyCredential checks a badge credential signed by this service.
func (s *BadgeService) VerifyCredential(credential string) (*CredentialClaims, error) {
	var claims CredentialClaims
	_, err := jwt.ParseWithClaims(credential, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

func (s *BadgeService) ListBadges(ctx context.Context, userID string) ([]model.Badge, error) {
	badges, err := s.Badges.ListByUser(userID)
	if err != nil {
		return nil, errors.Wrap(err, "list badges")
	}
	return badges, nil
}

func (s *BadgeService) refuse(err *util.AppError) error {
	monitoring.BadgeDecisions.WithLabelValues(err.Reason).Inc()
	return err
}

// archive is best effort: a storage failure never changes the refusal.
func (s *BadgeService) archive(ctx context.Context, session *model.AssessmentSession, verdict *model.IntegrityVerdict) {
	if s.Evidence == nil {
		return
	}
	items, err := s.Sessions.ListItems(session.ID)
	if err != nil {
		logger.Log.Warn("evidence: load answers failed", zap.String("sessionId", session.ID), zap.Error(err))
	}
	events, err := s.Telemetry.ListBySession(session.ID)
	if err != nil {
		logger.Log.Warn("evidence: load telemetry failed", zap.String("sessionId", session.ID), zap.Error(err))
	}
	bundle := EvidenceBundle{
		SessionID:   session.ID,
		UserID:      session.UserID,
		SkillName:   session.SkillName,
		Score:       session.Score,
		Session:     session,
		Answers:     items,
		Events:      events,
		Verdict:     verdict,
		GeneratedAt: s.Now(),
	}
	url, err := s.Evidence.ArchiveEvidence(ctx, session.ID, bundle)
	if err != nil {
		logger.Log.Warn("evidence archive failed", zap.String("sessionId", session.ID), zap.Error(err))
		return
	}
	if err := s.Verdicts.SetEvidenceURL(session.ID, url); err != nil {
		logger.Log.Warn("evidence url not recorded", zap.String("sessionId", session.ID), zap.Error(err))
		return
	}
	if verdict != nil && s.Cache != nil {
		verdict.EvidenceURL = url
		if err := s.Cache.Set(ctx, verdict); err != nil {
			logger.Log.Warn("verdict cache set failed", zap.String("sessionId", session.ID), zap.Error(err))
		}
	}
}
