package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"skillforge_backend/internal/config"
	"skillforge_backend/internal/model"
	"skillforge_backend/internal/repository"
	"skillforge_backend/internal/scoring"
	"skillforge_backend/internal/util"
	"skillforge_backend/pkg/logger"
	"skillforge_backend/pkg/monitoring"
	"skillforge_backend/pkg/tracing"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuestionView is a question as shown to the candidate, without its answer.
type QuestionView struct {
	ID           uint     `json:"id"`
	QuestionText string   `json:"questionText"`
	Options      []string `json:"options"`
	Position     int      `json:"position"`
}

// SessionView is the client-facing state of a session.
type SessionView struct {
	ID           string              `json:"id"`
	Status       model.SessionStatus `json:"status"`
	SkillName    string              `json:"skillName"`
	NextQuestion *QuestionView       `json:"nextQuestion,omitempty"`
	Score        *int                `json:"score,omitempty"`
	Level        string              `json:"level,omitempty"`
	Answered     int                 `json:"answered"`
	Total        int                 `json:"total"`
}

// AssessmentService drives the session state machine.
type AssessmentService struct {
	DB        *gorm.DB
	Repo      *repository.AssessmentRepository
	Bank      QuestionBank
	Integrity *IntegrityService
	Locks     *SessionLocks
	Scoring   scoring.Config
	// MaxQuestions truncates the bank order; 0 administers every question.
	MaxQuestions int
	Now          Clock
}

func NewAssessmentService(
	db *gorm.DB,
	repo *repository.AssessmentRepository,
	bank QuestionBank,
	integritySvc *IntegrityService,
	locks *SessionLocks,
	cfg *config.Config,
) *AssessmentService {
	return &AssessmentService{
		DB:           db,
		Repo:         repo,
		Bank:         bank,
		Integrity:    integritySvc,
		Locks:        locks,
		Scoring:      ScoringConfigFrom(cfg),
		MaxQuestions: cfg.Assessment.QuestionsPerSession,
		Now:          systemClock,
	}
}

func normalizeSkill(skill string) string {
	return strings.ToLower(strings.TrimSpace(skill))
}

func (s *AssessmentService) StartSession(ctx context.Context, userID, skillName string) (*SessionView, error) {
	ctx, span := tracing.Tracer().Start(ctx, "AssessmentService.StartSession")
	defer span.End()

	skill := normalizeSkill(skillName)
	span.SetAttributes(attribute.String("skill", skill))
	if skill == "" {
		return nil, util.ErrUnknownSkill
	}

	questions, err := s.Bank.Questions(ctx, skill)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrUnknownSkill
	}
	if s.MaxQuestions > 0 && len(questions) > s.MaxQuestions {
		questions = questions[:s.MaxQuestions]
	}

	now := s.Now()
	session := &model.AssessmentSession{
		UserID:        userID,
		SkillName:     skill,
		Status:        model.SessionCreated,
		QuestionCount: len(questions),
		StartedAt:     now,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		if err := repo.CreateSession(session); err != nil {
			return errors.Wrap(err, "create session")
		}

		items := make([]model.AssessmentItem, 0, len(questions))
		for i, q := range questions {
			items = append(items, model.AssessmentItem{
				SessionID:  session.ID,
				QuestionID: q.ID,
				Position:   i + 1,
			})
		}
		items[0].IssuedAt = &now
		if err := repo.CreateItems(items); err != nil {
			return errors.Wrap(err, "create items")
		}

		first := questions[0].ID
		session.CurrentQuestionID = &first
		session.CurrentIssuedAt = &now
		return s.transition(repo, session, model.SessionAwaitingAnswer)
	})
	if err != nil {
		return nil, err
	}

	monitoring.SessionsStarted.WithLabelValues(skill).Inc()
	logger.Log.Info("assessment session started",
		zap.String("sessionId", session.ID),
		zap.String("userId", userID),
		zap.String("skill", skill),
		zap.Int("questions", len(questions)))

	return s.view(session, &questions[0], 1), nil
}

func (s *AssessmentService) SubmitAnswer(ctx context.Context, userID, sessionID string, questionID uint, answerIndex int) (*SessionView, error) {
	ctx, span := tracing.Tracer().Start(ctx, "AssessmentService.SubmitAnswer")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	unlock, err := s.Locks.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.ownedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionComplete {
		return nil, errors.Wrap(util.ErrStaleQuestion, "session already complete")
	}
	if session.Status != model.SessionAwaitingAnswer || session.CurrentQuestionID == nil || *session.CurrentQuestionID != questionID {
		return nil, util.ErrStaleQuestion
	}

	items, err := s.Repo.ListItems(session.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load items")
	}
	cur := -1
	for i := range items {
		if items[i].QuestionID == questionID {
			cur = i
			break
		}
	}
	if cur < 0 || items[cur].Answered() {
		return nil, util.ErrStaleQuestion
	}
	var next *model.AssessmentItem
	if cur+1 < len(items) {
		next = &items[cur+1]
	}

	// the bank is read before the transaction opens
	ids := []uint{questionID}
	if next != nil {
		ids = append(ids, next.QuestionID)
	}
	bank, err := s.Bank.Lookup(ctx, ids...)
	if err != nil {
		return nil, err
	}
	question, ok := bank[questionID]
	if !ok {
		return nil, errors.Wrapf(util.ErrQuestionBankUnavailable, "question %d missing", questionID)
	}
	if !question.ValidIndex(answerIndex) {
		return nil, util.ErrInvalidAnswer
	}
	var nextQuestion *model.BankQuestion
	if next != nil {
		q, ok := bank[next.QuestionID]
		if !ok {
			return nil, errors.Wrapf(util.ErrQuestionBankUnavailable, "question %d missing", next.QuestionID)
		}
		nextQuestion = &q
	}

	now := s.Now()
	item := items[cur]
	correct := answerIndex == question.CorrectIndex
	var eval *evaluation
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		trust, err := s.Integrity.currentTrust(tx, session.ID)
		if err != nil {
			return err
		}
		issuedAt := session.StartedAt
		if item.IssuedAt != nil {
			issuedAt = *item.IssuedAt
		}
		latency := now.Sub(issuedAt)
		if latency < 0 {
			latency = 0
		}
		item.AnswerIndex = &answerIndex
		item.SubmittedAt = &now
		item.LatencyMs = latency.Milliseconds()
		item.Correct = correct
		item.TrustAtSubmission = trust
		if err := repo.UpdateItem(&item); err != nil {
			return errors.Wrap(err, "record answer")
		}
		items[cur] = item

		eval, err = s.Integrity.evaluate(tx, session.ID, 0)
		if err != nil {
			return err
		}

		session.AnsweredCount++
		if next != nil {
			next.IssuedAt = &now
			if err := repo.UpdateItem(next); err != nil {
				return errors.Wrap(err, "issue next question")
			}
			session.CurrentQuestionID = &next.QuestionID
			session.CurrentIssuedAt = &now
			return s.transition(repo, session, model.SessionAwaitingAnswer)
		}
		return s.finalize(repo, session, items, eval.verdict.TrustScore, now)
	})
	if err != nil {
		return nil, err
	}

	monitoring.AnswersSubmitted.WithLabelValues(strconv.FormatBool(correct)).Inc()
	s.Integrity.publish(ctx, session, eval)
	if session.Status == model.SessionComplete {
		monitoring.SessionsCompleted.WithLabelValues(session.SkillName, session.Level).Inc()
		logger.Log.Info("assessment session completed",
			zap.String("sessionId", session.ID),
			zap.Int("score", *session.Score),
			zap.String("level", session.Level),
			zap.Float64("trust", *session.FinalTrustScore))
	}
	return s.view(session, nextQuestion, session.AnsweredCount+1), nil
}

// finalize materializes the score from every answered item.
func (s *AssessmentService) finalize(repo *repository.AssessmentRepository, session *model.AssessmentSession, items []model.AssessmentItem, trust float64, now time.Time) error {
	outcomes := make([]scoring.Outcome, 0, len(items))
	for _, it := range items {
		outcomes = append(outcomes, scoring.Outcome{
			QuestionID:        it.QuestionID,
			Correct:           it.Answered() && it.Correct,
			LatencyMs:         it.LatencyMs,
			TrustAtSubmission: it.TrustAtSubmission,
		})
	}
	res := scoring.Score(s.Scoring, outcomes, trust)

	session.Score = &res.Score
	session.Level = string(res.Level)
	session.FinalTrustScore = &trust
	session.CompletedAt = &now
	session.CurrentQuestionID = nil
	session.CurrentIssuedAt = nil
	return s.transition(repo, session, model.SessionComplete)
}

func (s *AssessmentService) transition(repo *repository.AssessmentRepository, session *model.AssessmentSession, next model.SessionStatus) error {
	if !session.Status.CanMoveTo(next) {
		return errors.Errorf("illegal transition %s -> %s", session.Status, next)
	}
	session.Status = next
	if err := repo.UpdateSession(session); err != nil {
		return errors.Wrap(err, "update session")
	}
	return nil
}

func (s *AssessmentService) GetState(ctx context.Context, userID, sessionID string) (*SessionView, error) {
	ctx, span := tracing.Tracer().Start(ctx, "AssessmentService.GetState")
	defer span.End()

	session, err := s.ownedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionAwaitingAnswer || session.CurrentQuestionID == nil {
		return s.view(session, nil, 0), nil
	}
	bank, err := s.Bank.Lookup(ctx, *session.CurrentQuestionID)
	if err != nil {
		return nil, err
	}
	q, ok := bank[*session.CurrentQuestionID]
	if !ok {
		return nil, errors.Wrapf(util.ErrQuestionBankUnavailable, "question %d missing", *session.CurrentQuestionID)
	}
	return s.view(session, &q, session.AnsweredCount+1), nil
}

func (s *AssessmentService) ownedSession(userID, sessionID string) (*model.AssessmentSession, error) {
	session, err := s.Repo.FindSession(sessionID)
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

func (s *AssessmentService) view(session *model.AssessmentSession, next *model.BankQuestion, position int) *SessionView {
	v := &SessionView{
		ID:        session.ID,
		Status:    session.Status,
		SkillName: session.SkillName,
		Score:     session.Score,
		Level:     session.Level,
		Answered:  session.AnsweredCount,
		Total:     session.QuestionCount,
	}
	if next != nil && session.Status == model.SessionAwaitingAnswer {
		v.NextQuestion = &QuestionView{
			ID:           next.ID,
			QuestionText: next.Text,
			Options:      append([]string(nil), next.Options...),
			Position:     position,
		}
	}
	return v
}
