package service

import (
	"sync"
	"testing"
	"time"

	"skillforge_backend/internal/config"
	"skillforge_backend/internal/model"
	"skillforge_backend/internal/repository"
	"skillforge_backend/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	db          *gorm.DB
	cfg         *config.Config
	clock       *fakeClock
	questions   *repository.QuestionRepository
	sessions    *repository.AssessmentRepository
	telemetry   *repository.TelemetryRepository
	verdicts    *repository.VerdictRepository
	badgeRepo   *repository.BadgeRepository
	bank        *CachedQuestionBank
	locks       *SessionLocks
	integrity   *IntegrityService
	assessments *AssessmentService
	badges      *BadgeService
	storage     *StorageService
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Mode: "test", LockTimeout: 5 * time.Second},
		JWT:     config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", ExpireTime: time.Hour},
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		Scoring: config.ScoringConfig{PassThreshold: 50, PlausibilityThreshold: 0.5, ScoreCap: 40},
		Badge:   config.BadgeConfig{IntegrityThreshold: 0.6, Issuer: "skillforge-test", NodeID: 1},
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedQuestionBank(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig(t)
	db := openTestDB(t)
	e := &testEnv{
		db:        db,
		cfg:       cfg,
		clock:     newFakeClock(),
		questions: repository.NewQuestionRepository(db),
		sessions:  repository.NewAssessmentRepository(db),
		telemetry: repository.NewTelemetryRepository(db),
		verdicts:  repository.NewVerdictRepository(db),
		badgeRepo: repository.NewBadgeRepository(db),
		locks:     NewSessionLocks(cfg.Server.LockTimeout),
	}
	e.bank = NewCachedQuestionBank(e.questions, time.Minute)
	e.integrity = NewIntegrityService(db, e.sessions, e.telemetry, e.verdicts,
		NewVerdictCache(nil, 0), NewAlertPublisher(nil), e.locks, IntegrityConfigFrom(cfg))
	e.integrity.Now = e.clock.Now
	e.assessments = NewAssessmentService(db, e.sessions, e.bank, e.integrity, e.locks, cfg)
	e.assessments.Now = e.clock.Now
	e.storage = NewStorageService(cfg)
	e.storage.Now = e.clock.Now

	badges, err := NewBadgeService(e.badgeRepo, e.sessions, e.telemetry, e.verdicts, e.storage, e.locks, cfg)
	require.NoError(t, err)
	badges.Now = e.clock.Now
	e.badges = badges
	return e
}

func (e *testEnv) correctIndex(t *testing.T, questionID uint) int {
	t.Helper()
	qs, err := e.questions.FindByIDs([]uint{questionID})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	return qs[0].CorrectIndex
}

func (e *testEnv) wrongIndex(t *testing.T, questionID uint) int {
	return (e.correctIndex(t, questionID) + 1) % 4
}

// answerAll answers every remaining question, pausing think between them.
func (e *testEnv) answerAll(t *testing.T, userID string, view *SessionView, correct []bool, think time.Duration) *SessionView {
	t.Helper()
	for i := 0; view.NextQuestion != nil; i++ {
		require.Less(t, i, len(correct), "more questions than answers")
		e.clock.Advance(think)
		qid := view.NextQuestion.ID
		idx := e.wrongIndex(t, qid)
		if correct[i] {
			idx = e.correctIndex(t, qid)
		}
		var err error
		view, err = e.assessments.SubmitAnswer(testCtx(), userID, view.ID, qid, idx)
		require.NoError(t, err)
	}
	return view
}

func (e *testEnv) session(t *testing.T, id string) *model.AssessmentSession {
	t.Helper()
	s, err := e.sessions.FindSession(id)
	require.NoError(t, err)
	return s
}
