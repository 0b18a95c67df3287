package service

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"skillforge_backend/internal/model"
	"skillforge_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) completeSession(t *testing.T, userID string, correct ...bool) *SessionView {
	t.Helper()
	view, err := e.assessments.StartSession(testCtx(), userID, "python")
	require.NoError(t, err)
	require.Equal(t, 2, view.Total)
	view = e.answerAll(t, userID, view, correct, 5*time.Second)
	require.Equal(t, model.SessionComplete, view.Status)
	return view
}

func TestCleanPerfectRunEarnsExpertBadge(t *testing.T) {
	e := newTestEnv(t)
	view := e.completeSession(t, "u1", true, true)
	assert.Equal(t, 100, *view.Score)
	assert.Equal(t, "Expert", view.Level)

	badge, err := e.badges.IssueBadge(testCtx(), "u1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, "Expert", badge.SkillLevel)
	assert.Equal(t, "python", badge.SkillName)
	assert.Equal(t, view.ID, badge.SessionID)
	assert.Equal(t, 100, badge.Score)
	assert.NotEmpty(t, badge.Serial)

	claims, err := e.badges.VerifyCredential(badge.Credential)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "Expert", claims.Level)
	assert.Equal(t, badge.Serial, claims.ID)
	assert.Equal(t, view.ID, claims.SessionID)
}

func TestSuspiciousTelemetryBlocksBadgeDespitePerfectScore(t *testing.T) {
	e := newTestEnv(t)
	view := e.completeSession(t, "u1", true, true)
	require.Equal(t, 100, *view.Score)

	start := e.session(t, view.ID).StartedAt
	_, err := e.integrity.IngestBatch(testCtx(), "u1", view.ID, suspiciousBatch(start.Add(time.Second)))
	require.NoError(t, err)

	v, err := e.integrity.GetVerdict(testCtx(), view.ID)
	require.NoError(t, err)
	assert.Less(t, v.TrustScore, e.cfg.Badge.IntegrityThreshold)

	_, err = e.badges.IssueBadge(testCtx(), "u1", view.ID)
	assert.ErrorIs(t, err, util.ErrIntegrityCheckFailed)
	assert.ErrorIs(t, err, util.ErrIntegrityFailure)
	assert.NotErrorIs(t, err, util.ErrAssessmentNotPassed)
	assert.Equal(t, 100, *e.session(t, view.ID).Score)

	// the evidence bundle is archived and linked from the verdict
	stored, err := e.verdicts.Find(view.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stored.EvidenceURL, "file://"), stored.EvidenceURL)
	data, err := os.ReadFile(strings.TrimPrefix(stored.EvidenceURL, "file://"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "paste_with_rapid_answer")

	badges, err := e.badges.ListBadges(testCtx(), "u1")
	require.NoError(t, err)
	assert.Empty(t, badges)
}

func TestTelemetryStreamedDuringSessionFailsIntegrity(t *testing.T) {
	e := newTestEnv(t)
	view, err := e.assessments.StartSession(testCtx(), "u1", "python")
	require.NoError(t, err)

	_, err = e.integrity.IngestBatch(testCtx(), "u1", view.ID, suspiciousBatch(e.clock.Now().Add(time.Second)))
	require.NoError(t, err)

	view = e.answerAll(t, "u1", view, []bool{true, true}, 5*time.Second)
	require.Equal(t, model.SessionComplete, view.Status)
	// low trust weights and caps the score below the pass mark
	require.Equal(t, 20, *view.Score)

	_, err = e.badges.IssueBadge(testCtx(), "u1", view.ID)
	require.ErrorIs(t, err, util.ErrIntegrityCheckFailed)
	assert.ErrorIs(t, err, util.ErrIntegrityFailure)
	assert.NotErrorIs(t, err, util.ErrAssessmentNotPassed)

	stored, err := e.verdicts.Find(view.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.EvidenceURL)
}

func TestTelemetryBetweenAnswersFailsIntegrity(t *testing.T) {
	e := newTestEnv(t)
	view, err := e.assessments.StartSession(testCtx(), "u1", "python")
	require.NoError(t, err)

	e.clock.Advance(5 * time.Second)
	qid := view.NextQuestion.ID
	view, err = e.assessments.SubmitAnswer(testCtx(), "u1", view.ID, qid, e.correctIndex(t, qid))
	require.NoError(t, err)

	_, err = e.integrity.IngestBatch(testCtx(), "u1", view.ID, suspiciousBatch(e.clock.Now().Add(time.Second)))
	require.NoError(t, err)

	view = e.answerAll(t, "u1", view, []bool{true}, 5*time.Second)
	require.Equal(t, model.SessionComplete, view.Status)

	_, err = e.badges.IssueBadge(testCtx(), "u1", view.ID)
	assert.ErrorIs(t, err, util.ErrIntegrityCheckFailed)
}

func TestHalfCorrectEarnsWorkingBadge(t *testing.T) {
	e := newTestEnv(t)
	view := e.completeSession(t, "u1", true, false)
	assert.Equal(t, 50, *view.Score)
	assert.Equal(t, "Working", view.Level)

	badge, err := e.badges.IssueBadge(testCtx(), "u1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, "Working", badge.SkillLevel)
}

func TestNoCorrectAnswersIsNotPassed(t *testing.T) {
	e := newTestEnv(t)
	view := e.completeSession(t, "u1", false, false)
	assert.Equal(t, 0, *view.Score)

	_, err := e.badges.IssueBadge(testCtx(), "u1", view.ID)
	assert.ErrorIs(t, err, util.ErrAssessmentNotPassed)
	assert.ErrorIs(t, err, util.ErrStateConflict)
	assert.NotErrorIs(t, err, util.ErrIntegrityFailure)
}

func TestIssueBadgeRequiresCompleteOwnedSession(t *testing.T) {
	e := newTestEnv(t)
	view, err := e.assessments.StartSession(testCtx(), "u1", "python")
	require.NoError(t, err)

	_, err = e.badges.IssueBadge(testCtx(), "u1", view.ID)
	assert.ErrorIs(t, err, util.ErrSessionNotComplete)

	_, err = e.badges.IssueBadge(testCtx(), "u2", view.ID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)

	_, err = e.badges.IssueBadge(testCtx(), "u1", "missing")
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestIssueBadgeIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	view := e.completeSession(t, "u1", true, true)

	first, err := e.badges.IssueBadge(testCtx(), "u1", view.ID)
	require.NoError(t, err)
	e.clock.Advance(time.Hour)
	second, err := e.badges.IssueBadge(testCtx(), "u1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// late suspicious telemetry does not revoke an issued badge
	_, err = e.integrity.IngestBatch(testCtx(), "u1", view.ID, suspiciousBatch(e.clock.Now()))
	require.NoError(t, err)
	third, err := e.badges.IssueBadge(testCtx(), "u1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, first, third)

	var count int64
	require.NoError(t, e.db.Model(&model.Badge{}).Where("session_id = ?", view.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestConcurrentIssueMintsOnce(t *testing.T) {
	e := newTestEnv(t)
	view := e.completeSession(t, "u1", true, true)

	const n = 6
	results := make([]*model.Badge, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := e.badges.IssueBadge(testCtx(), "u1", view.ID)
			if assert.NoError(t, err) {
				results[i] = b
			}
		}(i)
	}
	wg.Wait()
	for _, b := range results[1:] {
		assert.Equal(t, results[0], b)
	}
}

func TestListBadgesNewestFirst(t *testing.T) {
	e := newTestEnv(t)
	a := e.completeSession(t, "u1", true, true)
	_, err := e.badges.IssueBadge(testCtx(), "u1", a.ID)
	require.NoError(t, err)

	e.clock.Advance(time.Hour)
	b := e.completeSession(t, "u1", true, false)
	_, err = e.badges.IssueBadge(testCtx(), "u1", b.ID)
	require.NoError(t, err)

	badges, err := e.badges.ListBadges(testCtx(), "u1")
	require.NoError(t, err)
	require.Len(t, badges, 2)
	assert.Equal(t, b.ID, badges[0].SessionID)
	assert.Equal(t, a.ID, badges[1].SessionID)

	others, err := e.badges.ListBadges(testCtx(), "u2")
	require.NoError(t, err)
	assert.Empty(t, others)
}
