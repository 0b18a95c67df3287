package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skillforge_backend/internal/config"
	"skillforge_backend/internal/model"
	"skillforge_backend/internal/util"
	"skillforge_backend/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
	Data    json.RawMessage `json:"data"`
}

type sessionState struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	NextQuestion *struct {
		ID uint `json:"id"`
	} `json:"nextQuestion"`
	Score *int   `json:"score"`
	Level string `json:"level"`
}

type RouterSuite struct {
	suite.Suite
	app *App
}

func (s *RouterSuite) SetupTest() {
	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: "test", LockTimeout: 5 * time.Second},
		JWT:       config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour},
		Storage:   config.StorageConfig{Type: "local", LocalPath: s.T().TempDir()},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, TelemetryMaxRequests: 10000, WindowMinutes: 1},
		Scoring:   config.ScoringConfig{PassThreshold: 50, PlausibilityThreshold: 0.5, ScoreCap: 40},
		Badge:     config.BadgeConfig{IntegrityThreshold: 0.6, Issuer: "skillforge-test", NodeID: 1},
	}
	db, err := database.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, gormlogger.Silent)
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(db))
	s.Require().NoError(database.SeedQuestionBank(db))

	s.app, err = Build(cfg, db, nil)
	s.Require().NoError(err)
}

func (s *RouterSuite) token(userID string, role model.UserRole) string {
	tok, err := util.GenerateJWT(userID, role, testSecret, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (s *RouterSuite) correctIndex(questionID uint) int {
	var q model.BankQuestion
	s.Require().NoError(s.app.DB.First(&q, questionID).Error)
	return q.CorrectIndex
}

func (s *RouterSuite) TestHealthAndSkillsArePublic() {
	w, env := s.do(http.MethodGet, "/api/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(string(env.Data), `"redis":"disabled"`)

	w, env = s.do(http.MethodGet, "/api/skills/available", "", nil)
	s.Equal(http.StatusOK, w.Code)
	var skills []model.SkillSummary
	s.Require().NoError(json.Unmarshal(env.Data, &skills))
	s.Len(skills, 3)
}

func (s *RouterSuite) TestAssessmentRequiresToken() {
	w, _ := s.do(http.MethodPost, "/api/assessments", "", map[string]string{"skillName": "python"})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RouterSuite) TestFullFlowIssuesBadge() {
	tok := s.token("u-1", model.Candidate)

	w, env := s.do(http.MethodPost, "/api/assessments", tok, map[string]string{"skillName": "JavaScript"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var state sessionState
	s.Require().NoError(json.Unmarshal(env.Data, &state))
	s.Equal("awaiting_answer", state.Status)
	s.Require().NotNil(state.NextQuestion)

	for state.NextQuestion != nil {
		qid := state.NextQuestion.ID
		w, env = s.do(http.MethodPost, "/api/assessments/"+state.ID+"/response", tok,
			map[string]interface{}{"questionId": qid, "answerIndex": s.correctIndex(qid)})
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		s.Require().NoError(json.Unmarshal(env.Data, &state))
	}
	s.Equal("complete", state.Status)
	s.Require().NotNil(state.Score)
	s.Equal(100, *state.Score)

	w, env = s.do(http.MethodPost, "/api/badges/issue", tok, map[string]string{"sessionId": state.ID})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var badge model.Badge
	s.Require().NoError(json.Unmarshal(env.Data, &badge))
	s.Equal("javascript", badge.SkillName)
	s.NotEmpty(badge.Credential)

	// 重复颁发返回同一枚徽章
	w, env = s.do(http.MethodPost, "/api/badges/issue", tok, map[string]string{"sessionId": state.ID})
	s.Require().Equal(http.StatusCreated, w.Code)
	var again model.Badge
	s.Require().NoError(json.Unmarshal(env.Data, &again))
	s.Equal(badge.Serial, again.Serial)

	w, env = s.do(http.MethodGet, "/api/badges", tok, nil)
	s.Equal(http.StatusOK, w.Code)
	var list []model.Badge
	s.Require().NoError(json.Unmarshal(env.Data, &list))
	s.Len(list, 1)
}

func (s *RouterSuite) TestSessionIsPrivate() {
	w, env := s.do(http.MethodPost, "/api/assessments", s.token("owner", model.Candidate), map[string]string{"skillName": "sql"})
	s.Require().Equal(http.StatusCreated, w.Code)
	var state sessionState
	s.Require().NoError(json.Unmarshal(env.Data, &state))

	w, env = s.do(http.MethodGet, "/api/assessments/"+state.ID, s.token("intruder", model.Candidate), nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("session_not_found", env.Reason)
}

func (s *RouterSuite) TestUnknownSkill() {
	w, env := s.do(http.MethodPost, "/api/assessments", s.token("u-1", model.Candidate), map[string]string{"skillName": "cobol"})
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("unknown_skill", env.Reason)
}

func (s *RouterSuite) TestIncompleteSessionCannotBeBadged() {
	tok := s.token("u-1", model.Candidate)
	_, env := s.do(http.MethodPost, "/api/assessments", tok, map[string]string{"skillName": "python"})
	var state sessionState
	s.Require().NoError(json.Unmarshal(env.Data, &state))

	w, env := s.do(http.MethodPost, "/api/badges/issue", tok, map[string]string{"sessionId": state.ID})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("session_not_complete", env.Reason)
}

func (s *RouterSuite) TestTelemetryAlwaysAccepted() {
	tok := s.token("u-1", model.Candidate)
	_, env := s.do(http.MethodPost, "/api/assessments", tok, map[string]string{"skillName": "python"})
	var state sessionState
	s.Require().NoError(json.Unmarshal(env.Data, &state))

	now := time.Now().UTC().Add(time.Second)
	batch := map[string]interface{}{
		"sessionId": state.ID,
		"events": []map[string]interface{}{
			{"eventId": "e1", "eventType": "devtools_open", "timestamp": now.Format(time.RFC3339Nano)},
			{"eventId": "e2", "eventType": "paste_action", "timestamp": now.UnixMilli()},
			{"eventId": "e3", "eventType": "not_a_type", "timestamp": now.UnixMilli()},
		},
	}
	w, env := s.do(http.MethodPost, "/api/v1/telemetry/ingest", tok, batch)
	s.Require().Equal(http.StatusAccepted, w.Code)
	s.JSONEq(`{"accepted":2,"discarded":1}`, string(env.Data))

	// 未知会话同样返回 202
	w, _ = s.do(http.MethodPost, "/api/v1/telemetry/ingest", tok, map[string]interface{}{"sessionId": uuid.NewString()})
	s.Equal(http.StatusAccepted, w.Code)

	// 管理员可查看判定
	w, env = s.do(http.MethodGet, "/api/admin/integrity/"+state.ID, s.token("ops", model.Admin), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var verdict model.IntegrityVerdict
	s.Require().NoError(json.Unmarshal(env.Data, &verdict))
	s.InDelta(0.6, verdict.TrustScore, 1e-9)

	w, _ = s.do(http.MethodGet, "/api/admin/integrity/"+state.ID, tok, nil)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *RouterSuite) TestMetricsEndpoint() {
	w, _ := s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, w.Code)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func TestRateWindowDefaultsToOneMinute(t *testing.T) {
	assert.Equal(t, time.Minute, rateWindow(&config.Config{}))
	require.Equal(t, 5*time.Minute, rateWindow(&config.Config{RateLimit: config.RateLimitConfig{WindowMinutes: 5}}))
}
