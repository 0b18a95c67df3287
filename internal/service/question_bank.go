package service

import (
	"context"
	"sync"
	"time"

	"skillforge_backend/internal/model"
	"skillforge_backend/internal/repository"
	"skillforge_backend/internal/util"
	"skillforge_backend/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -source=./question_bank.go -package=mocks -destination=./mocks/question_bank.mock.go QuestionBank

// QuestionBank is the read side of the versioned question store.
type QuestionBank interface {
	// Questions returns a skill's active questions in administration order.
	Questions(ctx context.Context, skill string) ([]model.BankQuestion, error)
	// Lookup resolves questions by id, including retired ones.
	Lookup(ctx context.Context, ids ...uint) (map[uint]model.BankQuestion, error)
	Skills(ctx context.Context) ([]model.SkillSummary, error)
}

type bankEntry struct {
	questions []model.BankQuestion
	loadedAt  time.Time
}

// CachedQuestionBank keeps per-skill question lists in memory. Concurrent
// misses for the same skill share one database load.
type CachedQuestionBank struct {
	repo  *repository.QuestionRepository
	ttl   time.Duration
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]bankEntry
}

func NewCachedQuestionBank(repo *repository.QuestionRepository, ttl time.Duration) *CachedQuestionBank {
	return &CachedQuestionBank{repo: repo, ttl: ttl, cache: make(map[string]bankEntry)}
}

func (b *CachedQuestionBank) Questions(ctx context.Context, skill string) ([]model.BankQuestion, error) {
	b.mu.RLock()
	e, ok := b.cache[skill]
	b.mu.RUnlock()
	if ok && (b.ttl <= 0 || time.Since(e.loadedAt) < b.ttl) {
		return cloneQuestions(e.questions), nil
	}

	v, err, _ := b.group.Do(skill, func() (interface{}, error) {
		qs, err := b.repo.ListBySkill(skill)
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		b.cache[skill] = bankEntry{questions: qs, loadedAt: time.Now()}
		b.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		logger.Log.Error("question bank load failed", zap.String("skill", skill), zap.Error(err))
		return nil, errors.Wrap(util.ErrQuestionBankUnavailable, err.Error())
	}
	return cloneQuestions(v.([]model.BankQuestion)), nil
}

func (b *CachedQuestionBank) Lookup(ctx context.Context, ids ...uint) (map[uint]model.BankQuestion, error) {
	qs, err := b.repo.FindByIDs(ids)
	if err != nil {
		return nil, errors.Wrap(util.ErrQuestionBankUnavailable, err.Error())
	}
	res := make(map[uint]model.BankQuestion, len(qs))
	for _, q := range qs {
		res[q.ID] = q
	}
	return res, nil
}

func (b *CachedQuestionBank) Skills(ctx context.Context) ([]model.SkillSummary, error) {
	skills, err := b.repo.ListSkills()
	if err != nil {
		return nil, errors.Wrap(util.ErrQuestionBankUnavailable, err.Error())
	}
	return skills, nil
}

// Invalidate drops every cached skill.
func (b *CachedQuestionBank) Invalidate() {
	b.mu.Lock()
	b.cache = make(map[string]bankEntry)
	b.mu.Unlock()
}

func cloneQuestions(qs []model.BankQuestion) []model.BankQuestion {
	res := make([]model.BankQuestion, len(qs))
	copy(res, qs)
	return res
}
