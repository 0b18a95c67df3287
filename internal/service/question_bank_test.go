package service

import (
	"sync"
	"testing"
	"time"

	"skillforge_backend/internal/model"
	"skillforge_backend/internal/repository"
	"skillforge_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedQuestionBank(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewQuestionRepository(db)
	bank := NewCachedQuestionBank(repo, time.Hour)

	qs, err := bank.Questions(testCtx(), "python")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "#", qs[1].Options[qs[1].CorrectIndex])

	// a new question stays invisible until the cache is invalidated
	require.NoError(t, repo.Create(&model.BankQuestion{SkillName: "python", Position: 3, Text: "q3", Options: []string{"a", "b"}}))
	qs, err = bank.Questions(testCtx(), "python")
	require.NoError(t, err)
	assert.Len(t, qs, 2)

	bank.Invalidate()
	qs, err = bank.Questions(testCtx(), "python")
	require.NoError(t, err)
	assert.Len(t, qs, 3)

	// callers own the returned slice
	qs[0].Text = "mutated"
	again, err := bank.Questions(testCtx(), "python")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again[0].Text)

	found, err := bank.Lookup(testCtx(), qs[0].ID, 9999)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	empty, err := bank.Questions(testCtx(), "cobol")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCachedQuestionBankConcurrentLoads(t *testing.T) {
	db := openTestDB(t)
	bank := NewCachedQuestionBank(repository.NewQuestionRepository(db), time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			qs, err := bank.Questions(testCtx(), "sql")
			if assert.NoError(t, err) {
				assert.Len(t, qs, 2)
			}
		}()
	}
	wg.Wait()
}

func TestCachedQuestionBankUnavailable(t *testing.T) {
	db := openTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	bank := NewCachedQuestionBank(repository.NewQuestionRepository(db), time.Hour)
	_, err = bank.Questions(testCtx(), "python")
	assert.ErrorIs(t, err, util.ErrQuestionBankUnavailable)
	_, err = bank.Skills(testCtx())
	assert.ErrorIs(t, err, util.ErrDependencyUnavailable)
}
