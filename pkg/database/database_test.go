package database

import (
	"testing"

	"skillforge_backend/internal/config"
	"skillforge_backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestInitDBSeedsOnce(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}
	db, err := InitDB(cfg, true)
	require.NoError(t, err)

	require.NoError(t, SeedQuestionBank(db))

	var qs []model.BankQuestion
	require.NoError(t, db.Where("skill_name = ?", "python").Order("position").Find(&qs).Error)
	require.Len(t, qs, 2)
	assert.Equal(t, 1, qs[0].Position)
	assert.Equal(t, []string{"int", "float", "str", "list"}, qs[0].Options)
	assert.Equal(t, 1, qs[0].CorrectIndex)

	var total int64
	require.NoError(t, db.Model(&model.BankQuestion{}).Count(&total).Error)
	assert.EqualValues(t, 6, total)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"}, gormlogger.Silent)
	assert.Error(t, err)
}
