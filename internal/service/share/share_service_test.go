package share

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/weiwangfds/snapshare/internal/database"
	apperrors "github.com/weiwangfds/snapshare/internal/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&database.User{}, &database.File{}, &database.Share{},
	))
	return db
}

func newFixture(t *testing.T) (Service, *gorm.DB, *database.User, *database.File) {
	t.Helper()
	db := newTestDB(t)

	owner := &database.User{
		GithubID: "gh-share",
		Username: "sharer",
		Role:     database.RoleUser,
		Status:   database.StatusActive,
	}
	require.NoError(t, db.Create(owner).Error)

	file := &database.File{
		FileID:      "file-1",
		UserID:      owner.ID,
		FileName:    "doc.md",
		DisplayName: "文档",
		ContentKind: database.KindMarkdown,
		ObjectKey:   "files/1/file-1.md",
	}
	require.NoError(t, db.Create(file).Error)

	return NewService(db), db, owner, file
}

func TestEnableDisable(t *testing.T) {
	svc, _, owner, file := newFixture(t)

	record, err := svc.Enable(owner, file.FileID)
	require.NoError(t, err)
	require.NotEmpty(t, record.ShareID)
	assert.True(t, record.IsEnabled)
	originalShareID := record.ShareID

	t.Run("重复开启不换标识", func(t *testing.T) {
		again, err := svc.Enable(owner, file.FileID)
		require.NoError(t, err)
		assert.Equal(t, originalShareID, again.ShareID)
	})

	t.Run("关闭保留记录", func(t *testing.T) {
		disabled, err := svc.Disable(owner, file.FileID)
		require.NoError(t, err)
		assert.False(t, disabled.IsEnabled)
		assert.Equal(t, originalShareID, disabled.ShareID)
	})

	t.Run("重新开启沿用原标识", func(t *testing.T) {
		reEnabled, err := svc.Enable(owner, file.FileID)
		require.NoError(t, err)
		assert.True(t, reEnabled.IsEnabled)
		assert.Equal(t, originalShareID, reEnabled.ShareID)
	})
}

func TestResolve(t *testing.T) {
	svc, _, owner, file := newFixture(t)

	record, err := svc.Enable(owner, file.FileID)
	require.NoError(t, err)

	t.Run("启用中的分享可解析", func(t *testing.T) {
		share, resolved, err := svc.Resolve(record.ShareID)
		require.NoError(t, err)
		assert.Equal(t, record.ShareID, share.ShareID)
		assert.Equal(t, file.FileID, resolved.FileID)
	})

	t.Run("禁用后解析失败", func(t *testing.T) {
		_, err := svc.Disable(owner, file.FileID)
		require.NoError(t, err)

		_, _, err = svc.Resolve(record.ShareID)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrShareNotFound))
	})

	t.Run("未知标识解析失败", func(t *testing.T) {
		_, _, err := svc.Resolve("no-such-share")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrShareNotFound))
	})
}

func TestRecordVisit(t *testing.T) {
	svc, db, owner, file := newFixture(t)

	record, err := svc.Enable(owner, file.FileID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RecordVisit(record.ShareID))
	}

	var stored database.Share
	require.NoError(t, db.Where("share_id = ?", record.ShareID).First(&stored).Error)
	assert.EqualValues(t, 3, stored.VisitCount)
}

func TestGetByFileID(t *testing.T) {
	svc, _, owner, file := newFixture(t)

	t.Run("未分享时返回空", func(t *testing.T) {
		record, err := svc.GetByFileID(owner, file.FileID)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("文件不存在时报错", func(t *testing.T) {
		_, err := svc.GetByFileID(owner, "missing")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrFileNotFound))
	})
}
