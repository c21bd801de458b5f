package tag

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
		&database.User{}, &database.File{}, &database.Tag{}, &database.FileTag{},
	))
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, name string) *database.User {
	t.Helper()
	user := &database.User{
		GithubID: "gh-" + name,
		Username: name,
		Role:     database.RoleUser,
		Status:   database.StatusActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTestFile(t *testing.T, db *gorm.DB, owner *database.User, fileID string) *database.File {
	t.Helper()
	record := &database.File{
		FileID:      fileID,
		UserID:      owner.ID,
		FileName:    fileID + ".md",
		DisplayName: fileID,
		ContentKind: database.KindMarkdown,
		ObjectKey:   "files/" + fileID,
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestCreate(t *testing.T) {
	db := newTestDB(t)
	owner := newTestUser(t, db, "alice")
	other := newTestUser(t, db, "bob")
	svc := NewService(db)

	created, err := svc.Create(owner, "  工作  ")
	require.NoError(t, err)
	assert.Equal(t, "工作", created.Name)

	t.Run("同名标签被拒绝", func(t *testing.T) {
		_, err := svc.Create(owner, "工作")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrTagAlreadyExists))
	})

	t.Run("不同用户可用同名", func(t *testing.T) {
		_, err := svc.Create(other, "工作")
		assert.NoError(t, err)
	})

	t.Run("空名被拒绝", func(t *testing.T) {
		_, err := svc.Create(owner, "   ")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidParams))
	})
}

func TestRenameAndDelete(t *testing.T) {
	db := newTestDB(t)
	owner := newTestUser(t, db, "carol")
	svc := NewService(db)

	first, err := svc.Create(owner, "阅读")
	require.NoError(t, err)
	second, err := svc.Create(owner, "归档")
	require.NoError(t, err)

	t.Run("改名生效", func(t *testing.T) {
		renamed, err := svc.Rename(owner, first.ID, "精读")
		require.NoError(t, err)
		assert.Equal(t, "精读", renamed.Name)
	})

	t.Run("改名撞已有标签被拒绝", func(t *testing.T) {
		_, err := svc.Rename(owner, first.ID, "归档")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrTagAlreadyExists))
	})

	t.Run("删除标签清理关联", func(t *testing.T) {
		file := newTestFile(t, db, owner, "f-del")
		require.NoError(t, svc.Attach(owner, file.FileID, second.ID))

		require.NoError(t, svc.Delete(owner, second.ID))

		var joinCount int64
		db.Model(&database.FileTag{}).Where("tag_id = ?", second.ID).Count(&joinCount)
		assert.Zero(t, joinCount)
	})

	t.Run("删除不存在的标签报错", func(t *testing.T) {
		err := svc.Delete(owner, 9999)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrTagNotFound))
	})
}

func TestAttachDetach(t *testing.T) {
	db := newTestDB(t)
	owner := newTestUser(t, db, "dave")
	stranger := newTestUser(t, db, "eve")
	svc := NewService(db)

	file := newTestFile(t, db, owner, "f-tag")
	tag, err := svc.Create(owner, "项目")
	require.NoError(t, err)
	strangerTag, err := svc.Create(stranger, "项目")
	require.NoError(t, err)

	t.Run("关联成功且幂等", func(t *testing.T) {
		require.NoError(t, svc.Attach(owner, file.FileID, tag.ID))
		require.NoError(t, svc.Attach(owner, file.FileID, tag.ID))

		var count int64
		db.Model(&database.FileTag{}).Where("file_id = ? AND tag_id = ?", file.ID, tag.ID).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("跨用户标签被拒绝", func(t *testing.T) {
		err := svc.Attach(owner, file.FileID, strangerTag.ID)
		assert.Error(t, err)
	})

	t.Run("解除关联", func(t *testing.T) {
		require.NoError(t, svc.Detach(owner, file.FileID, tag.ID))

		var count int64
		db.Model(&database.FileTag{}).Where("file_id = ?", file.ID).Count(&count)
		assert.Zero(t, count)
	})
}

func TestList(t *testing.T) {
	db := newTestDB(t)
	owner := newTestUser(t, db, "frank")
	svc := NewService(db)

	tag, err := svc.Create(owner, "统计")
	require.NoError(t, err)
	file := newTestFile(t, db, owner, "f-list")
	require.NoError(t, svc.Attach(owner, file.FileID, tag.ID))

	tags, err := svc.List(owner)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "统计", tags[0].Name)
	assert.EqualValues(t, 1, tags[0].FileCount)
}
