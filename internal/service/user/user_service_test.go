package user

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
	require.NoError(t, db.AutoMigrate(&database.User{}))
	return db
}

func TestGetOrCreate(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, []string{"Boss"}, 0)

	t.Run("新用户默认待审核", func(t *testing.T) {
		record, err := svc.GetOrCreate("1001", "newbie", "")
		require.NoError(t, err)
		assert.Equal(t, database.RoleUser, record.Role)
		assert.Equal(t, database.StatusPending, record.Status)
	})

	t.Run("名单内用户直接成为管理员", func(t *testing.T) {
		record, err := svc.GetOrCreate("1002", "boss", "")
		require.NoError(t, err)
		assert.Equal(t, database.RoleAdmin, record.Role)
		assert.Equal(t, database.StatusActive, record.Status)
	})

	t.Run("重复调用返回同一用户", func(t *testing.T) {
		first, err := svc.GetOrCreate("1003", "repeat", "")
		require.NoError(t, err)
		second, err := svc.GetOrCreate("1003", "repeat", "")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		var count int64
		db.Model(&database.User{}).Count(&count)
		assert.EqualValues(t, 3, count)
	})

	t.Run("已有用户进入名单后补授管理员", func(t *testing.T) {
		plain := NewService(db, nil, 0)
		record, err := plain.GetOrCreate("1004", "later", "")
		require.NoError(t, err)
		assert.Equal(t, database.RoleUser, record.Role)

		promoted := NewService(db, []string{"later"}, 0)
		record, err = promoted.GetOrCreate("1004", "later", "")
		require.NoError(t, err)
		assert.Equal(t, database.RoleAdmin, record.Role)
		assert.Equal(t, database.StatusActive, record.Status)
	})

	t.Run("缺少标识被拒绝", func(t *testing.T) {
		_, err := svc.GetOrCreate("", "x", "")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidParams))
	})

	t.Run("新用户套用配置的默认配额", func(t *testing.T) {
		quotaed := NewService(db, nil, 5<<20)
		record, err := quotaed.GetOrCreate("1005", "quotauser", "")
		require.NoError(t, err)
		assert.EqualValues(t, 5<<20, record.StorageLimit)

		var stored database.User
		require.NoError(t, db.First(&stored, record.ID).Error)
		assert.EqualValues(t, 5<<20, stored.StorageLimit)
	})
}

func TestSetStatus(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, 0)

	record, err := svc.GetOrCreate("2001", "target", "")
	require.NoError(t, err)

	t.Run("状态切换生效", func(t *testing.T) {
		updated, err := svc.SetStatus(record.ID, database.StatusActive)
		require.NoError(t, err)
		assert.Equal(t, database.StatusActive, updated.Status)
	})

	t.Run("非法状态被拒绝", func(t *testing.T) {
		_, err := svc.SetStatus(record.ID, "banned")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidParams))
	})

	t.Run("用户不存在时报错", func(t *testing.T) {
		_, err := svc.SetStatus(9999, database.StatusActive)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrRecordNotFound))
	})
}

func TestSetQuota(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, 0)

	record, err := svc.GetOrCreate("3001", "quota", "")
	require.NoError(t, err)

	updated, err := svc.SetQuota(record.ID, 5<<20)
	require.NoError(t, err)
	assert.EqualValues(t, 5<<20, updated.StorageLimit)

	_, err = svc.SetQuota(record.ID, 0)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidParams))
}

func TestList(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, []string{"root"}, 0)

	_, err := svc.GetOrCreate("4001", "root", "")
	require.NoError(t, err)
	_, err = svc.GetOrCreate("4002", "member", "")
	require.NoError(t, err)

	t.Run("按角色过滤", func(t *testing.T) {
		users, total, err := svc.List(ListOptions{Role: database.RoleAdmin})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, users, 1)
		assert.Equal(t, "root", users[0].Username)
	})

	t.Run("按用户名搜索", func(t *testing.T) {
		users, total, err := svc.List(ListOptions{Search: "MEM"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, users, 1)
		assert.Equal(t, "member", users[0].Username)
	})
}
