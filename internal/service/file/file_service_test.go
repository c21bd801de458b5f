package file

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/weiwangfds/snapshare/config"
	"github.com/weiwangfds/snapshare/internal/database"
	apperrors "github.com/weiwangfds/snapshare/internal/errors"
	"github.com/weiwangfds/snapshare/internal/logger"
	"github.com/weiwangfds/snapshare/internal/service/storage"
)

// newTestDB 创建内存数据库并迁移表结构
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&database.User{}, &database.File{}, &database.Tag{},
		&database.FileTag{}, &database.Share{},
	))
	return db
}

// stubConfigService 固定返回单个存储提供者的配置服务
type stubConfigService struct {
	storage.ConfigService
	provider storage.Provider
}

func (s *stubConfigService) ActiveProvider() (storage.Provider, error) {
	return s.provider, nil
}

// recordingIndexer 记录索引回调的调用
type recordingIndexer struct {
	mu      sync.Mutex
	indexed []string
	removed []string
}

func (r *recordingIndexer) IndexFile(_ context.Context, file *database.File) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, file.FileID)
}

func (r *recordingIndexer) RemoveFile(fileID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, fileID)
}

func newTestService(t *testing.T) (Service, *gorm.DB, storage.Provider, *recordingIndexer) {
	t.Helper()
	db := newTestDB(t)
	provider, err := storage.NewLocalProvider(&database.StorageConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	indexer := &recordingIndexer{}
	svc := NewService(db, &stubConfigService{provider: provider}, config.FileConfig{
		MaxFileSize:       1 << 20,
		AllowedExtensions: []string{".html", ".htm", ".md", ".markdown"},
	}, indexer)
	return svc, db, provider, indexer
}

func newTestUser(t *testing.T, db *gorm.DB, limit int64) *database.User {
	t.Helper()
	user := &database.User{
		GithubID:     "gh-" + t.Name(),
		Username:     "tester",
		Role:         database.RoleUser,
		Status:       database.StatusActive,
		StorageLimit: limit,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestUpload(t *testing.T) {
	t.Run("上传Markdown提取标题和正文", func(t *testing.T) {
		svc, db, provider, _ := newTestService(t)
		owner := newTestUser(t, db, 1<<20)

		content := "# 项目说明\n\n这是正文内容。"
		record, err := svc.Upload(context.Background(), owner, "readme.md",
			strings.NewReader(content), int64(len(content)))
		require.NoError(t, err)

		assert.Equal(t, "项目说明", record.DisplayName)
		assert.Equal(t, database.KindMarkdown, record.ContentKind)
		assert.Equal(t, "readme.md", record.FileName)
		assert.NotEmpty(t, record.SearchText)
		assert.Contains(t, record.ObjectKey, "files/")

		// 对象已写入存储
		exists, err := provider.Exists(record.ObjectKey)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("HTML无标题时展示名回退文件名", func(t *testing.T) {
		svc, db, _, _ := newTestService(t)
		owner := newTestUser(t, db, 1<<20)

		content := "<body>no title here</body>"
		record, err := svc.Upload(context.Background(), owner, "page.html",
			strings.NewReader(content), int64(len(content)))
		require.NoError(t, err)
		assert.Equal(t, "page", record.DisplayName)
	})

	t.Run("不支持的扩展名被拒绝", func(t *testing.T) {
		svc, db, _, _ := newTestService(t)
		owner := newTestUser(t, db, 1<<20)

		_, err := svc.Upload(context.Background(), owner, "binary.exe",
			strings.NewReader("x"), 1)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrFileTypeNotAllowed))
	})

	t.Run("超出大小限制被拒绝", func(t *testing.T) {
		svc, db, _, _ := newTestService(t)
		owner := newTestUser(t, db, 10<<20)

		_, err := svc.Upload(context.Background(), owner, "big.md",
			strings.NewReader("x"), 2<<20)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrFileSizeTooLarge))
	})

	t.Run("超出配额被拒绝且不写对象", func(t *testing.T) {
		svc, db, provider, _ := newTestService(t)
		owner := newTestUser(t, db, 10)

		_, err := svc.Upload(context.Background(), owner, "doc.md",
			strings.NewReader("# 超出配额的内容"), 100)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrQuotaExceeded))

		// 存储中没有残留对象
		page, err := provider.List("", "", 100)
		require.NoError(t, err)
		assert.Empty(t, page.Objects)

		var count int64
		db.Model(&database.File{}).Count(&count)
		assert.Zero(t, count)
	})
}

func TestGetAndContent(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	owner := newTestUser(t, db, 1<<20)
	other := newTestUser(t, db, 1<<20)

	content := "# Doc\n\nbody"
	record, err := svc.Upload(context.Background(), owner, "doc.md",
		strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	t.Run("所有者可读取内容", func(t *testing.T) {
		got, err := svc.GetByFileID(owner, record.FileID)
		require.NoError(t, err)

		data, err := svc.Content(got)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	})

	t.Run("其他用户不可见", func(t *testing.T) {
		_, err := svc.GetByFileID(other, record.FileID)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrFileNotFound))
	})
}

func TestDelete(t *testing.T) {
	svc, db, provider, indexer := newTestService(t)
	owner := newTestUser(t, db, 1<<20)

	content := "# ToDelete\n\nbody"
	record, err := svc.Upload(context.Background(), owner, "del.md",
		strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	// 挂一条分享记录，删除时应随行清理
	share := &database.Share{FileID: record.ID, ShareID: "share-del", IsEnabled: true}
	require.NoError(t, db.Create(share).Error)

	require.NoError(t, svc.Delete(context.Background(), owner, record.FileID))

	exists, err := provider.Exists(record.ObjectKey)
	require.NoError(t, err)
	assert.False(t, exists)

	var fileCount, shareCount int64
	db.Model(&database.File{}).Where("file_id = ?", record.FileID).Count(&fileCount)
	db.Unscoped().Model(&database.Share{}).Where("share_id = ?", "share-del").
		Where("deleted_at IS NULL").Count(&shareCount)
	assert.Zero(t, fileCount)
	assert.Zero(t, shareCount)

	indexer.mu.Lock()
	defer indexer.mu.Unlock()
	assert.Contains(t, indexer.removed, record.FileID)
}

func TestRenameAndDescription(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	owner := newTestUser(t, db, 1<<20)

	content := "# Old\n\nbody"
	record, err := svc.Upload(context.Background(), owner, "doc.md",
		strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	t.Run("改名生效", func(t *testing.T) {
		updated, err := svc.Rename(context.Background(), owner, record.FileID, "新名字")
		require.NoError(t, err)
		assert.Equal(t, "新名字", updated.DisplayName)
	})

	t.Run("空名被拒绝", func(t *testing.T) {
		_, err := svc.Rename(context.Background(), owner, record.FileID, "   ")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidParams))
	})

	t.Run("描述更新生效", func(t *testing.T) {
		updated, err := svc.UpdateDescription(context.Background(), owner, record.FileID, "一段描述")
		require.NoError(t, err)
		assert.Equal(t, "一段描述", updated.Description)
	})
}

func TestGetUsage(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	owner := newTestUser(t, db, 1000)

	usage, err := svc.GetUsage(owner)
	require.NoError(t, err)
	assert.Zero(t, usage.UsedBytes)
	assert.EqualValues(t, 1000, usage.LimitBytes)

	content := "# U\n\nbody"
	_, err = svc.Upload(context.Background(), owner, "u.md",
		strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	usage, err = svc.GetUsage(owner)
	require.NoError(t, err)
	assert.EqualValues(t, len(content), usage.UsedBytes)
}

func TestObjectKeyFor(t *testing.T) {
	assert.Equal(t, "files/7/abc.md", ObjectKeyFor(7, "abc", ".MD"))
}

func TestLogQuotaExcess(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	owner := newTestUser(t, db, 10)

	hook := logrustest.NewLocal(logger.GetLogger())
	defer hook.Reset()

	t.Run("超配时记录警告", func(t *testing.T) {
		require.NoError(t, db.Create(&database.File{
			FileID:      "over-quota",
			UserID:      owner.ID,
			FileName:    "big.md",
			DisplayName: "大文件",
			ContentKind: database.KindMarkdown,
			FileSize:    100,
			ObjectKey:   "files/x/over-quota.md",
		}).Error)

		svc.(*fileService).logQuotaExcess(owner)
		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.WarnLevel, entry.Level)
		assert.Contains(t, entry.Message, "超出配额")
	})

	t.Run("未超配时不记录", func(t *testing.T) {
		hook.Reset()
		roomy := newTestUser(t, db, 1<<20)
		svc.(*fileService).logQuotaExcess(roomy)
		assert.Nil(t, hook.LastEntry())
	})
}
