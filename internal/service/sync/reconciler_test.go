package sync

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/weiwangfds/snapshare/config"
	"github.com/weiwangfds/snapshare/internal/database"
	"github.com/weiwangfds/snapshare/internal/service/file"
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
		&database.User{}, &database.File{}, &database.SyncReport{},
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

func newTestReconciler(t *testing.T, db *gorm.DB) (Service, storage.Provider) {
	t.Helper()
	provider, err := storage.NewLocalProvider(&database.StorageConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	svc := NewService(db, &stubConfigService{provider: provider}, config.SyncConfig{
		ListPageSize:  100,
		HeadReadBytes: 10240,
	}, nil)
	return svc, provider
}

func createAdmin(t *testing.T, db *gorm.DB) *database.User {
	t.Helper()
	admin := &database.User{
		GithubID: "gh-admin",
		Username: "admin",
		Role:     database.RoleAdmin,
		Status:   database.StatusActive,
	}
	require.NoError(t, db.Create(admin).Error)
	return admin
}

func putObject(t *testing.T, provider storage.Provider, key, content string) {
	t.Helper()
	require.NoError(t, provider.Put(key, strings.NewReader(content), "text/plain", nil))
}

func TestReconcile(t *testing.T) {
	t.Run("根级对象被认领并登记", func(t *testing.T) {
		db := newTestDB(t)
		admin := createAdmin(t, db)
		svc, provider := newTestReconciler(t, db)

		putObject(t, provider, "orphan.md", "# 孤儿文档\n\n一些正文")

		report, err := svc.Reconcile(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 1, report.Scanned)
		assert.EqualValues(t, 1, report.Adopted)
		assert.EqualValues(t, 1, report.Registered)
		assert.Equal(t, "success", report.Status)

		// 原键消失，新键落在管理员命名空间
		exists, err := provider.Exists("orphan.md")
		require.NoError(t, err)
		assert.False(t, exists)

		var record database.File
		require.NoError(t, db.First(&record).Error)
		assert.Equal(t, admin.ID, record.UserID)
		assert.Equal(t, "孤儿文档", record.DisplayName)
		assert.Equal(t, "orphan.md", record.FileName) // 原始文件名来自对象元数据
		assert.True(t, strings.HasPrefix(record.ObjectKey, "files/"))
	})

	t.Run("无管理员时根级对象留在原地", func(t *testing.T) {
		db := newTestDB(t)
		svc, provider := newTestReconciler(t, db)

		putObject(t, provider, "orphan.md", "# X")

		report, err := svc.Reconcile(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 0, report.Adopted)
		assert.EqualValues(t, 1, report.Skipped)

		exists, err := provider.Exists("orphan.md")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("扩展名不支持的根级对象不移动", func(t *testing.T) {
		db := newTestDB(t)
		createAdmin(t, db)
		svc, provider := newTestReconciler(t, db)

		putObject(t, provider, "backup.zip", "binary")

		report, err := svc.Reconcile(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 1, report.Skipped)
		assert.EqualValues(t, 0, report.Adopted)

		exists, err := provider.Exists("backup.zip")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("命名空间内的无主对象直接登记", func(t *testing.T) {
		db := newTestDB(t)
		admin := createAdmin(t, db)
		svc, provider := newTestReconciler(t, db)

		key := file.ObjectKeyFor(admin.ID, "manual-upload", ".html")
		putObject(t, provider, key, "<title>手工上传</title><body>正文</body>")

		report, err := svc.Reconcile(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 1, report.Registered)
		assert.EqualValues(t, 0, report.Adopted)

		var record database.File
		require.NoError(t, db.First(&record).Error)
		assert.Equal(t, "手工上传", record.DisplayName)
		assert.Equal(t, key, record.ObjectKey)
	})

	t.Run("所属用户不存在时跳过", func(t *testing.T) {
		db := newTestDB(t)
		createAdmin(t, db)
		svc, provider := newTestReconciler(t, db)

		putObject(t, provider, "files/9999/ghost.md", "# Ghost")

		report, err := svc.Reconcile(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 1, report.Skipped)

		var count int64
		db.Model(&database.File{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("第二轮清扫不产生新记录", func(t *testing.T) {
		db := newTestDB(t)
		createAdmin(t, db)
		svc, provider := newTestReconciler(t, db)

		putObject(t, provider, "orphan.md", "# 文档")

		_, err := svc.Reconcile(context.Background())
		require.NoError(t, err)

		report, err := svc.Reconcile(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 0, report.Adopted)
		assert.EqualValues(t, 0, report.Registered)

		var count int64
		db.Model(&database.File{}).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("报告落库可查询", func(t *testing.T) {
		db := newTestDB(t)
		createAdmin(t, db)
		svc, _ := newTestReconciler(t, db)

		_, err := svc.Reconcile(context.Background())
		require.NoError(t, err)

		reports, err := svc.LatestReports(10)
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, "success", reports[0].Status)
		assert.False(t, svc.IsRunning())
	})
}

func TestReindexBatch(t *testing.T) {
	t.Run("补齐正文为空的记录", func(t *testing.T) {
		db := newTestDB(t)
		admin := createAdmin(t, db)
		svc, provider := newTestReconciler(t, db)

		key := file.ObjectKeyFor(admin.ID, "legacy", ".md")
		putObject(t, provider, key, "# 历史文档\n\n迁移前的内容")
		require.NoError(t, db.Create(&database.File{
			FileID:      "legacy",
			UserID:      admin.ID,
			FileName:    "legacy.md",
			DisplayName: "",
			ContentKind: database.KindMarkdown,
			ObjectKey:   key,
			SearchText:  "",
		}).Error)

		processed, err := svc.ReindexBatch(context.Background(), 10)
		require.NoError(t, err)
		assert.Equal(t, 1, processed)

		var record database.File
		require.NoError(t, db.Where("file_id = ?", "legacy").First(&record).Error)
		assert.Contains(t, record.SearchText, "迁移前的内容")
		assert.Equal(t, "历史文档", record.DisplayName)

		// 再次调用返回0表示积压已收敛
		processed, err = svc.ReindexBatch(context.Background(), 10)
		require.NoError(t, err)
		assert.Zero(t, processed)
	})

	t.Run("提取不出正文时写入占位符", func(t *testing.T) {
		db := newTestDB(t)
		admin := createAdmin(t, db)
		svc, provider := newTestReconciler(t, db)

		key := file.ObjectKeyFor(admin.ID, "empty", ".html")
		putObject(t, provider, key, "<script>only()</script>")
		require.NoError(t, db.Create(&database.File{
			FileID:      "empty",
			UserID:      admin.ID,
			FileName:    "empty.html",
			DisplayName: "empty",
			ContentKind: database.KindHTML,
			ObjectKey:   key,
			SearchText:  "",
		}).Error)

		processed, err := svc.ReindexBatch(context.Background(), 10)
		require.NoError(t, err)
		assert.Equal(t, 1, processed)

		var record database.File
		require.NoError(t, db.Where("file_id = ?", "empty").First(&record).Error)
		assert.Equal(t, " ", record.SearchText)

		processed, err = svc.ReindexBatch(context.Background(), 10)
		require.NoError(t, err)
		assert.Zero(t, processed)
	})

	t.Run("对象读取失败的记录被跳过", func(t *testing.T) {
		db := newTestDB(t)
		admin := createAdmin(t, db)
		svc, _ := newTestReconciler(t, db)

		require.NoError(t, db.Create(&database.File{
			FileID:      "missing",
			UserID:      admin.ID,
			FileName:    "missing.md",
			DisplayName: "missing",
			ContentKind: database.KindMarkdown,
			ObjectKey:   "files/1/missing.md",
			SearchText:  "",
		}).Error)

		processed, err := svc.ReindexBatch(context.Background(), 10)
		require.NoError(t, err)
		assert.Zero(t, processed)
	})
}

func TestOwnerFromKey(t *testing.T) {
	cases := []struct {
		key    string
		wantID uint
		wantOK bool
	}{
		{"files/12/doc.md", 12, true},
		{"files/abc/doc.md", 0, false},
		{"other/12/doc.md", 0, false},
		{"files/12", 0, false},
		{"doc.md", 0, false},
	}
	for _, tc := range cases {
		id, ok := ownerFromKey(tc.key)
		assert.Equal(t, tc.wantOK, ok, tc.key)
		assert.Equal(t, tc.wantID, id, tc.key)
	}
}
