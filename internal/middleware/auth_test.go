package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/weiwangfds/snapshare/internal/database"
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

func createUser(t *testing.T, db *gorm.DB, role, status string) *database.User {
	t.Helper()
	user := &database.User{
		GithubID: "gh-" + role + "-" + status,
		Username: "u-" + status,
		Role:     role,
		Status:   status,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// newAuthRouter 组装带认证中间件的测试路由
func newAuthRouter(manager *AuthManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	authed := engine.Group("/", manager.RequireAuth())
	authed.GET("/me", func(c *gin.Context) {
		c.JSON(200, gin.H{"id": CurrentUser(c).ID})
	})
	authed.POST("/write", func(c *gin.Context) {
		c.Status(200)
	})
	authed.GET("/admin", manager.RequireAdmin(), func(c *gin.Context) {
		c.Status(200)
	})
	return engine
}

func doRequest(engine *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	return recorder
}

func TestRequireAuth(t *testing.T) {
	db := newTestDB(t)
	manager := NewAuthManager(db, "test-secret", time.Hour)
	engine := newAuthRouter(manager)

	active := createUser(t, db, database.RoleUser, database.StatusActive)
	activeToken, err := manager.IssueToken(active.ID)
	require.NoError(t, err)

	t.Run("无令牌返回401", func(t *testing.T) {
		rec := doRequest(engine, http.MethodGet, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("伪造令牌返回401", func(t *testing.T) {
		rec := doRequest(engine, http.MethodGet, "/me", "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("有效令牌放行", func(t *testing.T) {
		rec := doRequest(engine, http.MethodGet, "/me", activeToken)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("用户不存在返回401", func(t *testing.T) {
		ghostToken, err := manager.IssueToken(9999)
		require.NoError(t, err)
		rec := doRequest(engine, http.MethodGet, "/me", ghostToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("过期令牌返回401", func(t *testing.T) {
		expired := NewAuthManager(db, "test-secret", -time.Hour)
		token, err := expired.IssueToken(active.ID)
		require.NoError(t, err)
		rec := doRequest(engine, http.MethodGet, "/me", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Cookie令牌放行", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: activeToken})
		recorder := httptest.NewRecorder()
		engine.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestUserStatus(t *testing.T) {
	db := newTestDB(t)
	manager := NewAuthManager(db, "test-secret", time.Hour)
	engine := newAuthRouter(manager)

	t.Run("锁定用户被拒绝", func(t *testing.T) {
		locked := createUser(t, db, database.RoleUser, database.StatusLocked)
		token, err := manager.IssueToken(locked.ID)
		require.NoError(t, err)
		rec := doRequest(engine, http.MethodGet, "/me", token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("待审核用户只读放行写入拒绝", func(t *testing.T) {
		pending := createUser(t, db, database.RoleUser, database.StatusPending)
		token, err := manager.IssueToken(pending.ID)
		require.NoError(t, err)

		rec := doRequest(engine, http.MethodGet, "/me", token)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(engine, http.MethodPost, "/write", token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	db := newTestDB(t)
	manager := NewAuthManager(db, "test-secret", time.Hour)
	engine := newAuthRouter(manager)

	t.Run("普通用户被拒绝", func(t *testing.T) {
		plain := createUser(t, db, database.RoleUser, database.StatusActive)
		token, err := manager.IssueToken(plain.ID)
		require.NoError(t, err)
		rec := doRequest(engine, http.MethodGet, "/admin", token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("管理员放行", func(t *testing.T) {
		admin := createUser(t, db, database.RoleAdmin, database.StatusActive)
		token, err := manager.IssueToken(admin.ID)
		require.NoError(t, err)
		rec := doRequest(engine, http.MethodGet, "/admin", token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
