package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/weiwangfds/snapshare/internal/database"
	"github.com/weiwangfds/snapshare/internal/response"
)

// TokenCookieName 存放JWT的Cookie名称
const TokenCookieName = "snapshare_token"

// contextUserKey 上下文中存放当前用户的键
const contextUserKey = "current_user"

// Claims JWT声明结构体
type Claims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}

// AuthManager 认证管理器
// 负责JWT令牌的签发、校验以及gin中间件
type AuthManager struct {
	db       *gorm.DB
	secret   []byte
	tokenTTL time.Duration
}

// NewAuthManager 创建认证管理器实例
func NewAuthManager(db *gorm.DB, secret string, tokenTTL time.Duration) *AuthManager {
	return &AuthManager{
		db:       db,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// IssueToken 为指定用户签发JWT令牌
// 参数:
//   - userID: 用户ID
//
// 返回:
//   - string: 签名后的令牌
//   - error: 签发错误
func (m *AuthManager) IssueToken(userID uint) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// parseToken 解析并校验JWT令牌
func (m *AuthManager) parseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("不支持的签名算法: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("令牌无效")
	}
	return claims, nil
}

// extractToken 从请求中提取令牌
// 优先Authorization头的Bearer令牌，其次Cookie
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := c.Cookie(TokenCookieName); err == nil {
		return cookie
	}
	return ""
}

// RequireAuth 认证中间件
// 校验JWT令牌并加载用户，锁定用户拒绝访问，待审核用户只允许只读请求
func (m *AuthManager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.Unauthorized(c, "未提供认证令牌")
			c.Abort()
			return
		}

		claims, err := m.parseToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "认证令牌无效或已过期")
			c.Abort()
			return
		}

		var user database.User
		if err := m.db.First(&user, claims.UserID).Error; err != nil {
			response.Unauthorized(c, "用户不存在")
			c.Abort()
			return
		}

		if user.Status == database.StatusLocked {
			response.Forbidden(c, "账号已被锁定")
			c.Abort()
			return
		}
		if user.Status == database.StatusPending && c.Request.Method != "GET" && c.Request.Method != "HEAD" {
			response.Forbidden(c, "账号待审核，仅允许只读操作")
			c.Abort()
			return
		}

		c.Set(contextUserKey, &user)
		c.Next()
	}
}

// RequireAdmin 管理员权限中间件
// 必须在RequireAuth之后使用
func (m *AuthManager) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || user.Role != database.RoleAdmin {
			response.Forbidden(c, "需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser 从上下文中获取当前用户
func CurrentUser(c *gin.Context) *database.User {
	if value, exists := c.Get(contextUserKey); exists {
		if user, ok := value.(*database.User); ok {
			return user
		}
	}
	return nil
}
