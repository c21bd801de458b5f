// Package database 定义了用户相关的数据库模型
package database

import (
	"time"

	"gorm.io/gorm"
)

// 用户角色常量
const (
	RoleAdmin = "admin" // 管理员，可管理用户并接收孤儿文件
	RoleUser  = "user"  // 普通用户
)

// 用户状态常量
const (
	StatusActive  = "active"  // 正常状态
	StatusPending = "pending" // 待审核，只读访问
	StatusLocked  = "locked"  // 已锁定，拒绝访问
)

// User 用户模型
// 存储通过外部认证接入的用户信息，包含角色、状态和存储配额
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                          // 主键ID，自增
	GithubID     string         `gorm:"uniqueIndex;not null;size:64" json:"github_id"` // 外部认证系统中的用户标识
	Username     string         `gorm:"not null;size:100" json:"username"`             // 用户名
	AvatarURL    string         `gorm:"size:500" json:"avatar_url"`                    // 头像地址
	Role         string         `gorm:"not null;size:20;default:'user'" json:"role"`   // 角色：admin、user
	Status       string         `gorm:"not null;size:20;default:'pending'" json:"status"` // 状态：active、pending、locked
	StorageLimit int64          `gorm:"not null;default:104857600" json:"storage_limit"`  // 存储配额，单位为字节，默认100MiB
	CreatedAt    time.Time      `json:"created_at"`                                    // 记录创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                    // 记录最后更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间戳，支持逻辑删除
}

// TableName 指定User模型对应的数据库表名
func (User) TableName() string {
	return "users"
}
