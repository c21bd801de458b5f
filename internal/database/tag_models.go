// Package database 定义了标签相关的数据库模型
package database

import (
	"time"

	"gorm.io/gorm"
)

// Tag 标签模型
// 标签按用户隔离，同一用户下名称唯一；只能挂到同一用户的文件上
type Tag struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                        // 主键ID，自增
	UserID    uint           `gorm:"not null;uniqueIndex:idx_tags_user_name" json:"user_id"`      // 所属用户ID
	Name      string         `gorm:"not null;size:50;uniqueIndex:idx_tags_user_name" json:"name"` // 标签名称，同一用户下唯一
	CreatedAt time.Time      `json:"created_at"`                                                  // 标签创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                                  // 标签最后更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间戳，支持逻辑删除

	// 关联关系
	Files []File `gorm:"many2many:file_tags;" json:"files,omitempty"` // 多对多关联文件
}

// TableName 指定Tag模型对应的数据库表名
func (Tag) TableName() string {
	return "tags"
}

// FileTag 文件标签关联模型
// 管理文件与标签之间的多对多关系
type FileTag struct {
	FileID    uint      `gorm:"primaryKey" json:"file_id"` // 文件ID，联合主键
	TagID     uint      `gorm:"primaryKey" json:"tag_id"`  // 标签ID，联合主键
	CreatedAt time.Time `json:"created_at"`                // 关联创建时间
}

// TableName 指定FileTag模型对应的数据库表名
func (FileTag) TableName() string {
	return "file_tags"
}
