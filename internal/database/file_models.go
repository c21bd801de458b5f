// Package database 定义了文件相关的数据库模型
// 包含文件元数据和分享记录等核心数据模型
package database

import (
	"time"

	"gorm.io/gorm"
)

// 文件内容类型常量
const (
	KindHTML     = "html"     // 渲染后的HTML快照
	KindMarkdown = "markdown" // Markdown文档
)

// File 文件元数据模型
// 元数据库是File/Tag/Share状态的唯一权威来源；对象存储只保存字节内容
// SearchText为空的记录构成补索引积压队列，由ReindexBatch逐批收敛
type File struct {
	ID          uint           `gorm:"primarykey" json:"id"`                          // 主键ID，自增
	FileID      string         `gorm:"uniqueIndex;not null;size:36" json:"file_id"`   // 文件唯一标识符（UUID格式）
	UserID      uint           `gorm:"not null;index" json:"user_id"`                 // 所属用户ID
	FileName    string         `gorm:"not null;size:255" json:"file_name"`            // 原始文件名称
	DisplayName string         `gorm:"not null;size:255" json:"display_name"`         // 展示名称，取自文档标题或用户改名
	ContentKind string         `gorm:"not null;size:20" json:"content_kind"`          // 内容类型：html、markdown
	FileSize    int64          `gorm:"not null" json:"file_size"`                     // 文件大小，单位为字节
	ObjectKey   string         `gorm:"uniqueIndex;not null;size:500" json:"object_key"` // 对象存储键，与存活文件记录一一对应
	Description string         `gorm:"type:text" json:"description"`                  // 文件描述，自由文本
	SearchText  string         `gorm:"type:text" json:"-"`                            // 提取出的可搜索正文，上限3万字符；为空表示待补索引
	CreatedAt   time.Time      `json:"created_at"`                                    // 记录创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                    // 记录最后更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间戳，支持逻辑删除

	// 关联关系
	Tags []Tag `gorm:"many2many:file_tags;" json:"tags,omitempty"` // 多对多关联标签
}

// TableName 指定File模型对应的数据库表名
func (File) TableName() string {
	return "files"
}

// Share 文件分享模型
// 每个文件至多存在一条存活分享记录；禁用分享不删除记录，重新启用沿用原分享标识
type Share struct {
	ID         uint           `gorm:"primarykey" json:"id"`                         // 主键ID，自增
	FileID     uint           `gorm:"uniqueIndex;not null" json:"file_id"`          // 关联的文件ID，每个文件至多一条
	ShareID    string         `gorm:"uniqueIndex;not null;size:36" json:"share_id"` // 对外公开的分享标识（UUID格式）
	IsEnabled  bool           `gorm:"default:true" json:"is_enabled"`               // 分享是否启用
	VisitCount int64          `gorm:"default:0" json:"visit_count"`                 // 访问次数统计，只增不减
	CreatedAt  time.Time      `json:"created_at"`                                   // 分享创建时间
	UpdatedAt  time.Time      `json:"updated_at"`                                   // 分享最后更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                               // 软删除时间戳，支持逻辑删除
}

// TableName 指定Share模型对应的数据库表名
func (Share) TableName() string {
	return "shares"
}
