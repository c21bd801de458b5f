// Package database 定义了对象存储相关的数据库模型
// 包含存储服务配置和对账运行报告等数据模型
package database

import (
	"time"

	"gorm.io/gorm"
)

// StorageConfig 对象存储服务配置模型
// 用于管理不同云服务商的存储配置信息，支持阿里云OSS、腾讯云COS、七牛云Kodo、Amazon S3和本地存储
// 包含连接认证、状态管理等完整配置项
type StorageConfig struct {
	ID        uint           `gorm:"primarykey" json:"id"`                          // 主键ID，自增
	Name      string         `gorm:"not null;size:100" json:"name"`                 // 配置名称，用于标识不同的存储配置
	Provider  string         `gorm:"not null;size:20" json:"provider"`              // 存储服务提供商：aliyun、tencent、qiniu、s3、local
	Region    string         `gorm:"size:50" json:"region"`                         // 服务区域，如：cn-hangzhou、ap-beijing等
	Bucket    string         `gorm:"size:100" json:"bucket"`                        // 存储桶名称
	AccessKey string         `gorm:"size:100" json:"access_key"`                    // 访问密钥ID，用于API认证
	SecretKey string         `gorm:"size:200" json:"secret_key,omitempty"`          // 访问密钥Secret，敏感信息，API响应时不返回
	Endpoint  string         `gorm:"size:200" json:"endpoint"`                      // 自定义服务端点URL，可选配置
	BasePath  string         `gorm:"size:500" json:"base_path"`                     // 本地存储的根目录，仅local提供商使用
	IsActive  bool           `gorm:"default:false" json:"is_active"`                // 是否为当前激活使用的配置，系统中只能有一个激活配置
	IsEnabled bool           `gorm:"default:true" json:"is_enabled"`                // 配置是否启用，禁用后不可使用
	CreatedAt time.Time      `json:"created_at"`                                    // 配置创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                    // 配置最后修改时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间戳，支持逻辑删除
}

// TableName 指定StorageConfig模型对应的数据库表名
func (StorageConfig) TableName() string {
	return "storage_configs"
}

// SyncReport 对账运行报告模型
// 记录每次对账清扫的统计结果，用于运维观察和问题排查
// 单个对象处理失败不会让清扫中断，失败数会体现在报告里
type SyncReport struct {
	ID         uint           `gorm:"primarykey" json:"id"`               // 主键ID，自增
	Status     string         `gorm:"not null;size:20" json:"status"`     // 运行状态：running（进行中）、success（成功）、failed（失败）
	Scanned    int            `json:"scanned"`                            // 本次清扫遍历的对象数量
	Adopted    int            `json:"adopted"`                            // 被移入用户命名空间的孤儿对象数量
	Registered int            `json:"registered"`                         // 新登记的文件记录数量
	Skipped    int            `json:"skipped"`                            // 跳过的对象数量（无管理员可认领等）
	Failed     int            `json:"failed"`                             // 处理失败的对象数量
	ErrorMsg   string         `gorm:"type:text" json:"error_msg"`         // 清扫中断时的错误信息
	Duration   int64          `json:"duration"`                           // 清扫耗时，单位为毫秒
	CreatedAt  time.Time      `json:"created_at"`                         // 报告创建时间
	UpdatedAt  time.Time      `json:"updated_at"`                         // 报告最后更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                     // 软删除时间戳
}

// TableName 指定SyncReport模型对应的数据库表名
func (SyncReport) TableName() string {
	return "sync_reports"
}
