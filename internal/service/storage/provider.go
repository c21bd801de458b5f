// Package storage 定义了对象存储的统一抽象
// 支持阿里云OSS、腾讯云COS、七牛云Kodo、Amazon S3和本地文件系统五种提供商
package storage

import (
	"context"
	"io"
	"time"

	"github.com/weiwangfds/snapshare/internal/database"
	apperrors "github.com/weiwangfds/snapshare/internal/errors"
)

// MetaOriginalFilename 自定义元数据键，记录对象认领前的原始文件名
const MetaOriginalFilename = "original-filename"

// Provider 对象存储提供商接口
// 所有方法以对象键为单位操作，键使用"/"分隔的相对路径
type Provider interface {
	// Put 上传对象，metadata为可选的自定义元数据
	Put(objectKey string, reader io.Reader, contentType string, metadata map[string]string) error

	// Get 下载完整对象
	Get(objectKey string) (io.ReadCloser, error)

	// GetRange 读取对象的前maxBytes个字节
	// 对象不足maxBytes时返回全部内容，不视为错误
	GetRange(objectKey string, maxBytes int64) ([]byte, error)

	// Delete 删除对象，对象不存在时不报错
	Delete(objectKey string) error

	// Copy 在存储内复制对象并附加自定义元数据
	Copy(srcKey, dstKey string, metadata map[string]string) error

	// Exists 检查对象是否存在
	Exists(objectKey string) (bool, error)

	// Stat 获取对象信息
	Stat(objectKey string) (*ObjectInfo, error)

	// List 游标分页列出对象
	// cursor为空表示从头开始，返回的nextCursor非空时表示还有后续页
	List(prefix string, cursor string, pageSize int) (*ListResult, error)

	// TestConnection 测试连接
	TestConnection() error
}

// ObjectInfo 对象信息
type ObjectInfo struct {
	Key          string            `json:"key"`           // 对象键名
	Size         int64             `json:"size"`          // 对象大小
	LastModified string            `json:"last_modified"` // 最后修改时间
	ETag         string            `json:"etag"`          // ETag
	ContentType  string            `json:"content_type"`  // 内容类型
	Metadata     map[string]string `json:"metadata"`      // 自定义元数据
}

// ListResult 列表分页结果
type ListResult struct {
	Objects    []ObjectInfo `json:"objects"`     // 本页对象
	NextCursor string       `json:"next_cursor"` // 下一页游标，为空表示已到末尾
	Truncated  bool         `json:"truncated"`   // 是否还有后续页
}

// defaultOperationTimeout 未配置时单次存储调用的超时上限
const defaultOperationTimeout = 30 * time.Second

// Factory 存储提供商工厂
type Factory struct {
	opTimeout time.Duration // 云端提供商单次调用的超时上限
}

// NewFactory 创建存储提供商工厂实例
// operationTimeout为单次外部调用的超时上限，非正值取默认值
func NewFactory(operationTimeout time.Duration) *Factory {
	if operationTimeout <= 0 {
		operationTimeout = defaultOperationTimeout
	}
	return &Factory{opTimeout: operationTimeout}
}

// opContext 为单次存储调用派生带超时的上下文
func opContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultOperationTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

// CreateProvider 根据配置创建存储提供商实例
func (f *Factory) CreateProvider(config *database.StorageConfig) (Provider, error) {
	switch config.Provider {
	case "aliyun":
		return NewAliyunProvider(config, f.opTimeout)
	case "tencent":
		return NewTencentProvider(config, f.opTimeout)
	case "qiniu":
		return NewQiniuProvider(config, f.opTimeout)
	case "s3":
		return NewS3Provider(config, f.opTimeout)
	case "local":
		return NewLocalProvider(config)
	default:
		return nil, apperrors.New(apperrors.ErrStorageProviderNotSupported,
			"不支持的存储提供商: "+config.Provider)
	}
}
