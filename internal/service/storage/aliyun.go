package storage

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/weiwangfds/snapshare/internal/database"
)

// AliyunProvider 阿里云OSS提供商实现
type AliyunProvider struct {
	client *oss.Client
	bucket *oss.Bucket
	config *database.StorageConfig
}

// NewAliyunProvider 创建阿里云OSS提供商实例
// SDK不支持按调用传入上下文，超时在客户端层面以连接和读写超时约束
func NewAliyunProvider(config *database.StorageConfig, opTimeout time.Duration) (*AliyunProvider, error) {
	if opTimeout <= 0 {
		opTimeout = defaultOperationTimeout
	}

	// 构建endpoint
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://oss-%s.aliyuncs.com", config.Region)
	}

	timeoutSec := int64(opTimeout / time.Second)
	if timeoutSec < 1 {
		timeoutSec = 1
	}
	client, err := oss.New(endpoint, config.AccessKey, config.SecretKey,
		oss.Timeout(timeoutSec, timeoutSec))
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun oss client: %w", err)
	}

	bucket, err := client.Bucket(config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", config.Bucket, err)
	}

	return &AliyunProvider{
		client: client,
		bucket: bucket,
		config: config,
	}, nil
}

// Put 上传对象到阿里云OSS
func (p *AliyunProvider) Put(objectKey string, reader io.Reader, contentType string, metadata map[string]string) error {
	options := []oss.Option{}
	if contentType != "" {
		options = append(options, oss.ContentType(contentType))
	}
	for key, value := range metadata {
		options = append(options, oss.Meta(key, value))
	}

	if err := p.bucket.PutObject(objectKey, reader, options...); err != nil {
		return fmt.Errorf("failed to upload object to aliyun oss: %w", err)
	}
	return nil
}

// Get 从阿里云OSS下载对象
func (p *AliyunProvider) Get(objectKey string) (io.ReadCloser, error) {
	body, err := p.bucket.GetObject(objectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to download object from aliyun oss: %w", err)
	}
	return body, nil
}

// GetRange 读取对象的前maxBytes个字节
func (p *AliyunProvider) GetRange(objectKey string, maxBytes int64) ([]byte, error) {
	body, err := p.bucket.GetObject(objectKey, oss.Range(0, maxBytes-1))
	if err != nil {
		return nil, fmt.Errorf("failed to range read object from aliyun oss: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// Delete 删除阿里云OSS对象
func (p *AliyunProvider) Delete(objectKey string) error {
	if err := p.bucket.DeleteObject(objectKey); err != nil {
		return fmt.Errorf("failed to delete object from aliyun oss: %w", err)
	}
	return nil
}

// Copy 在存储桶内复制对象并替换自定义元数据
func (p *AliyunProvider) Copy(srcKey, dstKey string, metadata map[string]string) error {
	options := []oss.Option{oss.MetadataDirective(oss.MetaReplace)}
	for key, value := range metadata {
		options = append(options, oss.Meta(key, value))
	}

	if _, err := p.bucket.CopyObject(srcKey, dstKey, options...); err != nil {
		return fmt.Errorf("failed to copy object in aliyun oss: %w", err)
	}
	return nil
}

// Exists 检查对象是否存在
func (p *AliyunProvider) Exists(objectKey string) (bool, error) {
	exists, err := p.bucket.IsObjectExist(objectKey)
	if err != nil {
		return false, fmt.Errorf("failed to check object existence in aliyun oss: %w", err)
	}
	return exists, nil
}

// Stat 获取对象信息
func (p *AliyunProvider) Stat(objectKey string) (*ObjectInfo, error) {
	meta, err := p.bucket.GetObjectDetailedMeta(objectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get object info from aliyun oss: %w", err)
	}

	var size int64
	if sizeStr := meta.Get("Content-Length"); sizeStr != "" {
		fmt.Sscanf(sizeStr, "%d", &size)
	}

	return &ObjectInfo{
		Key:          objectKey,
		Size:         size,
		LastModified: meta.Get("Last-Modified"),
		ETag:         strings.Trim(meta.Get("Etag"), "\""),
		ContentType:  meta.Get("Content-Type"),
		Metadata:     extractUserMeta(meta),
	}, nil
}

// extractUserMeta 从响应头中提取x-oss-meta-前缀的自定义元数据
func extractUserMeta(header http.Header) map[string]string {
	metadata := make(map[string]string)
	for key, values := range header {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "x-oss-meta-") && len(values) > 0 {
			metadata[strings.TrimPrefix(lower, "x-oss-meta-")] = values[0]
		}
	}
	return metadata
}

// List 游标分页列出对象
func (p *AliyunProvider) List(prefix string, cursor string, pageSize int) (*ListResult, error) {
	options := []oss.Option{
		oss.Prefix(prefix),
		oss.MaxKeys(pageSize),
	}
	if cursor != "" {
		options = append(options, oss.Marker(cursor))
	}

	lsRes, err := p.bucket.ListObjects(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects from aliyun oss: %w", err)
	}

	result := &ListResult{
		Truncated:  lsRes.IsTruncated,
		NextCursor: lsRes.NextMarker,
	}
	for _, object := range lsRes.Objects {
		result.Objects = append(result.Objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified.Format(time.RFC3339),
			ETag:         strings.Trim(object.ETag, "\""),
			ContentType:  object.Type,
		})
	}
	return result, nil
}

// TestConnection 测试连接
func (p *AliyunProvider) TestConnection() error {
	if _, err := p.client.GetBucketInfo(p.config.Bucket); err != nil {
		return fmt.Errorf("failed to test aliyun oss connection: %w", err)
	}
	return nil
}
