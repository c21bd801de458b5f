package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"

	"github.com/weiwangfds/snapshare/internal/database"
)

// TencentProvider 腾讯云COS提供商实现
type TencentProvider struct {
	client    *cos.Client
	config    *database.StorageConfig
	opTimeout time.Duration
}

// NewTencentProvider 创建腾讯云COS提供商实例
// opTimeout限定单次调用的耗时，HTTP客户端超时覆盖流式下载的读取阶段
func NewTencentProvider(config *database.StorageConfig, opTimeout time.Duration) (*TencentProvider, error) {
	if opTimeout <= 0 {
		opTimeout = defaultOperationTimeout
	}
	// 构建URL
	bucketURL := fmt.Sprintf("https://%s.cos.%s.myqcloud.com", config.Bucket, config.Region)
	if config.Endpoint != "" {
		bucketURL = config.Endpoint
	}

	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bucket URL: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Timeout: opTimeout,
		Transport: &cos.AuthorizationTransport{
			SecretID:  config.AccessKey,
			SecretKey: config.SecretKey,
		},
	})

	return &TencentProvider{
		client:    client,
		config:    config,
		opTimeout: opTimeout,
	}, nil
}

// metaHeader 将自定义元数据转换为x-cos-meta-请求头
func metaHeader(metadata map[string]string) http.Header {
	header := http.Header{}
	for key, value := range metadata {
		header.Set("x-cos-meta-"+key, value)
	}
	return header
}

// Put 上传对象到腾讯云COS
func (p *TencentProvider) Put(objectKey string, reader io.Reader, contentType string, metadata map[string]string) error {
	options := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: contentType,
		},
	}
	if len(metadata) > 0 {
		header := metaHeader(metadata)
		options.ObjectPutHeaderOptions.XCosMetaXXX = &header
	}

	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	if _, err := p.client.Object.Put(ctx, objectKey, reader, options); err != nil {
		return fmt.Errorf("failed to upload object to tencent cos: %w", err)
	}
	return nil
}

// Get 从腾讯云COS下载对象
// 响应体离开本函数后继续读取，整体耗时由HTTP客户端超时约束
func (p *TencentProvider) Get(objectKey string) (io.ReadCloser, error) {
	resp, err := p.client.Object.Get(context.Background(), objectKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download object from tencent cos: %w", err)
	}
	return resp.Body, nil
}

// GetRange 读取对象的前maxBytes个字节
func (p *TencentProvider) GetRange(objectKey string, maxBytes int64) ([]byte, error) {
	options := &cos.ObjectGetOptions{
		Range: fmt.Sprintf("bytes=0-%d", maxBytes-1),
	}
	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	resp, err := p.client.Object.Get(ctx, objectKey, options)
	if err != nil {
		return nil, fmt.Errorf("failed to range read object from tencent cos: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// Delete 删除腾讯云COS对象
func (p *TencentProvider) Delete(objectKey string) error {
	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	if _, err := p.client.Object.Delete(ctx, objectKey); err != nil {
		return fmt.Errorf("failed to delete object from tencent cos: %w", err)
	}
	return nil
}

// Copy 在存储桶内复制对象并替换自定义元数据
func (p *TencentProvider) Copy(srcKey, dstKey string, metadata map[string]string) error {
	sourceURL := fmt.Sprintf("%s/%s", p.client.BaseURL.BucketURL.Host, srcKey)
	options := &cos.ObjectCopyOptions{
		ObjectCopyHeaderOptions: &cos.ObjectCopyHeaderOptions{
			XCosMetadataDirective: "Replaced",
		},
	}
	if len(metadata) > 0 {
		header := metaHeader(metadata)
		options.ObjectCopyHeaderOptions.XCosMetaXXX = &header
	}

	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	if _, _, err := p.client.Object.Copy(ctx, dstKey, sourceURL, options); err != nil {
		return fmt.Errorf("failed to copy object in tencent cos: %w", err)
	}
	return nil
}

// Exists 检查对象是否存在
func (p *TencentProvider) Exists(objectKey string) (bool, error) {
	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	_, err := p.client.Object.Head(ctx, objectKey, nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence in tencent cos: %w", err)
	}
	return true, nil
}

// Stat 获取对象信息
func (p *TencentProvider) Stat(objectKey string) (*ObjectInfo, error) {
	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	resp, err := p.client.Object.Head(ctx, objectKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get object info from tencent cos: %w", err)
	}

	metadata := make(map[string]string)
	for key, values := range resp.Header {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "x-cos-meta-") && len(values) > 0 {
			metadata[strings.TrimPrefix(lower, "x-cos-meta-")] = values[0]
		}
	}

	return &ObjectInfo{
		Key:          objectKey,
		Size:         resp.ContentLength,
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         strings.Trim(resp.Header.Get("Etag"), "\""),
		ContentType:  resp.Header.Get("Content-Type"),
		Metadata:     metadata,
	}, nil
}

// List 游标分页列出对象
func (p *TencentProvider) List(prefix string, cursor string, pageSize int) (*ListResult, error) {
	options := &cos.BucketGetOptions{
		Prefix:  prefix,
		Marker:  cursor,
		MaxKeys: pageSize,
	}

	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	result, _, err := p.client.Bucket.Get(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects from tencent cos: %w", err)
	}

	listResult := &ListResult{
		Truncated:  result.IsTruncated,
		NextCursor: result.NextMarker,
	}
	for _, object := range result.Contents {
		listResult.Objects = append(listResult.Objects, ObjectInfo{
			Key:          object.Key,
			Size:         int64(object.Size),
			LastModified: object.LastModified,
			ETag:         strings.Trim(object.ETag, "\""),
			ContentType:  "", // COS列表接口不返回ContentType
		})
	}
	return listResult, nil
}

// TestConnection 测试连接
func (p *TencentProvider) TestConnection() error {
	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	if _, err := p.client.Bucket.Head(ctx); err != nil {
		return fmt.Errorf("failed to test tencent cos connection: %w", err)
	}
	return nil
}
