package storage

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qiniu/go-sdk/v7/auth/qbox"
	qiniuclient "github.com/qiniu/go-sdk/v7/client"
	qiniustorage "github.com/qiniu/go-sdk/v7/storage"

	"github.com/weiwangfds/snapshare/internal/database"
)

// QiniuProvider 七牛云Kodo提供商实现
type QiniuProvider struct {
	mac          *qbox.Mac
	bucketName   string
	bucketDomain string
	region       *qiniustorage.Region
	config       *database.StorageConfig
	opTimeout    time.Duration
	httpClient   *http.Client
}

// NewQiniuProvider 创建七牛云Kodo提供商实例
// opTimeout限定单次调用的耗时，HTTP客户端超时覆盖下载的读取阶段
func NewQiniuProvider(config *database.StorageConfig, opTimeout time.Duration) (*QiniuProvider, error) {
	if opTimeout <= 0 {
		opTimeout = defaultOperationTimeout
	}
	mac := qbox.NewMac(config.AccessKey, config.SecretKey)

	// 获取区域信息
	region, err := qiniustorage.GetRegion(config.AccessKey, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get qiniu region: %w", err)
	}

	// 构建域名
	bucketDomain := config.Endpoint
	if bucketDomain == "" {
		bucketDomain = fmt.Sprintf("%s.%s", config.Bucket, region.RsHost)
	}

	return &QiniuProvider{
		mac:          mac,
		bucketName:   config.Bucket,
		bucketDomain: bucketDomain,
		region:       region,
		config:       config,
		opTimeout:    opTimeout,
		httpClient:   &http.Client{Timeout: opTimeout},
	}, nil
}

// bucketManager 创建存储桶管理器，管理类调用共用带超时的HTTP客户端
func (p *QiniuProvider) bucketManager() *qiniustorage.BucketManager {
	return qiniustorage.NewBucketManagerEx(p.mac, &qiniustorage.Config{
		Region: p.region,
	}, &qiniuclient.Client{Client: p.httpClient})
}

// Put 上传对象到七牛云Kodo
func (p *QiniuProvider) Put(objectKey string, reader io.Reader, contentType string, metadata map[string]string) error {
	putPolicy := qiniustorage.PutPolicy{
		Scope: fmt.Sprintf("%s:%s", p.bucketName, objectKey),
	}
	upToken := putPolicy.UploadToken(p.mac)

	cfg := qiniustorage.Config{
		Region:        p.region,
		UseHTTPS:      true,
		UseCdnDomains: false,
	}

	formUploader := qiniustorage.NewFormUploader(&cfg)
	ret := qiniustorage.PutRet{}

	putExtra := qiniustorage.PutExtra{}
	if contentType != "" {
		putExtra.MimeType = contentType
	}
	if len(metadata) > 0 {
		putExtra.Params = make(map[string]string, len(metadata))
		for key, value := range metadata {
			putExtra.Params["x-qn-meta-"+key] = value
		}
	}

	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	err := formUploader.Put(ctx, &ret, upToken, objectKey, reader, -1, &putExtra)
	if err != nil {
		return fmt.Errorf("failed to upload object to qiniu kodo: %w", err)
	}
	return nil
}

// Get 从七牛云Kodo下载对象
func (p *QiniuProvider) Get(objectKey string) (io.ReadCloser, error) {
	resp, err := p.download(objectKey, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetRange 读取对象的前maxBytes个字节
func (p *QiniuProvider) GetRange(objectKey string, maxBytes int64) ([]byte, error) {
	resp, err := p.download(objectKey, fmt.Sprintf("bytes=0-%d", maxBytes-1))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// download 通过私有下载链接获取对象，rangeHeader非空时做范围读取
func (p *QiniuProvider) download(objectKey string, rangeHeader string) (*http.Response, error) {
	deadline := time.Now().Add(time.Hour).Unix()
	privateURL := qiniustorage.MakePrivateURL(p.mac, p.bucketDomain, objectKey, deadline)

	req, err := http.NewRequest(http.MethodGet, privateURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download object from qiniu kodo: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download object, status: %s", resp.Status)
	}
	return resp, nil
}

// Delete 删除七牛云Kodo对象
func (p *QiniuProvider) Delete(objectKey string) error {
	if err := p.bucketManager().Delete(p.bucketName, objectKey); err != nil {
		if strings.Contains(err.Error(), "no such file or directory") {
			return nil
		}
		return fmt.Errorf("failed to delete object from qiniu kodo: %w", err)
	}
	return nil
}

// Copy 在存储桶内复制对象
// 七牛复制接口不支持同时替换元数据，原始文件名仅记录在数据库中
func (p *QiniuProvider) Copy(srcKey, dstKey string, metadata map[string]string) error {
	_ = metadata
	if err := p.bucketManager().Copy(p.bucketName, srcKey, p.bucketName, dstKey, true); err != nil {
		return fmt.Errorf("failed to copy object in qiniu kodo: %w", err)
	}
	return nil
}

// Exists 检查对象是否存在
func (p *QiniuProvider) Exists(objectKey string) (bool, error) {
	_, err := p.bucketManager().Stat(p.bucketName, objectKey)
	if err != nil {
		if strings.Contains(err.Error(), "no such file or directory") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence in qiniu kodo: %w", err)
	}
	return true, nil
}

// Stat 获取对象信息
func (p *QiniuProvider) Stat(objectKey string) (*ObjectInfo, error) {
	fileInfo, err := p.bucketManager().Stat(p.bucketName, objectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get object info from qiniu kodo: %w", err)
	}

	return &ObjectInfo{
		Key:          objectKey,
		Size:         fileInfo.Fsize,
		LastModified: time.Unix(fileInfo.PutTime/10000000, 0).Format(time.RFC3339),
		ETag:         fileInfo.Hash,
		ContentType:  fileInfo.MimeType,
		Metadata:     map[string]string{},
	}, nil
}

// List 游标分页列出对象
func (p *QiniuProvider) List(prefix string, cursor string, pageSize int) (*ListResult, error) {
	entries, _, nextMarker, hasNext, err := p.bucketManager().ListFiles(
		p.bucketName, prefix, "", cursor, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects from qiniu kodo: %w", err)
	}

	result := &ListResult{
		Truncated:  hasNext,
		NextCursor: nextMarker,
	}
	for _, entry := range entries {
		result.Objects = append(result.Objects, ObjectInfo{
			Key:          entry.Key,
			Size:         entry.Fsize,
			LastModified: time.Unix(entry.PutTime/10000000, 0).Format(time.RFC3339),
			ETag:         entry.Hash,
			ContentType:  entry.MimeType,
		})
	}
	return result, nil
}

// TestConnection 测试连接
func (p *QiniuProvider) TestConnection() error {
	_, _, _, _, err := p.bucketManager().ListFiles(p.bucketName, "", "", "", 1)
	if err != nil {
		return fmt.Errorf("failed to test qiniu kodo connection: %w", err)
	}
	return nil
}
