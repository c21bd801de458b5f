package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/weiwangfds/snapshare/internal/database"
)

// S3Provider Amazon S3及兼容存储提供商实现
// 通过自定义Endpoint可以接入MinIO等S3兼容服务
type S3Provider struct {
	client    *s3.Client
	config    *database.StorageConfig
	opTimeout time.Duration
}

// NewS3Provider 创建S3提供商实例
// opTimeout限定单次SDK调用的耗时，HTTP客户端超时覆盖流式下载的读取阶段
func NewS3Provider(config *database.StorageConfig, opTimeout time.Duration) (*S3Provider, error) {
	if opTimeout <= 0 {
		opTimeout = defaultOperationTimeout
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(config.Region),
		awsconfig.WithHTTPClient(&http.Client{Timeout: opTimeout}),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			// 自定义端点通常是MinIO等兼容服务，使用路径风格寻址
			o.UsePathStyle = true
		}
	})

	return &S3Provider{
		client:    client,
		config:    config,
		opTimeout: opTimeout,
	}, nil
}

// Put 上传对象到S3
func (p *S3Provider) Put(objectKey string, reader io.Reader, contentType string, metadata map[string]string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(p.config.Bucket),
		Key:    aws.String(objectKey),
		Body:   reader,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}

	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload object to s3: %w", err)
	}
	return nil
}

// Get 从S3下载对象
// 响应体离开本函数后继续读取，整体耗时由HTTP客户端超时约束
func (p *S3Provider) Get(objectKey string) (io.ReadCloser, error) {
	output, err := p.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(p.config.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download object from s3: %w", err)
	}
	return output.Body, nil
}

// GetRange 读取对象的前maxBytes个字节
func (p *S3Provider) GetRange(objectKey string, maxBytes int64) ([]byte, error) {
	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	output, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.config.Bucket),
		Key:    aws.String(objectKey),
		Range:  aws.String(fmt.Sprintf("bytes=0-%d", maxBytes-1)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to range read object from s3: %w", err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(io.LimitReader(output.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// Delete 删除S3对象
func (p *S3Provider) Delete(objectKey string) error {
	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.config.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from s3: %w", err)
	}
	return nil
}

// Copy 在存储桶内复制对象并替换自定义元数据
func (p *S3Provider) Copy(srcKey, dstKey string, metadata map[string]string) error {
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(p.config.Bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(p.config.Bucket + "/" + srcKey),
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
		input.MetadataDirective = types.MetadataDirectiveReplace
	}

	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	if _, err := p.client.CopyObject(ctx, input); err != nil {
		return fmt.Errorf("failed to copy object in s3: %w", err)
	}
	return nil
}

// Exists 检查对象是否存在
func (p *S3Provider) Exists(objectKey string) (bool, error) {
	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.config.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence in s3: %w", err)
	}
	return true, nil
}

// isS3NotFound 判断错误是否为对象不存在
func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404")
}

// Stat 获取对象信息
func (p *S3Provider) Stat(objectKey string) (*ObjectInfo, error) {
	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	output, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.config.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object info from s3: %w", err)
	}

	info := &ObjectInfo{
		Key:      objectKey,
		Size:     aws.ToInt64(output.ContentLength),
		ETag:     strings.Trim(aws.ToString(output.ETag), "\""),
		Metadata: output.Metadata,
	}
	if output.ContentType != nil {
		info.ContentType = *output.ContentType
	}
	if output.LastModified != nil {
		info.LastModified = output.LastModified.Format(time.RFC3339)
	}
	return info, nil
}

// List 游标分页列出对象
func (p *S3Provider) List(prefix string, cursor string, pageSize int) (*ListResult, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.config.Bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(pageSize)),
	}
	if cursor != "" {
		input.ContinuationToken = aws.String(cursor)
	}

	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	output, err := p.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects from s3: %w", err)
	}

	result := &ListResult{
		Truncated:  aws.ToBool(output.IsTruncated),
		NextCursor: aws.ToString(output.NextContinuationToken),
	}
	for _, object := range output.Contents {
		info := ObjectInfo{
			Key:  aws.ToString(object.Key),
			Size: aws.ToInt64(object.Size),
			ETag: strings.Trim(aws.ToString(object.ETag), "\""),
		}
		if object.LastModified != nil {
			info.LastModified = object.LastModified.Format(time.RFC3339)
		}
		result.Objects = append(result.Objects, info)
	}
	return result, nil
}

// TestConnection 测试连接
func (p *S3Provider) TestConnection() error {
	ctx, cancel := opContext(p.opTimeout)
	defer cancel()
	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(p.config.Bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to test s3 connection: %w", err)
	}
	return nil
}
