package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/weiwangfds/snapshare/internal/database"
)

// metaSuffix 本地存储元数据边车文件后缀
const metaSuffix = ".snapmeta"

// LocalProvider 本地文件系统提供商实现
// 主要用于开发和测试环境，对象键映射为根目录下的相对路径
type LocalProvider struct {
	basePath string
	config   *database.StorageConfig
}

// localMeta 边车文件中记录的对象元数据
type localMeta struct {
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata"`
}

// NewLocalProvider 创建本地文件系统提供商实例
func NewLocalProvider(config *database.StorageConfig) (*LocalProvider, error) {
	basePath := config.BasePath
	if basePath == "" {
		basePath = "./data/objects"
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local storage path: %w", err)
	}

	return &LocalProvider{
		basePath: absPath,
		config:   config,
	}, nil
}

// resolvePath 将对象键解析为本地路径，拒绝越出根目录的键
func (p *LocalProvider) resolvePath(objectKey string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(objectKey))
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object key: %s", objectKey)
	}
	return filepath.Join(p.basePath, cleaned), nil
}

// writeMeta 写入元数据边车文件
func (p *LocalProvider) writeMeta(path string, contentType string, metadata map[string]string) error {
	if contentType == "" && len(metadata) == 0 {
		return nil
	}
	data, err := json.Marshal(localMeta{ContentType: contentType, Metadata: metadata})
	if err != nil {
		return err
	}
	return os.WriteFile(path+metaSuffix, data, 0644)
}

// readMeta 读取元数据边车文件，不存在时返回空元数据
func (p *LocalProvider) readMeta(path string) localMeta {
	meta := localMeta{Metadata: map[string]string{}}
	data, err := os.ReadFile(path + metaSuffix)
	if err != nil {
		return meta
	}
	_ = json.Unmarshal(data, &meta)
	if meta.Metadata == nil {
		meta.Metadata = map[string]string{}
	}
	return meta
}

// Put 写入对象到本地文件系统
func (p *LocalProvider) Put(objectKey string, reader io.Reader, contentType string, metadata map[string]string) error {
	path, err := p.resolvePath(objectKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create object file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write object file: %w", err)
	}
	return p.writeMeta(path, contentType, metadata)
}

// Get 读取本地对象
func (p *LocalProvider) Get(objectKey string) (io.ReadCloser, error) {
	path, err := p.resolvePath(objectKey)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open object file: %w", err)
	}
	return file, nil
}

// GetRange 读取对象的前maxBytes个字节
func (p *LocalProvider) GetRange(objectKey string, maxBytes int64) ([]byte, error) {
	file, err := p.Get(objectKey)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read object file: %w", err)
	}
	return data, nil
}

// Delete 删除本地对象，对象不存在时不报错
func (p *LocalProvider) Delete(objectKey string) error {
	path, err := p.resolvePath(objectKey)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object file: %w", err)
	}
	_ = os.Remove(path + metaSuffix)
	return nil
}

// Copy 复制本地对象并替换元数据
func (p *LocalProvider) Copy(srcKey, dstKey string, metadata map[string]string) error {
	srcPath, err := p.resolvePath(srcKey)
	if err != nil {
		return err
	}
	dstPath, err := p.resolvePath(dstKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open source object: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create target object: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy object: %w", err)
	}

	contentType := p.readMeta(srcPath).ContentType
	return p.writeMeta(dstPath, contentType, metadata)
}

// Exists 检查对象是否存在
func (p *LocalProvider) Exists(objectKey string) (bool, error) {
	path, err := p.resolvePath(objectKey)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object file: %w", err)
	}
	return true, nil
}

// Stat 获取对象信息
func (p *LocalProvider) Stat(objectKey string) (*ObjectInfo, error) {
	path, err := p.resolvePath(objectKey)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat object file: %w", err)
	}

	meta := p.readMeta(path)
	return &ObjectInfo{
		Key:          objectKey,
		Size:         info.Size(),
		LastModified: info.ModTime().Format(time.RFC3339),
		ContentType:  meta.ContentType,
		Metadata:     meta.Metadata,
	}, nil
}

// List 游标分页列出对象
// 本地实现一次性遍历根目录后按键名排序，游标为上一页最后一个键
func (p *LocalProvider) List(prefix string, cursor string, pageSize int) (*ListResult, error) {
	var keys []string
	err := filepath.Walk(p.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(path, metaSuffix) {
			return nil
		}
		rel, err := filepath.Rel(p.basePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list local objects: %w", err)
	}
	sort.Strings(keys)

	result := &ListResult{}
	for _, key := range keys {
		if cursor != "" && key <= cursor {
			continue
		}
		if len(result.Objects) >= pageSize {
			result.Truncated = true
			result.NextCursor = result.Objects[len(result.Objects)-1].Key
			break
		}
		info, err := p.Stat(key)
		if err != nil {
			return nil, err
		}
		result.Objects = append(result.Objects, *info)
	}
	return result, nil
}

// TestConnection 测试根目录可写
func (p *LocalProvider) TestConnection() error {
	probe := filepath.Join(p.basePath, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("local storage directory is not writable: %w", err)
	}
	return os.Remove(probe)
}
