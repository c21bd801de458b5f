// Package file 实现文件元数据与对象内容的核心业务
// 元数据库是文件状态的唯一权威来源，对象存储只负责字节内容
package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weiwangfds/snapshare/config"
	"github.com/weiwangfds/snapshare/internal/database"
	apperrors "github.com/weiwangfds/snapshare/internal/errors"
	"github.com/weiwangfds/snapshare/internal/logger"
	"github.com/weiwangfds/snapshare/internal/service/extract"
	"github.com/weiwangfds/snapshare/internal/service/storage"
)

// Indexer 搜索索引回调接口
// 由搜索服务实现，文件服务在内容变化后异步通知
type Indexer interface {
	// IndexFile 为文件建立或更新向量索引
	IndexFile(ctx context.Context, file *database.File)

	// RemoveFile 将文件移出向量索引
	RemoveFile(fileID string)
}

// Usage 用户存储用量
type Usage struct {
	UsedBytes  int64 `json:"used_bytes"`  // 已用字节数
	LimitBytes int64 `json:"limit_bytes"` // 配额字节数
}

// Service 文件服务接口
type Service interface {
	// Upload 上传文件：校验、写对象、登记元数据并异步触发索引
	Upload(ctx context.Context, owner *database.User, fileName string, reader io.Reader, size int64) (*database.File, error)

	// GetByFileID 按文件ID获取当前用户的文件
	GetByFileID(owner *database.User, fileID string) (*database.File, error)

	// Content 读取文件的对象内容
	Content(file *database.File) ([]byte, error)

	// List 分页列出用户的文件，按更新时间倒序
	List(owner *database.User, page, pageSize int) ([]database.File, int64, error)

	// Rename 修改文件展示名
	Rename(ctx context.Context, owner *database.User, fileID string, displayName string) (*database.File, error)

	// UpdateDescription 修改文件描述
	UpdateDescription(ctx context.Context, owner *database.User, fileID string, description string) (*database.File, error)

	// Delete 删除文件：对象、元数据、分享和索引一并清理
	Delete(ctx context.Context, owner *database.User, fileID string) error

	// GetUsage 统计用户已用存储和配额
	GetUsage(owner *database.User) (*Usage, error)
}

// fileService 文件服务实现
type fileService struct {
	db         *gorm.DB
	storageCfg storage.ConfigService
	fileCfg    config.FileConfig
	indexer    Indexer
}

// NewService 创建文件服务实例
// 参数:
//   - db: GORM数据库连接实例
//   - storageCfg: 存储配置服务，用于获取当前激活的存储提供商
//   - fileCfg: 文件上传配置
//   - indexer: 搜索索引回调，可为nil表示不建索引
//
// 返回:
//   - Service: 文件服务接口实现
func NewService(db *gorm.DB, storageCfg storage.ConfigService, fileCfg config.FileConfig, indexer Indexer) Service {
	return &fileService{
		db:         db,
		storageCfg: storageCfg,
		fileCfg:    fileCfg,
		indexer:    indexer,
	}
}

// contentKindOf 根据扩展名判断内容类型，不支持的扩展名返回空串
func contentKindOf(ext string) string {
	switch strings.ToLower(ext) {
	case ".html", ".htm":
		return database.KindHTML
	case ".md", ".markdown":
		return database.KindMarkdown
	default:
		return ""
	}
}

// contentTypeOf 内容类型对应的MIME类型
func contentTypeOf(kind string) string {
	if kind == database.KindMarkdown {
		return "text/markdown; charset=utf-8"
	}
	return "text/html; charset=utf-8"
}

// ObjectKeyFor 生成文件的对象存储键，形如 files/<用户ID>/<文件ID><扩展名>
func ObjectKeyFor(userID uint, fileID string, ext string) string {
	return fmt.Sprintf("files/%d/%s%s", userID, fileID, strings.ToLower(ext))
}

// Upload 上传文件
// 校验顺序：扩展名、大小、配额；全部通过后才写对象和元数据
// 配额检查与写入之间存在并发窗口，并发上传可能短暂超出配额，后续对账不回收
func (s *fileService) Upload(ctx context.Context, owner *database.User, fileName string, reader io.Reader, size int64) (*database.File, error) {
	logger.Infof("[文件服务] 用户 %d 上传文件: %s (%d 字节)", owner.ID, fileName, size)

	ext := path.Ext(fileName)
	kind := contentKindOf(ext)
	if kind == "" || !s.extensionAllowed(ext) {
		return nil, apperrors.ErrFileTypeNotAllowedError.WithDetails(ext)
	}
	if size > s.fileCfg.MaxFileSize {
		return nil, apperrors.ErrFileSizeTooLargeError.WithDetails(
			fmt.Sprintf("%d > %d", size, s.fileCfg.MaxFileSize))
	}

	usage, err := s.GetUsage(owner)
	if err != nil {
		return nil, err
	}
	if usage.UsedBytes+size > usage.LimitBytes {
		logger.Warnf("[文件服务] 用户 %d 配额不足: 已用 %d + %d > %d",
			owner.ID, usage.UsedBytes, size, usage.LimitBytes)
		return nil, apperrors.ErrQuotaExceededError
	}

	// 上传内容有大小上限，读入内存做提取和写对象
	data, err := io.ReadAll(io.LimitReader(reader, s.fileCfg.MaxFileSize+1))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrFileUploadFailed, "读取上传内容失败", err)
	}
	if int64(len(data)) > s.fileCfg.MaxFileSize {
		return nil, apperrors.ErrFileSizeTooLargeError
	}

	provider, err := s.storageCfg.ActiveProvider()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageConfigNotFound, "无可用存储配置", err)
	}

	fileID := uuid.New().String()
	objectKey := ObjectKeyFor(owner.ID, fileID, ext)
	title, text := extract.TitleAndText(data, kind)

	displayName := title
	if displayName == "" {
		displayName = strings.TrimSuffix(fileName, ext)
	}

	if err := provider.Put(objectKey, bytes.NewReader(data), contentTypeOf(kind), nil); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageWriteFailed, "对象写入失败", err)
	}

	record := &database.File{
		FileID:      fileID,
		UserID:      owner.ID,
		FileName:    fileName,
		DisplayName: displayName,
		ContentKind: kind,
		FileSize:    int64(len(data)),
		ObjectKey:   objectKey,
		SearchText:  text,
	}
	if err := s.db.Create(record).Error; err != nil {
		// 元数据落库失败时回收已写入的对象，保持无半上传状态
		if cleanupErr := provider.Delete(objectKey); cleanupErr != nil {
			logger.Errorf("[文件服务] 回收对象失败 %s: %v", objectKey, cleanupErr)
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseInsert, "文件记录创建失败", err)
	}

	logger.Infof("[文件服务] 文件上传完成: %s (ID: %s)", displayName, fileID)

	s.logQuotaExcess(owner)

	// 索引失败不影响上传结果，后台补索引兜底
	if s.indexer != nil {
		go s.indexer.IndexFile(context.Background(), record)
	}
	return record, nil
}

// logQuotaExcess 落库后复查用量
// 配额预检与写入之间的并发窗口可能造成短暂超配，超配只记日志不回滚
func (s *fileService) logQuotaExcess(owner *database.User) {
	after, err := s.GetUsage(owner)
	if err != nil || after.UsedBytes <= after.LimitBytes {
		return
	}
	logger.Warnf("[文件服务] 用户 %d 并发上传后超出配额: 已用 %d > %d",
		owner.ID, after.UsedBytes, after.LimitBytes)
}

// extensionAllowed 检查扩展名是否在允许列表中
func (s *fileService) extensionAllowed(ext string) bool {
	lower := strings.ToLower(ext)
	for _, allowed := range s.fileCfg.AllowedExtensions {
		if lower == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// GetByFileID 获取当前用户的文件
func (s *fileService) GetByFileID(owner *database.User, fileID string) (*database.File, error) {
	var record database.File
	err := s.db.Where("file_id = ? AND user_id = ?", fileID, owner.ID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFileNotFoundError
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "文件查询失败", err)
	}
	return &record, nil
}

// Content 读取文件的对象内容
func (s *fileService) Content(file *database.File) ([]byte, error) {
	provider, err := s.storageCfg.ActiveProvider()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageConfigNotFound, "无可用存储配置", err)
	}

	body, err := provider.Get(file.ObjectKey)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageReadFailed, "对象读取失败", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageReadFailed, "对象读取失败", err)
	}
	return data, nil
}

// List 分页列出用户的文件
func (s *fileService) List(owner *database.User, page, pageSize int) ([]database.File, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	query := s.db.Model(&database.File{}).Where("user_id = ?", owner.ID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrDatabaseQuery, "文件统计失败", err)
	}

	var records []database.File
	err := s.db.Where("user_id = ?", owner.ID).
		Preload("Tags").
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrDatabaseQuery, "文件列表查询失败", err)
	}
	return records, total, nil
}

// Rename 修改文件展示名
func (s *fileService) Rename(ctx context.Context, owner *database.User, fileID string, displayName string) (*database.File, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, apperrors.ErrInvalidParameters.WithDetails("展示名不能为空")
	}

	record, err := s.GetByFileID(owner, fileID)
	if err != nil {
		return nil, err
	}

	record.DisplayName = displayName
	if err := s.db.Model(record).Update("display_name", displayName).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseUpdate, "文件改名失败", err)
	}

	// 展示名进入索引负载，需要同步更新
	if s.indexer != nil {
		go s.indexer.IndexFile(context.Background(), record)
	}
	return record, nil
}

// UpdateDescription 修改文件描述
func (s *fileService) UpdateDescription(ctx context.Context, owner *database.User, fileID string, description string) (*database.File, error) {
	record, err := s.GetByFileID(owner, fileID)
	if err != nil {
		return nil, err
	}

	record.Description = description
	if err := s.db.Model(record).Update("description", description).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseUpdate, "文件描述更新失败", err)
	}
	return record, nil
}

// Delete 删除文件
// 先删对象再删元数据；分享记录和标签关联随行清理，索引异步移除
func (s *fileService) Delete(ctx context.Context, owner *database.User, fileID string) error {
	record, err := s.GetByFileID(owner, fileID)
	if err != nil {
		return err
	}

	logger.Infof("[文件服务] 用户 %d 删除文件: %s (%s)", owner.ID, record.DisplayName, fileID)

	provider, err := s.storageCfg.ActiveProvider()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorageConfigNotFound, "无可用存储配置", err)
	}
	if err := provider.Delete(record.ObjectKey); err != nil {
		return apperrors.Wrap(apperrors.ErrStorageDeleteFailed, "对象删除失败", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", record.ID).Delete(&database.Share{}).Error; err != nil {
			return err
		}
		if err := tx.Model(record).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(record).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseDelete, "文件记录删除失败", err)
	}

	if s.indexer != nil {
		s.indexer.RemoveFile(record.FileID)
	}
	return nil
}

// GetUsage 统计用户已用存储和配额
func (s *fileService) GetUsage(owner *database.User) (*Usage, error) {
	var used int64
	err := s.db.Model(&database.File{}).
		Where("user_id = ?", owner.ID).
		Select("COALESCE(SUM(file_size), 0)").
		Scan(&used).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "存储用量统计失败", err)
	}
	return &Usage{UsedBytes: used, LimitBytes: owner.StorageLimit}, nil
}
