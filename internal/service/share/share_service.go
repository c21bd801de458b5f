// Package share 实现文件分享链接管理
// 每个文件至多一条分享记录；禁用不删除记录，重新启用沿用原分享标识
package share

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weiwangfds/snapshare/internal/database"
	apperrors "github.com/weiwangfds/snapshare/internal/errors"
	"github.com/weiwangfds/snapshare/internal/logger"
)

// Service 分享服务接口
type Service interface {
	// Enable 为文件开启分享，已有记录时重新启用并沿用原分享标识
	Enable(owner *database.User, fileID string) (*database.Share, error)

	// Disable 禁用文件的分享
	Disable(owner *database.User, fileID string) (*database.Share, error)

	// GetByFileID 查询文件的分享记录，不存在时返回nil
	GetByFileID(owner *database.User, fileID string) (*database.Share, error)

	// Resolve 按公开分享标识解析启用中的分享及其文件
	// 未找到或已禁用统一返回分享未找到错误，不泄露文件是否存在
	Resolve(shareID string) (*database.Share, *database.File, error)

	// RecordVisit 访问计数原子加一
	RecordVisit(shareID string) error
}

// shareService 分享服务实现
type shareService struct {
	db *gorm.DB
}

// NewService 创建分享服务实例
func NewService(db *gorm.DB) Service {
	return &shareService{db: db}
}

// getOwnedFile 获取属于当前用户的文件
func (s *shareService) getOwnedFile(owner *database.User, fileID string) (*database.File, error) {
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

// Enable 为文件开启分享
func (s *shareService) Enable(owner *database.User, fileID string) (*database.Share, error) {
	file, err := s.getOwnedFile(owner, fileID)
	if err != nil {
		return nil, err
	}

	var record database.Share
	err = s.db.Where("file_id = ?", file.ID).First(&record).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "分享查询失败", err)
		}
		// 首次开启分享
		record = database.Share{
			FileID:    file.ID,
			ShareID:   uuid.New().String(),
			IsEnabled: true,
		}
		if err := s.db.Create(&record).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabaseInsert, "分享创建失败", err)
		}
		logger.Infof("[分享服务] 文件 %s 开启分享: %s", fileID, record.ShareID)
		return &record, nil
	}

	// 重新启用沿用原分享标识，历史链接继续有效
	if !record.IsEnabled {
		if err := s.db.Model(&record).Update("is_enabled", true).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabaseUpdate, "分享启用失败", err)
		}
		record.IsEnabled = true
		logger.Infof("[分享服务] 文件 %s 重新启用分享: %s", fileID, record.ShareID)
	}
	return &record, nil
}

// Disable 禁用文件的分享
func (s *shareService) Disable(owner *database.User, fileID string) (*database.Share, error) {
	file, err := s.getOwnedFile(owner, fileID)
	if err != nil {
		return nil, err
	}

	var record database.Share
	if err := s.db.Where("file_id = ?", file.ID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrShareNotFoundError
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "分享查询失败", err)
	}

	if record.IsEnabled {
		if err := s.db.Model(&record).Update("is_enabled", false).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabaseUpdate, "分享禁用失败", err)
		}
		record.IsEnabled = false
	}
	return &record, nil
}

// GetByFileID 查询文件的分享记录
func (s *shareService) GetByFileID(owner *database.User, fileID string) (*database.Share, error) {
	file, err := s.getOwnedFile(owner, fileID)
	if err != nil {
		return nil, err
	}

	var record database.Share
	err = s.db.Where("file_id = ?", file.ID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "分享查询失败", err)
	}
	return &record, nil
}

// Resolve 按公开分享标识解析启用中的分享及其文件
func (s *shareService) Resolve(shareID string) (*database.Share, *database.File, error) {
	var record database.Share
	err := s.db.Where("share_id = ? AND is_enabled = ?", shareID, true).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.ErrShareNotFoundError
		}
		return nil, nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "分享查询失败", err)
	}

	var file database.File
	if err := s.db.First(&file, record.FileID).Error; err != nil {
		return nil, nil, apperrors.ErrShareNotFoundError
	}
	return &record, &file, nil
}

// RecordVisit 访问计数原子加一
// 用数据库表达式自增，并发访问不丢计数
func (s *shareService) RecordVisit(shareID string) error {
	return s.db.Model(&database.Share{}).
		Where("share_id = ?", shareID).
		Update("visit_count", gorm.Expr("visit_count + 1")).Error
}
