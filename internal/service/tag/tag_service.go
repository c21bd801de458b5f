// Package tag 实现用户维度的标签管理
// 标签名在同一用户下唯一，标签只能关联同一用户的文件
package tag

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/weiwangfds/snapshare/internal/database"
	apperrors "github.com/weiwangfds/snapshare/internal/errors"
	"github.com/weiwangfds/snapshare/internal/logger"
)

// TagWithCount 带文件数量的标签
type TagWithCount struct {
	database.Tag
	FileCount int64 `json:"file_count"` // 关联的文件数量
}

// Service 标签服务接口
type Service interface {
	// Create 创建标签，同名标签返回已存在错误
	Create(owner *database.User, name string) (*database.Tag, error)

	// List 列出用户的全部标签及文件数量，按创建时间倒序
	List(owner *database.User) ([]TagWithCount, error)

	// Rename 重命名标签
	Rename(owner *database.User, tagID uint, name string) (*database.Tag, error)

	// Delete 删除标签并解除所有文件关联
	Delete(owner *database.User, tagID uint) error

	// Attach 将标签关联到文件，标签和文件必须属于同一用户
	Attach(owner *database.User, fileID string, tagID uint) error

	// Detach 解除标签与文件的关联
	Detach(owner *database.User, fileID string, tagID uint) error
}

// tagService 标签服务实现
type tagService struct {
	db *gorm.DB
}

// NewService 创建标签服务实例
func NewService(db *gorm.DB) Service {
	return &tagService{db: db}
}

// Create 创建标签
func (s *tagService) Create(owner *database.User, name string) (*database.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ErrInvalidParameters.WithDetails("标签名不能为空")
	}

	var count int64
	s.db.Model(&database.Tag{}).Where("user_id = ? AND name = ?", owner.ID, name).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrTagAlreadyExistsError.WithDetails(name)
	}

	record := &database.Tag{UserID: owner.ID, Name: name}
	if err := s.db.Create(record).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseInsert, "标签创建失败", err)
	}

	logger.Infof("[标签服务] 用户 %d 创建标签: %s (ID: %d)", owner.ID, name, record.ID)
	return record, nil
}

// List 列出用户的全部标签及文件数量
func (s *tagService) List(owner *database.User) ([]TagWithCount, error) {
	var tags []database.Tag
	err := s.db.Where("user_id = ?", owner.ID).Order("created_at DESC").Find(&tags).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "标签列表查询失败", err)
	}

	result := make([]TagWithCount, 0, len(tags))
	for _, record := range tags {
		var fileCount int64
		s.db.Table("file_tags").Where("tag_id = ?", record.ID).Count(&fileCount)
		result = append(result, TagWithCount{Tag: record, FileCount: fileCount})
	}
	return result, nil
}

// getOwnedTag 获取属于当前用户的标签
func (s *tagService) getOwnedTag(owner *database.User, tagID uint) (*database.Tag, error) {
	var record database.Tag
	err := s.db.Where("id = ? AND user_id = ?", tagID, owner.ID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTagNotFoundError
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "标签查询失败", err)
	}
	return &record, nil
}

// Rename 重命名标签
func (s *tagService) Rename(owner *database.User, tagID uint, name string) (*database.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ErrInvalidParameters.WithDetails("标签名不能为空")
	}

	record, err := s.getOwnedTag(owner, tagID)
	if err != nil {
		return nil, err
	}

	var count int64
	s.db.Model(&database.Tag{}).
		Where("user_id = ? AND name = ? AND id != ?", owner.ID, name, tagID).
		Count(&count)
	if count > 0 {
		return nil, apperrors.ErrTagAlreadyExistsError.WithDetails(name)
	}

	record.Name = name
	if err := s.db.Model(record).Update("name", name).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseUpdate, "标签重命名失败", err)
	}
	return record, nil
}

// Delete 删除标签并解除所有文件关联
func (s *tagService) Delete(owner *database.User, tagID uint) error {
	record, err := s.getOwnedTag(owner, tagID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", record.ID).Delete(&database.FileTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(record).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseDelete, "标签删除失败", err)
	}

	logger.Infof("[标签服务] 用户 %d 删除标签: %s (ID: %d)", owner.ID, record.Name, tagID)
	return nil
}

// getOwnedFile 获取属于当前用户的文件
func (s *tagService) getOwnedFile(owner *database.User, fileID string) (*database.File, error) {
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

// Attach 将标签关联到文件
// 标签和文件的所有者必须一致，跨用户关联返回所有者不匹配错误
func (s *tagService) Attach(owner *database.User, fileID string, tagID uint) error {
	file, err := s.getOwnedFile(owner, fileID)
	if err != nil {
		return err
	}
	tag, err := s.getOwnedTag(owner, tagID)
	if err != nil {
		return err
	}
	if file.UserID != tag.UserID {
		return apperrors.ErrTagOwnerMismatchError
	}

	// 重复关联是幂等操作
	var count int64
	s.db.Table("file_tags").Where("file_id = ? AND tag_id = ?", file.ID, tag.ID).Count(&count)
	if count > 0 {
		return nil
	}

	link := &database.FileTag{FileID: file.ID, TagID: tag.ID}
	if err := s.db.Create(link).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseInsert, "标签关联失败", err)
	}
	return nil
}

// Detach 解除标签与文件的关联
func (s *tagService) Detach(owner *database.User, fileID string, tagID uint) error {
	file, err := s.getOwnedFile(owner, fileID)
	if err != nil {
		return err
	}
	tag, err := s.getOwnedTag(owner, tagID)
	if err != nil {
		return err
	}

	err = s.db.Where("file_id = ? AND tag_id = ?", file.ID, tag.ID).Delete(&database.FileTag{}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseDelete, "标签关联解除失败", err)
	}
	return nil
}
