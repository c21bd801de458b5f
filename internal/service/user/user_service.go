// Package user 实现用户账户管理
// 新用户默认待审核，仅配置名单中的GitHub用户自动授予管理员
package user

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/weiwangfds/snapshare/internal/database"
	apperrors "github.com/weiwangfds/snapshare/internal/errors"
	"github.com/weiwangfds/snapshare/internal/logger"
)

// ListOptions 用户列表查询条件
type ListOptions struct {
	Page     int    // 页码，从1开始
	PageSize int    // 每页数量
	Role     string // 按角色过滤，空值不过滤
	Status   string // 按状态过滤，空值不过滤
	Search   string // 按用户名模糊查询
}

// Service 用户服务接口
type Service interface {
	// GetOrCreate 按GitHub标识获取用户，不存在时创建
	// 用户名在管理员名单中时授予管理员角色并激活
	GetOrCreate(githubID, username, avatarURL string) (*database.User, error)

	// GetByID 按主键获取用户
	GetByID(id uint) (*database.User, error)

	// List 分页查询用户列表
	List(opts ListOptions) ([]database.User, int64, error)

	// SetStatus 更新用户状态
	SetStatus(id uint, status string) (*database.User, error)

	// SetQuota 更新用户存储配额
	SetQuota(id uint, limitBytes int64) (*database.User, error)
}

// userService 用户服务实现
type userService struct {
	db           *gorm.DB
	adminIDs     map[string]bool // 小写GitHub用户名 -> 管理员
	defaultQuota int64           // 新用户初始存储配额，非正值沿用表结构默认
}

// NewService 创建用户服务实例
// 参数:
//
//	db - 数据库连接
//	adminGithubIDs - 自动授予管理员角色的GitHub用户名列表
//	defaultQuota - 新用户初始存储配额（字节）
func NewService(db *gorm.DB, adminGithubIDs []string, defaultQuota int64) Service {
	admins := make(map[string]bool, len(adminGithubIDs))
	for _, id := range adminGithubIDs {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			admins[id] = true
		}
	}
	return &userService{db: db, adminIDs: admins, defaultQuota: defaultQuota}
}

// GetOrCreate 按GitHub标识获取用户，不存在时创建
func (s *userService) GetOrCreate(githubID, username, avatarURL string) (*database.User, error) {
	githubID = strings.TrimSpace(githubID)
	username = strings.TrimSpace(username)
	if githubID == "" || username == "" {
		return nil, apperrors.ErrInvalidParameters.WithDetails("github_id和username不能为空")
	}

	isAdmin := s.adminIDs[strings.ToLower(username)]

	var record database.User
	err := s.db.Where("github_id = ?", githubID).First(&record).Error
	if err == nil {
		// 已有用户进入管理员名单后补授角色
		if isAdmin && record.Role != database.RoleAdmin {
			updates := map[string]interface{}{
				"role":   database.RoleAdmin,
				"status": database.StatusActive,
			}
			if err := s.db.Model(&record).Updates(updates).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrDatabaseUpdate, "用户角色更新失败", err)
			}
			record.Role = database.RoleAdmin
			record.Status = database.StatusActive
			logger.Infof("[用户服务] 用户 %s 提升为管理员", username)
		}
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "用户查询失败", err)
	}

	record = database.User{
		GithubID:  githubID,
		Username:  username,
		AvatarURL: avatarURL,
		Role:      database.RoleUser,
		Status:    database.StatusPending,
	}
	if isAdmin {
		record.Role = database.RoleAdmin
		record.Status = database.StatusActive
	}
	if s.defaultQuota > 0 {
		record.StorageLimit = s.defaultQuota
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseInsert, "用户创建失败", err)
	}
	logger.Infof("[用户服务] 创建用户: %s (角色: %s, 状态: %s)", username, record.Role, record.Status)
	return &record, nil
}

// GetByID 按主键获取用户
func (s *userService) GetByID(id uint) (*database.User, error) {
	var record database.User
	if err := s.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecordNotFoundError
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "用户查询失败", err)
	}
	return &record, nil
}

// List 分页查询用户列表
func (s *userService) List(opts ListOptions) ([]database.User, int64, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 || opts.PageSize > 100 {
		opts.PageSize = 20
	}

	query := s.db.Model(&database.User{})
	if opts.Role != "" {
		query = query.Where("role = ?", opts.Role)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.Search != "" {
		query = query.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(opts.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrDatabaseQuery, "用户统计失败", err)
	}

	var users []database.User
	err := query.Order("id ASC").
		Offset((opts.Page - 1) * opts.PageSize).
		Limit(opts.PageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrDatabaseQuery, "用户列表查询失败", err)
	}
	return users, total, nil
}

// SetStatus 更新用户状态
func (s *userService) SetStatus(id uint, status string) (*database.User, error) {
	switch status {
	case database.StatusActive, database.StatusPending, database.StatusLocked:
	default:
		return nil, apperrors.ErrInvalidParameters.WithDetails(fmt.Sprintf("无效的用户状态: %s", status))
	}

	record, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(record).Update("status", status).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseUpdate, "用户状态更新失败", err)
	}
	record.Status = status
	logger.Infof("[用户服务] 用户 %d 状态更新为 %s", id, status)
	return record, nil
}

// SetQuota 更新用户存储配额
func (s *userService) SetQuota(id uint, limitBytes int64) (*database.User, error) {
	if limitBytes <= 0 {
		return nil, apperrors.ErrInvalidParameters.WithDetails("存储配额必须为正数")
	}

	record, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(record).Update("storage_limit", limitBytes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseUpdate, "用户配额更新失败", err)
	}
	record.StorageLimit = limitBytes
	logger.Infof("[用户服务] 用户 %d 配额更新为 %d 字节", id, limitBytes)
	return record, nil
}
