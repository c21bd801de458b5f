package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/weiwangfds/snapshare/internal/database"
	"github.com/weiwangfds/snapshare/internal/logger"
)

// ConfigService 存储配置服务接口
// 定义了存储配置管理的所有操作，包括配置的增删改查、激活状态管理和连接测试
type ConfigService interface {
	// CreateConfig 创建存储配置，第一个配置会自动激活
	CreateConfig(config *database.StorageConfig) error

	// GetConfigByID 根据ID获取存储配置
	GetConfigByID(id uint) (*database.StorageConfig, error)

	// ListConfigs 获取所有存储配置，按创建时间倒序排列
	ListConfigs() ([]database.StorageConfig, error)

	// UpdateConfig 更新存储配置，处理激活状态变更
	UpdateConfig(config *database.StorageConfig) error

	// DeleteConfig 删除存储配置，不允许删除激活状态的配置
	DeleteConfig(id uint) error

	// ActivateConfig 激活指定配置并取消其他配置的激活状态
	ActivateConfig(id uint) error

	// TestConfig 用指定配置创建提供商并测试连接
	TestConfig(id uint) error

	// GetActiveConfig 获取当前激活且启用的存储配置
	GetActiveConfig() (*database.StorageConfig, error)

	// ToggleConfig 启用/禁用配置，不允许禁用激活状态的配置
	ToggleConfig(id uint, enabled bool) error

	// ActiveProvider 用当前激活配置创建存储提供商实例
	ActiveProvider() (Provider, error)
}

// configService 存储配置服务实现
type configService struct {
	db      *gorm.DB // 数据库连接实例
	factory *Factory // 存储提供商工厂
}

// NewConfigService 创建存储配置服务实例
// 参数:
//   - db: GORM数据库连接实例
//   - operationTimeout: 提供商单次外部调用的超时上限，非正值取默认值
//
// 返回:
//   - ConfigService: 存储配置服务接口实现
func NewConfigService(db *gorm.DB, operationTimeout time.Duration) ConfigService {
	return &configService{
		db:      db,
		factory: NewFactory(operationTimeout),
	}
}

// CreateConfig 创建存储配置
func (s *configService) CreateConfig(config *database.StorageConfig) error {
	logger.Infof("[存储配置服务] 创建存储配置: %s (提供商: %s, 存储桶: %s)",
		config.Name, config.Provider, config.Bucket)

	if err := s.validateConfig(config); err != nil {
		logger.Errorf("[存储配置服务] 配置校验失败 %s: %v", config.Name, err)
		return err
	}

	// 第一个配置自动设为激活状态
	var count int64
	s.db.Model(&database.StorageConfig{}).Count(&count)
	if count == 0 {
		config.IsActive = true
		logger.Infof("[存储配置服务] 首个配置自动激活: %s", config.Name)
	}

	if config.IsActive {
		if err := s.deactivateAllConfigs(); err != nil {
			return fmt.Errorf("failed to deactivate other configs: %w", err)
		}
	}

	if err := s.db.Create(config).Error; err != nil {
		logger.Errorf("[存储配置服务] 配置保存失败 %s: %v", config.Name, err)
		return err
	}

	logger.Infof("[存储配置服务] 配置创建成功: %s (ID: %d, 激活: %v)",
		config.Name, config.ID, config.IsActive)
	return nil
}

// GetConfigByID 根据ID获取存储配置
func (s *configService) GetConfigByID(id uint) (*database.StorageConfig, error) {
	var config database.StorageConfig
	if err := s.db.First(&config, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrStorageNotFound(id)
		}
		return nil, err
	}
	return &config, nil
}

// ListConfigs 获取所有存储配置
func (s *configService) ListConfigs() ([]database.StorageConfig, error) {
	var configs []database.StorageConfig
	if err := s.db.Order("created_at DESC").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// UpdateConfig 更新存储配置
func (s *configService) UpdateConfig(config *database.StorageConfig) error {
	logger.Infof("[存储配置服务] 更新存储配置 ID: %d (%s)", config.ID, config.Name)

	if err := s.validateConfig(config); err != nil {
		return err
	}

	var existingConfig database.StorageConfig
	if err := s.db.First(&existingConfig, config.ID).Error; err != nil {
		return apperrStorageNotFound(config.ID)
	}

	// 激活状态变更时先取消其他配置的激活
	if config.IsActive && !existingConfig.IsActive {
		if err := s.deactivateAllConfigs(); err != nil {
			return fmt.Errorf("failed to deactivate other configs: %w", err)
		}
	}

	if err := s.db.Save(config).Error; err != nil {
		logger.Errorf("[存储配置服务] 配置更新失败 %s: %v", config.Name, err)
		return err
	}
	return nil
}

// DeleteConfig 删除存储配置
func (s *configService) DeleteConfig(id uint) error {
	logger.Infof("[存储配置服务] 删除存储配置 ID: %d", id)

	var config database.StorageConfig
	if err := s.db.First(&config, id).Error; err != nil {
		return apperrStorageNotFound(id)
	}

	if config.IsActive {
		return fmt.Errorf("cannot delete active storage configuration")
	}

	return s.db.Delete(&database.StorageConfig{}, id).Error
}

// ActivateConfig 激活存储配置
func (s *configService) ActivateConfig(id uint) error {
	logger.Infof("[存储配置服务] 激活存储配置 ID: %d", id)

	var config database.StorageConfig
	if err := s.db.First(&config, id).Error; err != nil {
		return apperrStorageNotFound(id)
	}

	if err := s.deactivateAllConfigs(); err != nil {
		return fmt.Errorf("failed to deactivate other configs: %w", err)
	}

	if err := s.db.Model(&database.StorageConfig{}).Where("id = ?", id).
		Update("is_active", true).Error; err != nil {
		return fmt.Errorf("failed to activate storage config: %w", err)
	}

	logger.Infof("[存储配置服务] 配置激活成功: %s (ID: %d)", config.Name, id)
	return nil
}

// TestConfig 测试存储配置连接
func (s *configService) TestConfig(id uint) error {
	logger.Infof("[存储配置服务] 测试存储配置连接 ID: %d", id)

	config, err := s.GetConfigByID(id)
	if err != nil {
		return err
	}

	provider, err := s.factory.CreateProvider(config)
	if err != nil {
		return fmt.Errorf("failed to create storage provider: %w", err)
	}

	if err := provider.TestConnection(); err != nil {
		logger.Errorf("[存储配置服务] 连接测试失败 %s: %v", config.Name, err)
		return err
	}

	logger.Infof("[存储配置服务] 连接测试成功: %s (ID: %d)", config.Name, id)
	return nil
}

// GetActiveConfig 获取当前激活的存储配置
func (s *configService) GetActiveConfig() (*database.StorageConfig, error) {
	var config database.StorageConfig
	if err := s.db.Where("is_active = ? AND is_enabled = ?", true, true).First(&config).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no active storage configuration found")
		}
		return nil, err
	}
	return &config, nil
}

// ActiveProvider 用当前激活配置创建存储提供商实例
func (s *configService) ActiveProvider() (Provider, error) {
	config, err := s.GetActiveConfig()
	if err != nil {
		return nil, err
	}
	return s.factory.CreateProvider(config)
}

// ToggleConfig 启用/禁用存储配置
func (s *configService) ToggleConfig(id uint, enabled bool) error {
	logger.Infof("[存储配置服务] 切换存储配置 ID %d 启用状态为: %v", id, enabled)

	if !enabled {
		var config database.StorageConfig
		if err := s.db.First(&config, id).Error; err != nil {
			return apperrStorageNotFound(id)
		}
		if config.IsActive {
			return fmt.Errorf("cannot disable active storage configuration")
		}
	}

	return s.db.Model(&database.StorageConfig{}).Where("id = ?", id).
		Update("is_enabled", enabled).Error
}

// validateConfig 验证存储配置的必填字段和业务规则
func (s *configService) validateConfig(config *database.StorageConfig) error {
	if config.Name == "" {
		return fmt.Errorf("configuration name is required")
	}
	if config.Provider == "" {
		return fmt.Errorf("storage provider is required")
	}

	supportedProviders := []string{"aliyun", "tencent", "qiniu", "s3", "local"}
	isSupported := false
	for _, provider := range supportedProviders {
		if config.Provider == provider {
			isSupported = true
			break
		}
	}
	if !isSupported {
		return fmt.Errorf("unsupported storage provider: %s", config.Provider)
	}

	// 本地存储只需要根目录，云存储需要完整的认证信息
	if config.Provider == "local" {
		if config.BasePath == "" {
			return fmt.Errorf("base path is required for local storage")
		}
	} else {
		if config.Bucket == "" {
			return fmt.Errorf("bucket name is required")
		}
		if config.AccessKey == "" {
			return fmt.Errorf("access key is required")
		}
		if config.SecretKey == "" {
			return fmt.Errorf("secret key is required")
		}
		if config.Region == "" && config.Endpoint == "" {
			return fmt.Errorf("region or endpoint is required")
		}
	}

	// 配置名称不允许重复
	var count int64
	query := s.db.Model(&database.StorageConfig{}).Where("name = ?", config.Name)
	if config.ID > 0 {
		query = query.Where("id != ?", config.ID)
	}
	query.Count(&count)
	if count > 0 {
		return fmt.Errorf("configuration name already exists: %s", config.Name)
	}

	return nil
}

// deactivateAllConfigs 取消所有配置的激活状态
func (s *configService) deactivateAllConfigs() error {
	return s.db.Model(&database.StorageConfig{}).Where("is_active = ?", true).
		Update("is_active", false).Error
}

// apperrStorageNotFound 构造配置不存在错误
func apperrStorageNotFound(id uint) error {
	return fmt.Errorf("storage config not found with id: %d", id)
}
