// Package config 提供应用程序配置加载功能
// 基于viper实现，支持TOML配置文件和环境变量覆盖
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用程序总配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	File      FileConfig      `mapstructure:"file"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Display   DisplayConfig   `mapstructure:"display"`
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`           // HTTP端口
	HTTPSPort    int    `mapstructure:"https_port"`     // HTTPS端口
	EnableHTTPS  bool   `mapstructure:"enable_https"`   // 是否启用HTTPS
	EnableHTTP2  bool   `mapstructure:"enable_http2"`   // 是否启用HTTP/2
	TLSCertFile  string `mapstructure:"tls_cert_file"`  // TLS证书文件路径
	TLSKeyFile   string `mapstructure:"tls_key_file"`   // TLS私钥文件路径
	ReadTimeout  int    `mapstructure:"read_timeout"`   // 读超时（秒）
	WriteTimeout int    `mapstructure:"write_timeout"`  // 写超时（秒）
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`            // 数据库驱动，当前支持sqlite
	DSN             string `mapstructure:"dsn"`               // 数据源名称
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	MaxOpenConns    int    `mapstructure:"max_open_conns"`    // 最大打开连接数
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 连接最大生存时间（秒）
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`     // 日志级别
	Format   string `mapstructure:"format"`    // 日志格式 (json, text)
	Output   string `mapstructure:"output"`    // 输出方式 (console, file, both)
	FilePath string `mapstructure:"file_path"` // 日志文件路径
}

// FileConfig 文件上传配置
type FileConfig struct {
	MaxFileSize       int64    `mapstructure:"max_file_size"`      // 单文件大小上限（字节）
	AllowedExtensions []string `mapstructure:"allowed_extensions"` // 允许的文件扩展名
	DefaultQuota      int64    `mapstructure:"default_quota"`      // 用户默认存储配额（字节）
}

// EmbeddingConfig 嵌入向量服务配置
type EmbeddingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`        // 是否启用向量搜索
	Provider     string `mapstructure:"provider"`       // 嵌入服务提供商，当前支持ollama
	Host         string `mapstructure:"host"`           // Ollama服务地址
	Model        string `mapstructure:"model"`          // 嵌入模型名称
	Dimensions   int    `mapstructure:"dimensions"`     // 向量维度
	MaxInputSize int    `mapstructure:"max_input_size"` // 单次嵌入输入上限（字节）
	Timeout      int    `mapstructure:"timeout"`        // 单次调用超时（秒）
}

// VectorConfig 向量索引配置
type VectorConfig struct {
	SnapshotPath string `mapstructure:"snapshot_path"` // 索引快照文件路径，为空则不持久化
	M            int    `mapstructure:"m"`             // HNSW图连接度
	EfSearch     int    `mapstructure:"ef_search"`     // HNSW搜索宽度
	TopK         int    `mapstructure:"top_k"`         // 向量检索默认返回数量
}

// SyncConfig 对账同步配置
type SyncConfig struct {
	Enabled           bool `mapstructure:"enabled"`            // 是否启用定时对账
	Interval          int  `mapstructure:"interval"`           // 对账周期（秒）
	ListPageSize      int  `mapstructure:"list_page_size"`     // 对象存储列表分页大小
	HeadReadBytes     int  `mapstructure:"head_read_bytes"`    // 标题提取读取的字节数
	ReindexBatchSize  int  `mapstructure:"reindex_batch_size"` // 补索引单批处理数量
	OperationTimeout  int  `mapstructure:"operation_timeout"`  // 单次外部调用超时（秒）
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret      string   `mapstructure:"jwt_secret"`       // JWT签名密钥
	TokenTTL       int      `mapstructure:"token_ttl"`        // 令牌有效期（秒）
	EnableDevToken bool     `mapstructure:"enable_dev_token"` // 是否开放开发用令牌签发接口
	AdminGithubIDs []string `mapstructure:"admin_github_ids"` // 自动授予管理员角色的GitHub用户名列表
}

// DisplayConfig 展示配置
// 时区仅用于前端展示，作为不可变配置下发，不参与任何存储逻辑
type DisplayConfig struct {
	Timezone string `mapstructure:"timezone"` // 展示时区
}

// Load 加载配置
// 查找顺序: ./config.toml -> ./configs/config.toml，环境变量以SNAPSHARE_为前缀覆盖
// 返回:
//   *Config - 配置实例
//   error - 加载错误
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("SNAPSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件缺失时使用默认值，其余错误直接返回
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.https_port", 8443)
	v.SetDefault("server.enable_https", false)
	v.SetDefault("server.enable_http2", true)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "snapshare.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 3600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.file_path", "logs/snapshare.log")

	v.SetDefault("file.max_file_size", 10*1024*1024)
	v.SetDefault("file.allowed_extensions", []string{".html", ".htm", ".md", ".markdown"})
	v.SetDefault("file.default_quota", 100*1024*1024)

	v.SetDefault("embedding.enabled", false)
	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.host", "http://localhost:11434")
	v.SetDefault("embedding.model", "all-minilm")
	v.SetDefault("embedding.dimensions", 0)
	v.SetDefault("embedding.max_input_size", 8192)
	v.SetDefault("embedding.timeout", 30)

	v.SetDefault("vector.snapshot_path", "")
	v.SetDefault("vector.m", 16)
	v.SetDefault("vector.ef_search", 20)
	v.SetDefault("vector.top_k", 20)

	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.interval", 600)
	v.SetDefault("sync.list_page_size", 500)
	v.SetDefault("sync.head_read_bytes", 10240)
	v.SetDefault("sync.reindex_batch_size", 50)
	v.SetDefault("sync.operation_timeout", 30)

	v.SetDefault("auth.jwt_secret", "dev-secret")
	v.SetDefault("auth.token_ttl", 7*24*3600)
	v.SetDefault("auth.enable_dev_token", false)
	v.SetDefault("auth.admin_github_ids", []string{})

	v.SetDefault("display.timezone", "Asia/Shanghai")
}
