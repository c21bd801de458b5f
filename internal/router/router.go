// Package router 负责HTTP路由注册与中间件装配
package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/weiwangfds/snapshare/config"
	"github.com/weiwangfds/snapshare/internal/handler"
	"github.com/weiwangfds/snapshare/internal/middleware"
	"github.com/weiwangfds/snapshare/internal/response"
	fileservice "github.com/weiwangfds/snapshare/internal/service/file"
	searchservice "github.com/weiwangfds/snapshare/internal/service/search"
	shareservice "github.com/weiwangfds/snapshare/internal/service/share"
	"github.com/weiwangfds/snapshare/internal/service/storage"
	syncservice "github.com/weiwangfds/snapshare/internal/service/sync"
	tagservice "github.com/weiwangfds/snapshare/internal/service/tag"
	userservice "github.com/weiwangfds/snapshare/internal/service/user"
)

// Deps 路由依赖的服务集合，由main装配后传入
type Deps struct {
	Cfg           *config.Config
	DB            *gorm.DB
	AuthManager   *middleware.AuthManager
	FileService   fileservice.Service
	SearchService searchservice.Service
	TagService    tagservice.Service
	ShareService  shareservice.Service
	UserService   userservice.Service
	SyncService   syncservice.Service
	StorageConfig storage.ConfigService
}

// Router 路由配置
type Router struct {
	engine *gin.Engine
}

// New 创建路由实例并注册全部接口
func New(deps Deps) *Router {
	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	// 初始化处理器
	fileHandler := handler.NewFileHandler(deps.FileService, deps.SearchService)
	tagHandler := handler.NewTagHandler(deps.TagService)
	shareHandler := handler.NewShareHandler(deps.ShareService, deps.FileService)
	authHandler := handler.NewAuthHandler(deps.AuthManager, deps.UserService, deps.FileService)
	adminHandler := handler.NewAdminHandler(deps.UserService, deps.SyncService)
	storageHandler := handler.NewStorageHandler(deps.StorageConfig)

	// 使用中间件
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.AccessLogger())
	if deps.Cfg.Log.Level == "debug" {
		engine.Use(middleware.DebugBodyLogger(4096))
	}

	// 配置CORS
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// 健康检查
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Service is running",
		})
	})

	// 公开访问接口，无需认证
	engine.GET("/raw/:shareID", shareHandler.Raw)
	engine.GET("/api/s/:shareID", shareHandler.Info)

	// 客户端展示配置，启动后不可变
	displayTimezone := deps.Cfg.Display.Timezone
	maxFileSize := deps.Cfg.File.MaxFileSize
	allowedExtensions := deps.Cfg.File.AllowedExtensions
	engine.GET("/api/v1/config", func(c *gin.Context) {
		response.Success(c, gin.H{
			"timezone":           displayTimezone,
			"max_file_size":      maxFileSize,
			"allowed_extensions": allowedExtensions,
		})
	})

	// 开发用令牌签发，仅在配置开启时注册
	if deps.Cfg.Auth.EnableDevToken {
		engine.POST("/auth/token", authHandler.IssueDevToken)
	}

	// 认证接口组
	api := engine.Group("/api/v1")
	api.Use(deps.AuthManager.RequireAuth())
	{
		api.GET("/auth/me", authHandler.Me)

		// 文件管理接口
		files := api.Group("/files")
		{
			files.POST("", fileHandler.Upload)
			files.GET("", fileHandler.List)
			files.GET("/usage", fileHandler.Usage)
			files.GET("/:id", fileHandler.Get)
			files.GET("/:id/content", fileHandler.Content)
			files.PATCH("/:id", fileHandler.Rename)
			files.PATCH("/:id/description", fileHandler.UpdateDescription)
			files.DELETE("/:id", fileHandler.Delete)

			// 分享开关
			files.POST("/:id/share", shareHandler.Toggle)
			files.GET("/:id/share", shareHandler.Get)

			// 文件标签关联
			files.POST("/:id/tags", tagHandler.Attach)
			files.DELETE("/:id/tags/:tagID", tagHandler.Detach)
		}

		// 标签管理接口
		tags := api.Group("/tags")
		{
			tags.POST("", tagHandler.Create)
			tags.GET("", tagHandler.List)
			tags.PUT("/:id", tagHandler.Rename)
			tags.DELETE("/:id", tagHandler.Delete)
		}

		// 管理员接口组
		admin := api.Group("/admin")
		admin.Use(deps.AuthManager.RequireAdmin())
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.PATCH("/users/:id/status", adminHandler.UpdateUserStatus)
			admin.PATCH("/users/:id/quota", adminHandler.UpdateUserQuota)

			// 对象清扫与补索引
			admin.POST("/sync", adminHandler.TriggerSync)
			admin.POST("/reindex", adminHandler.TriggerReindex)
			admin.GET("/sync/report", adminHandler.SyncReports)

			// 存储配置管理
			configs := admin.Group("/storage/configs")
			{
				configs.POST("", storageHandler.Create)
				configs.GET("", storageHandler.List)
				configs.GET("/active", storageHandler.GetActive)
				configs.GET("/:id", storageHandler.Get)
				configs.PUT("/:id", storageHandler.Update)
				configs.DELETE("/:id", storageHandler.Delete)
				configs.POST("/:id/activate", storageHandler.Activate)
				configs.POST("/:id/test", storageHandler.Test)
				configs.POST("/:id/toggle", storageHandler.Toggle)
			}
		}
	}

	return &Router{engine: engine}
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
