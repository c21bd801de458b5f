// @title SnapShare API
// @version 1.0
// @description 单文件文档分享系统

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
package main

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/net/http2"

	"github.com/weiwangfds/snapshare/config"
	"github.com/weiwangfds/snapshare/internal/database"
	"github.com/weiwangfds/snapshare/internal/logger"
	"github.com/weiwangfds/snapshare/internal/middleware"
	"github.com/weiwangfds/snapshare/internal/router"
	embedservice "github.com/weiwangfds/snapshare/internal/service/embed"
	fileservice "github.com/weiwangfds/snapshare/internal/service/file"
	searchservice "github.com/weiwangfds/snapshare/internal/service/search"
	shareservice "github.com/weiwangfds/snapshare/internal/service/share"
	"github.com/weiwangfds/snapshare/internal/service/storage"
	syncservice "github.com/weiwangfds/snapshare/internal/service/sync"
	tagservice "github.com/weiwangfds/snapshare/internal/service/tag"
	userservice "github.com/weiwangfds/snapshare/internal/service/user"
	"github.com/weiwangfds/snapshare/internal/service/vector"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(&logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	// 初始化存储配置服务
	storageConfigService := storage.NewConfigService(db, time.Duration(cfg.Sync.OperationTimeout)*time.Second)

	// 初始化向量索引并加载历史快照
	vectorIndex := vector.NewHNSWIndex(cfg.Vector)
	if err := vectorIndex.Load(); err != nil {
		logger.Warnf("向量索引快照加载失败，以空索引启动: %v", err)
	}

	// 初始化嵌入客户端与搜索服务
	embedder := embedservice.NewEmbedder(cfg.Embedding)
	searchService := searchservice.NewService(db, embedder, vectorIndex, cfg.Vector.TopK)

	// 文件服务的索引回调由搜索服务承担
	fileService := fileservice.NewService(db, storageConfigService, cfg.File, searchService)
	tagService := tagservice.NewService(db)
	shareService := shareservice.NewService(db)
	userService := userservice.NewService(db, cfg.Auth.AdminGithubIDs, cfg.File.DefaultQuota)

	// 初始化对账服务与定时清扫
	syncService := syncservice.NewService(db, storageConfigService, cfg.Sync, searchService)
	var scheduler syncservice.Scheduler
	if cfg.Sync.Enabled {
		scheduler = syncservice.NewScheduler(syncService,
			time.Duration(cfg.Sync.Interval)*time.Second, cfg.Sync.ReindexBatchSize)
		if err := scheduler.Start(context.Background()); err != nil {
			logger.Errorf("定时清扫启动失败: %v", err)
		}
	}

	// 初始化认证管理器
	authManager := middleware.NewAuthManager(db, cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTL)*time.Second)

	// 初始化路由
	r := router.New(router.Deps{
		Cfg:           cfg,
		DB:            db,
		AuthManager:   authManager,
		FileService:   fileService,
		SearchService: searchService,
		TagService:    tagService,
		ShareService:  shareService,
		UserService:   userService,
		SyncService:   syncService,
		StorageConfig: storageConfigService,
	})

	// 创建HTTP服务器
	var srv *http.Server
	if cfg.Server.EnableHTTPS {
		srv = &http.Server{
			Addr:         ":" + strconv.Itoa(cfg.Server.HTTPSPort),
			Handler:      r.GetEngine(),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			TLSConfig: &tls.Config{
				NextProtos: []string{"h2", "http/1.1"},
			},
		}
		if cfg.Server.EnableHTTP2 {
			if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
				logger.Fatalf("配置HTTP/2失败: %v", err)
			}
		}
	} else {
		srv = &http.Server{
			Addr:         ":" + strconv.Itoa(cfg.Server.Port),
			Handler:      r.GetEngine(),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		}
	}

	// 启动服务器
	go func() {
		var err error
		if cfg.Server.EnableHTTPS {
			logger.Infof("HTTPS服务器启动在端口 %d (HTTP/2: %v)", cfg.Server.HTTPSPort, cfg.Server.EnableHTTP2)
			err = srv.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			logger.Infof("HTTP服务器启动在端口 %d", cfg.Server.Port)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务器...")

	// 停止定时清扫
	if scheduler != nil {
		if err := scheduler.Stop(); err != nil {
			logger.Errorf("定时清扫停止失败: %v", err)
		}
	}

	// 持久化向量索引快照
	if err := vectorIndex.Save(); err != nil {
		logger.Errorf("向量索引快照保存失败: %v", err)
	}

	// 优雅关闭服务器
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("服务器强制关闭: %v", err)
	}

	logger.Info("服务器已退出")
}
