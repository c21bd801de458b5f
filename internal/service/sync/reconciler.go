// Package sync 实现对象存储与元数据库的对账清扫和补索引
// 清扫发现元数据中未登记的对象并修复缺口：根级孤儿对象移入管理员命名空间，
// 命名空间内的无主对象直接登记；全程单对象失败隔离，不中断整体清扫
package sync

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weiwangfds/snapshare/config"
	"github.com/weiwangfds/snapshare/internal/database"
	apperrors "github.com/weiwangfds/snapshare/internal/errors"
	"github.com/weiwangfds/snapshare/internal/logger"
	"github.com/weiwangfds/snapshare/internal/service/extract"
	"github.com/weiwangfds/snapshare/internal/service/file"
	"github.com/weiwangfds/snapshare/internal/service/storage"
)

// Service 对账服务接口
type Service interface {
	// Reconcile 执行一次完整的对账清扫，返回运行报告
	// 同一时刻只允许一次清扫，重复触发返回ErrSyncInProgress
	Reconcile(ctx context.Context) (*database.SyncReport, error)

	// ReindexBatch 补索引：处理最多limit条正文为空的文件记录
	// 返回实际处理数量，反复调用直到返回0即收敛
	ReindexBatch(ctx context.Context, limit int) (int, error)

	// LatestReports 返回最近的对账报告
	LatestReports(limit int) ([]database.SyncReport, error)

	// IsRunning 返回是否有清扫正在进行
	IsRunning() bool
}

// reconciler 对账服务实现
type reconciler struct {
	db         *gorm.DB
	storageCfg storage.ConfigService
	syncCfg    config.SyncConfig
	indexer    file.Indexer

	mu        sync.Mutex
	isRunning bool
}

// NewService 创建对账服务实例
// 参数:
//   - db: GORM数据库连接实例
//   - storageCfg: 存储配置服务
//   - syncCfg: 对账配置
//   - indexer: 搜索索引回调，可为nil
//
// 返回:
//   - Service: 对账服务接口实现
func NewService(db *gorm.DB, storageCfg storage.ConfigService, syncCfg config.SyncConfig, indexer file.Indexer) Service {
	if syncCfg.ListPageSize <= 0 {
		syncCfg.ListPageSize = 500
	}
	if syncCfg.HeadReadBytes <= 0 {
		syncCfg.HeadReadBytes = 10240
	}
	return &reconciler{
		db:         db,
		storageCfg: storageCfg,
		syncCfg:    syncCfg,
		indexer:    indexer,
	}
}

// IsRunning 返回是否有清扫正在进行
func (r *reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isRunning
}

// tryStart 尝试占用清扫锁
func (r *reconciler) tryStart() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning {
		return false
	}
	r.isRunning = true
	return true
}

// finish 释放清扫锁
func (r *reconciler) finish() {
	r.mu.Lock()
	r.isRunning = false
	r.mu.Unlock()
}

// Reconcile 执行一次完整的对账清扫
// 算法：加载已知对象键集合，游标分页遍历对象存储，对每个未登记对象分类处理：
// 根级对象移入首个管理员的命名空间后立即登记（最多一次重入），
// 命名空间内对象直接登记；每个对象的失败只计入报告，不影响其余对象
func (r *reconciler) Reconcile(ctx context.Context) (*database.SyncReport, error) {
	if !r.tryStart() {
		return nil, apperrors.ErrSyncInProgressError
	}
	defer r.finish()

	logger.Info("[对账服务] 开始对账清扫")
	start := time.Now()

	report := &database.SyncReport{Status: "running"}
	if err := r.db.Create(report).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseInsert, "对账报告创建失败", err)
	}

	err := r.sweep(ctx, report)

	report.Duration = time.Since(start).Milliseconds()
	if err != nil {
		report.Status = "failed"
		report.ErrorMsg = err.Error()
		logger.Errorf("[对账服务] 对账清扫中断: %v", err)
	} else {
		report.Status = "success"
		logger.Infof("[对账服务] 对账清扫完成: 遍历 %d, 认领 %d, 登记 %d, 跳过 %d, 失败 %d (%dms)",
			report.Scanned, report.Adopted, report.Registered, report.Skipped, report.Failed, report.Duration)
	}
	if saveErr := r.db.Save(report).Error; saveErr != nil {
		logger.Errorf("[对账服务] 对账报告保存失败: %v", saveErr)
	}

	if err != nil {
		return report, err
	}
	return report, nil
}

// sweep 遍历对象存储并处理每个未登记对象
func (r *reconciler) sweep(ctx context.Context, report *database.SyncReport) error {
	provider, err := r.storageCfg.ActiveProvider()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorageConfigNotFound, "无可用存储配置", err)
	}

	knownKeys, err := r.loadKnownKeys()
	if err != nil {
		return err
	}
	logger.Infof("[对账服务] 已知对象键 %d 个", len(knownKeys))

	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := provider.List("", cursor, r.syncCfg.ListPageSize)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrStorageListFailed, "对象列表获取失败", err)
		}

		for _, object := range page.Objects {
			report.Scanned++
			if _, known := knownKeys[object.Key]; known {
				continue
			}
			r.processObject(ctx, provider, object, knownKeys, report, true)
		}

		if !page.Truncated || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return nil
}

// processObject 处理单个未登记对象
// allowAdopt限制根级对象的移动只发生一次，认领后的重入不再二次移动
func (r *reconciler) processObject(ctx context.Context, provider storage.Provider, object storage.ObjectInfo, knownKeys map[string]struct{}, report *database.SyncReport, allowAdopt bool) {
	key := object.Key

	// 根级对象：移入首个管理员的命名空间后重入处理
	// 扩展名不支持的对象不移动，原样留在存储中
	if !strings.Contains(key, "/") {
		if contentKindOf(path.Ext(key)) == "" {
			report.Skipped++
			logger.Warnf("[对账服务] 根级对象 %s 扩展名不支持，跳过", key)
			return
		}
		if !allowAdopt {
			report.Failed++
			logger.Errorf("[对账服务] 对象 %s 认领后仍是根级键，放弃处理", key)
			return
		}
		adopted, ok := r.adoptRootObject(provider, object, report)
		if !ok {
			return
		}
		report.Adopted++
		// 有界重入：认领后的新键立即按常规对象登记一次
		r.processObject(ctx, provider, adopted, knownKeys, report, false)
		return
	}

	kind := contentKindOf(path.Ext(key))
	if kind == "" {
		report.Skipped++
		logger.Warnf("[对账服务] 对象 %s 扩展名不支持，跳过", key)
		return
	}

	ownerID, ok := ownerFromKey(key)
	if !ok {
		report.Skipped++
		logger.Warnf("[对账服务] 对象 %s 键不符合命名空间约定，跳过", key)
		return
	}
	var owner database.User
	if err := r.db.First(&owner, ownerID).Error; err != nil {
		report.Skipped++
		logger.Warnf("[对账服务] 对象 %s 的所属用户 %d 不存在，跳过", key, ownerID)
		return
	}

	// 插入前重读已知键集合，并发清扫下同一个键至多登记一次
	if _, known := knownKeys[key]; known {
		return
	}
	var count int64
	r.db.Model(&database.File{}).Where("object_key = ?", key).Count(&count)
	if count > 0 {
		knownKeys[key] = struct{}{}
		return
	}

	record, err := r.registerObject(provider, object, &owner, kind)
	if err != nil {
		report.Failed++
		logger.Errorf("[对账服务] 对象 %s 登记失败: %v", key, err)
		return
	}
	knownKeys[key] = struct{}{}
	report.Registered++
	logger.Infof("[对账服务] 对象 %s 已登记为文件 %s", key, record.FileID)

	if r.indexer != nil {
		go r.indexer.IndexFile(context.Background(), record)
	}
}

// adoptRootObject 将根级孤儿对象移入首个管理员的命名空间
// 移动采用复制加删除，原始文件名写入对象自定义元数据
func (r *reconciler) adoptRootObject(provider storage.Provider, object storage.ObjectInfo, report *database.SyncReport) (storage.ObjectInfo, bool) {
	admin, err := r.firstPrivilegedOwner()
	if err != nil {
		report.Skipped++
		logger.Warnf("[对账服务] 对象 %s 无管理员可认领，留在原地待下轮清扫", object.Key)
		return storage.ObjectInfo{}, false
	}

	ext := path.Ext(object.Key)
	newKey := file.ObjectKeyFor(admin.ID, uuid.New().String(), ext)
	metadata := map[string]string{
		storage.MetaOriginalFilename: object.Key,
	}

	if err := provider.Copy(object.Key, newKey, metadata); err != nil {
		report.Failed++
		logger.Errorf("[对账服务] 对象 %s 复制到 %s 失败: %v", object.Key, newKey, err)
		return storage.ObjectInfo{}, false
	}
	if err := provider.Delete(object.Key); err != nil {
		// 删除失败时新副本已存在，下一轮清扫会把旧键再次当作孤儿处理
		report.Failed++
		logger.Errorf("[对账服务] 对象 %s 原件删除失败: %v", object.Key, err)
		return storage.ObjectInfo{}, false
	}

	logger.Infof("[对账服务] 孤儿对象 %s 已认领为 %s (管理员 %d)", object.Key, newKey, admin.ID)

	adopted := object
	adopted.Key = newKey
	return adopted, true
}

// registerObject 为对象插入文件记录
// 标题和正文从对象头部的有限字节中提取
func (r *reconciler) registerObject(provider storage.Provider, object storage.ObjectInfo, owner *database.User, kind string) (*database.File, error) {
	head, err := provider.GetRange(object.Key, int64(r.syncCfg.HeadReadBytes))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageReadFailed, "对象头部读取失败", err)
	}

	title, text := extract.TitleAndText(head, kind)

	fileName := path.Base(object.Key)
	if stat, statErr := provider.Stat(object.Key); statErr == nil {
		if original, exists := stat.Metadata[storage.MetaOriginalFilename]; exists && original != "" {
			fileName = original
		}
	}

	displayName := title
	if displayName == "" {
		displayName = strings.TrimSuffix(fileName, path.Ext(fileName))
	}

	record := &database.File{
		FileID:      uuid.New().String(),
		UserID:      owner.ID,
		FileName:    fileName,
		DisplayName: displayName,
		ContentKind: kind,
		FileSize:    object.Size,
		ObjectKey:   object.Key,
		SearchText:  text,
	}
	if err := r.db.Create(record).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseInsert, "文件记录创建失败", err)
	}
	return record, nil
}

// ReindexBatch 补索引
// 选取正文为空的文件记录，重读对象内容提取正文并更新记录和向量索引
func (r *reconciler) ReindexBatch(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = r.syncCfg.ReindexBatchSize
	}
	if limit <= 0 {
		limit = 50
	}

	var backlog []database.File
	err := r.db.Where("search_text = ? OR search_text IS NULL", "").
		Order("id ASC").Limit(limit).Find(&backlog).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabaseQuery, "补索引积压查询失败", err)
	}
	if len(backlog) == 0 {
		return 0, nil
	}

	provider, err := r.storageCfg.ActiveProvider()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorageConfigNotFound, "无可用存储配置", err)
	}

	processed := 0
	for i := range backlog {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		record := &backlog[i]

		head, err := provider.GetRange(record.ObjectKey, int64(r.syncCfg.HeadReadBytes))
		if err != nil {
			logger.Warnf("[对账服务] 补索引读取对象 %s 失败: %v", record.ObjectKey, err)
			continue
		}

		title, text := extract.TitleAndText(head, record.ContentKind)
		if text == "" {
			// 提取不出正文的记录写入占位符，避免永远留在积压里
			text = " "
		}

		updates := map[string]interface{}{"search_text": text}
		if record.DisplayName == "" && title != "" {
			updates["display_name"] = title
			record.DisplayName = title
		}
		if err := r.db.Model(record).Updates(updates).Error; err != nil {
			logger.Warnf("[对账服务] 补索引更新记录 %s 失败: %v", record.FileID, err)
			continue
		}
		record.SearchText = text
		processed++

		if r.indexer != nil {
			r.indexer.IndexFile(ctx, record)
		}
	}

	logger.Infof("[对账服务] 补索引处理 %d 条记录", processed)
	return processed, nil
}

// LatestReports 返回最近的对账报告
func (r *reconciler) LatestReports(limit int) ([]database.SyncReport, error) {
	if limit <= 0 {
		limit = 10
	}
	var reports []database.SyncReport
	err := r.db.Order("created_at DESC").Limit(limit).Find(&reports).Error
	return reports, err
}

// loadKnownKeys 加载元数据中全部存活文件的对象键
func (r *reconciler) loadKnownKeys() (map[string]struct{}, error) {
	var keys []string
	if err := r.db.Model(&database.File{}).Pluck("object_key", &keys).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "对象键加载失败", err)
	}
	known := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		known[key] = struct{}{}
	}
	return known, nil
}

// firstPrivilegedOwner 返回ID最小的管理员用户
func (r *reconciler) firstPrivilegedOwner() (*database.User, error) {
	var admin database.User
	err := r.db.Where("role = ?", database.RoleAdmin).Order("id ASC").First(&admin).Error
	if err != nil {
		return nil, fmt.Errorf("no privileged owner available: %w", err)
	}
	return &admin, nil
}

// ownerFromKey 从对象键解析所属用户ID，约定格式 files/<用户ID>/<文件名>
func ownerFromKey(key string) (uint, bool) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 || parts[0] != "files" {
		return 0, false
	}
	id, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// contentKindOf 根据扩展名判断内容类型
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
