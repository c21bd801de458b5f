// Package search 实现混合检索的查询规划
// 向量检索与词法元数据检索互为补充：向量后端失败或零命中时降级为词法检索，
// 降级对调用方透明，不作为错误上报
package search

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/weiwangfds/snapshare/internal/database"
	"github.com/weiwangfds/snapshare/internal/logger"
	"github.com/weiwangfds/snapshare/internal/service/embed"
	"github.com/weiwangfds/snapshare/internal/service/vector"
)

// 检索模式常量
const (
	ModeVector   = "vector"   // 向量相似度检索
	ModeMetadata = "metadata" // 词法元数据检索
)

// snippetRadius 摘要在命中词两侧保留的字符数
const snippetRadius = 60

// Item 检索结果项
type Item struct {
	File    database.File `json:"file"`    // 文件记录
	Score   float32       `json:"score"`   // 相似度得分，词法命中时为0
	Snippet string        `json:"snippet"` // 命中摘要，用于界面高亮
}

// Result 检索结果
type Result struct {
	Items    []Item `json:"items"`    // 有序结果列表
	Mode     string `json:"mode"`     // 实际使用的检索模式
	Degraded bool   `json:"degraded"` // 向量检索是否发生降级
}

// Service 搜索服务接口
// 同时实现文件服务的Indexer回调，维护向量索引与元数据的最终一致
type Service interface {
	// Search 按所有者范围检索文件，mode为空时自动选择
	Search(ctx context.Context, owner *database.User, query string, mode string, tagName string, topK int) (*Result, error)

	// IndexFile 为文件建立或更新向量索引，失败只记录日志
	IndexFile(ctx context.Context, file *database.File)

	// RemoveFile 将文件移出向量索引
	RemoveFile(fileID string)
}

// searchService 搜索服务实现
type searchService struct {
	db       *gorm.DB
	embedder embed.Embedder
	index    vector.Index
	topK     int
}

// NewService 创建搜索服务实例
func NewService(db *gorm.DB, embedder embed.Embedder, index vector.Index, defaultTopK int) Service {
	if defaultTopK <= 0 {
		defaultTopK = 20
	}
	return &searchService{
		db:       db,
		embedder: embedder,
		index:    index,
		topK:     defaultTopK,
	}
}

// Search 检索文件
// 空查询返回最近创建的文件；向量模式在失败或零命中时回退词法检索
func (s *searchService) Search(ctx context.Context, owner *database.User, query string, mode string, tagName string, topK int) (*Result, error) {
	if topK <= 0 {
		topK = s.topK
	}
	query = strings.TrimSpace(query)

	if query == "" {
		return s.recentFiles(owner, tagName, topK)
	}

	if mode == "" {
		if s.embedder.Enabled() {
			mode = ModeVector
		} else {
			mode = ModeMetadata
		}
	}

	if mode == ModeVector && s.embedder.Enabled() {
		result, err := s.vectorSearch(ctx, owner, query, tagName, topK)
		if err != nil {
			// 向量路径失败属于软降级，不向调用方暴露
			logger.Warnf("[搜索服务] 向量检索降级为词法检索: %v", err)
			fallback, ferr := s.metadataSearch(owner, query, tagName, topK)
			if ferr != nil {
				return nil, ferr
			}
			fallback.Degraded = true
			return fallback, nil
		}
		if len(result.Items) == 0 {
			fallback, ferr := s.metadataSearch(owner, query, tagName, topK)
			if ferr != nil {
				return nil, ferr
			}
			fallback.Degraded = result.Degraded
			return fallback, nil
		}
		return result, nil
	}

	return s.metadataSearch(owner, query, tagName, topK)
}

// recentFiles 空查询时按创建时间倒序返回文件
func (s *searchService) recentFiles(owner *database.User, tagName string, topK int) (*Result, error) {
	query := s.scopedQuery(owner, tagName)

	var records []database.File
	if err := query.Order("files.created_at DESC").Limit(topK).Find(&records).Error; err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(records))
	for _, record := range records {
		items = append(items, Item{File: record})
	}
	return &Result{Items: items, Mode: ModeMetadata}, nil
}

// vectorSearch 向量相似度检索
// 嵌入查询向量后检索索引，命中按所有者过滤再回查元数据，保持相似度排序
func (s *searchService) vectorSearch(ctx context.Context, owner *database.User, query string, tagName string, topK int) (*Result, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := s.index.Query(vec, topK*2)
	if err != nil {
		return nil, err
	}

	// 索引负载里带所有者，先过滤再回查，避免越权命中
	orderedIDs := make([]string, 0, topK)
	scores := make(map[string]float32, topK)
	for _, match := range matches {
		if match.Payload.OwnerID != owner.ID {
			continue
		}
		orderedIDs = append(orderedIDs, match.ID)
		scores[match.ID] = match.Score
		if len(orderedIDs) >= topK {
			break
		}
	}
	if len(orderedIDs) == 0 {
		return &Result{Items: []Item{}, Mode: ModeVector}, nil
	}

	var records []database.File
	if err := s.scopedQuery(owner, tagName).Where("files.file_id IN ?", orderedIDs).Find(&records).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]database.File, len(records))
	for _, record := range records {
		byID[record.FileID] = record
	}

	// 按相似度原序组装结果
	items := make([]Item, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		record, exists := byID[id]
		if !exists {
			continue
		}
		items = append(items, Item{
			File:    record,
			Score:   scores[id],
			Snippet: makeSnippet(record.SearchText, query),
		})
	}
	return &Result{Items: items, Mode: ModeVector}, nil
}

// metadataSearch 词法元数据检索
// 在展示名和描述上做大小写不敏感的子串匹配
func (s *searchService) metadataSearch(owner *database.User, query string, tagName string, topK int) (*Result, error) {
	pattern := "%" + strings.ToLower(query) + "%"

	var records []database.File
	err := s.scopedQuery(owner, tagName).
		Where("LOWER(files.display_name) LIKE ? OR LOWER(files.description) LIKE ?", pattern, pattern).
		Order("files.updated_at DESC").
		Limit(topK).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(records))
	for _, record := range records {
		items = append(items, Item{
			File:    record,
			Snippet: makeSnippet(record.SearchText, query),
		})
	}
	return &Result{Items: items, Mode: ModeMetadata}, nil
}

// scopedQuery 构造所有者范围的查询，可选按标签名过滤
func (s *searchService) scopedQuery(owner *database.User, tagName string) *gorm.DB {
	query := s.db.Model(&database.File{}).Where("files.user_id = ?", owner.ID)
	if tagName != "" {
		query = query.
			Joins("JOIN file_tags ON file_tags.file_id = files.id").
			Joins("JOIN tags ON tags.id = file_tags.tag_id").
			Where("tags.name = ? AND tags.user_id = ?", tagName, owner.ID)
	}
	return query
}

// IndexFile 为文件建立或更新向量索引
// 嵌入失败或索引失败都只记录日志，由补索引任务兜底
func (s *searchService) IndexFile(ctx context.Context, file *database.File) {
	if !s.embedder.Enabled() {
		return
	}
	if strings.TrimSpace(file.SearchText) == "" {
		return
	}

	text := file.DisplayName + "\n" + file.SearchText
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		logger.Warnf("[搜索服务] 文件 %s 嵌入生成失败: %v", file.FileID, err)
		return
	}

	err = s.index.Upsert(file.FileID, vec, vector.Payload{
		OwnerID:     file.UserID,
		DisplayName: file.DisplayName,
	})
	if err != nil {
		logger.Warnf("[搜索服务] 文件 %s 索引更新失败: %v", file.FileID, err)
		return
	}
	logger.Debugf("[搜索服务] 文件 %s 索引更新完成", file.FileID)
}

// RemoveFile 将文件移出向量索引
func (s *searchService) RemoveFile(fileID string) {
	if err := s.index.DeleteByIDs([]string{fileID}); err != nil {
		logger.Warnf("[搜索服务] 文件 %s 索引删除失败: %v", fileID, err)
	}
}

// makeSnippet 围绕首个命中位置截取摘要
// 未命中正文时返回正文开头一段
func makeSnippet(text string, query string) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)

	lowerText := strings.ToLower(text)
	lowerQuery := strings.ToLower(query)
	byteIdx := strings.Index(lowerText, lowerQuery)

	start := 0
	end := len(runes)
	if byteIdx >= 0 {
		// Unicode小写化可能改变字节长度，命中位置只能按小写串的符文数换算，
		// ToLower逐符文映射，符文下标在原文与小写串之间一致
		runeIdx := utf8.RuneCountInString(lowerText[:byteIdx])
		start = runeIdx - snippetRadius
		end = runeIdx + utf8.RuneCountInString(lowerQuery) + snippetRadius
	} else {
		end = 2 * snippetRadius
	}
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}

	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(runes) {
		snippet = snippet + "…"
	}
	return snippet
}
