// Package handler 提供文件管理相关的HTTP处理器
// 包含文件上传、列表搜索、改名、描述更新、删除和配额查询等API接口
package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiwangfds/snapshare/internal/middleware"
	"github.com/weiwangfds/snapshare/internal/response"
	"github.com/weiwangfds/snapshare/internal/service/file"
	"github.com/weiwangfds/snapshare/internal/service/search"
)

// FileHandler 文件处理器
// 处理所有文件相关的HTTP请求
type FileHandler struct {
	fileService   file.Service
	searchService search.Service
}

// NewFileHandler 创建文件处理器实例
// 参数:
//   fileService - 文件服务接口
//   searchService - 搜索服务接口
// 返回:
//   *FileHandler - 文件处理器实例
func NewFileHandler(fileService file.Service, searchService search.Service) *FileHandler {
	return &FileHandler{
		fileService:   fileService,
		searchService: searchService,
	}
}

// Upload 上传文件
// @Summary 上传文件
// @Description 通过multipart表单上传HTML或Markdown文件，超出配额或类型不支持时拒绝
// @Tags 文件管理
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "文件内容"
// @Success 200 {object} response.Response{data=database.File} "上传成功"
// @Failure 400 {object} response.Response "文件类型不支持或超出大小限制"
// @Router /api/v1/files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "缺少file表单字段")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "文件内容读取失败")
		return
	}
	defer src.Close()

	record, err := h.fileService.Upload(c.Request.Context(), owner, fileHeader.Filename, src, fileHeader.Size)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "上传成功", record)
}

// List 文件列表与搜索
// @Summary 查询文件列表
// @Description 无查询词时按时间倒序分页；带q参数时执行混合搜索，可用tag过滤、mode指定检索方式
// @Tags 文件管理
// @Produce json
// @Param q query string false "搜索关键词"
// @Param mode query string false "检索方式（vector、metadata，默认自动选择）"
// @Param tag query string false "标签过滤"
// @Param page query int false "页码（默认1）"
// @Param page_size query int false "每页数量（默认20）"
// @Success 200 {object} response.Response "查询成功"
// @Router /api/v1/files [get]
func (h *FileHandler) List(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	query := strings.TrimSpace(c.Query("q"))
	tagName := strings.TrimSpace(c.Query("tag"))
	mode := c.Query("mode")

	// 无搜索条件时走普通分页列表
	if query == "" && tagName == "" {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

		files, total, err := h.fileService.List(owner, page, pageSize)
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.SuccessWithPage(c, files, total, page, pageSize)
		return
	}

	topK, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))
	result, err := h.searchService.Search(c.Request.Context(), owner, query, mode, tagName, topK)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// Get 获取文件详情
// @Summary 获取文件详情
// @Tags 文件管理
// @Produce json
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response{data=database.File} "获取成功"
// @Failure 404 {object} response.Response "文件不存在"
// @Router /api/v1/files/{id} [get]
func (h *FileHandler) Get(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	record, err := h.fileService.GetByFileID(owner, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, record)
}

// Content 下载文件内容
// @Summary 下载文件原始内容
// @Description 返回对象存储中的原始字节，按内容类型设置Content-Type
// @Tags 文件管理
// @Produce octet-stream
// @Param id path string true "文件ID"
// @Success 200 {string} binary "文件内容"
// @Failure 404 {object} response.Response "文件不存在"
// @Router /api/v1/files/{id}/content [get]
func (h *FileHandler) Content(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	record, err := h.fileService.GetByFileID(owner, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	data, err := h.fileService.Content(record)
	if err != nil {
		response.FromError(c, err)
		return
	}

	contentType := "text/markdown; charset=utf-8"
	if record.ContentKind == "html" {
		contentType = "text/html; charset=utf-8"
	}
	c.Header("Content-Disposition", "attachment; filename=\""+record.FileName+"\"")
	c.Data(200, contentType, data)
}

// Rename 文件改名
// @Summary 修改文件展示名称
// @Description 修改展示名称并触发搜索索引更新
// @Tags 文件管理
// @Accept json
// @Produce json
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response{data=database.File} "修改成功"
// @Failure 404 {object} response.Response "文件不存在"
// @Router /api/v1/files/{id} [patch]
func (h *FileHandler) Rename(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	var req struct {
		DisplayName string `json:"display_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	record, err := h.fileService.Rename(c.Request.Context(), owner, c.Param("id"), req.DisplayName)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "改名成功", record)
}

// UpdateDescription 更新文件描述
// @Summary 更新文件描述
// @Tags 文件管理
// @Accept json
// @Produce json
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response{data=database.File} "更新成功"
// @Failure 404 {object} response.Response "文件不存在"
// @Router /api/v1/files/{id}/description [patch]
func (h *FileHandler) UpdateDescription(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	var req struct {
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	record, err := h.fileService.UpdateDescription(c.Request.Context(), owner, c.Param("id"), req.Description)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "描述更新成功", record)
}

// Delete 删除文件
// @Summary 删除文件
// @Description 删除对象存储内容、数据库记录、分享和标签关联，并移除搜索索引
// @Tags 文件管理
// @Produce json
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response "删除成功"
// @Failure 404 {object} response.Response "文件不存在"
// @Router /api/v1/files/{id} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	if err := h.fileService.Delete(c.Request.Context(), owner, c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}

// Usage 查询存储配额使用情况
// @Summary 查询存储配额使用情况
// @Tags 文件管理
// @Produce json
// @Success 200 {object} response.Response{data=file.Usage} "查询成功"
// @Router /api/v1/files/usage [get]
func (h *FileHandler) Usage(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	usage, err := h.fileService.GetUsage(owner)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, usage)
}
