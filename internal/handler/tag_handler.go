// Package handler 提供标签管理相关的HTTP处理器
// 标签归属于单个用户，支持创建、列表、改名、删除及与文件的关联管理
package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiwangfds/snapshare/internal/middleware"
	"github.com/weiwangfds/snapshare/internal/response"
	"github.com/weiwangfds/snapshare/internal/service/tag"
)

// TagHandler 标签处理器
// 处理所有标签相关的HTTP请求
type TagHandler struct {
	tagService tag.Service
}

// NewTagHandler 创建标签处理器实例
func NewTagHandler(tagService tag.Service) *TagHandler {
	return &TagHandler{tagService: tagService}
}

// parseTagID 解析路径中的标签ID
func parseTagID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "标签ID格式错误")
		return 0, false
	}
	return uint(id), true
}

// Create 创建标签
// @Summary 创建新标签
// @Description 创建标签，名称在当前用户下必须唯一
// @Tags 标签管理
// @Accept json
// @Produce json
// @Success 200 {object} response.Response{data=database.Tag} "创建成功"
// @Failure 400 {object} response.Response "标签名称已存在"
// @Router /api/v1/tags [post]
func (h *TagHandler) Create(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	created, err := h.tagService.Create(owner, strings.TrimSpace(req.Name))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "标签创建成功", created)
}

// List 获取标签列表
// @Summary 获取当前用户的标签列表
// @Description 返回全部标签及每个标签关联的文件数
// @Tags 标签管理
// @Produce json
// @Success 200 {object} response.Response{data=[]tag.TagWithCount} "获取成功"
// @Router /api/v1/tags [get]
func (h *TagHandler) List(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	tags, err := h.tagService.List(owner)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, tags)
}

// Rename 标签改名
// @Summary 修改标签名称
// @Tags 标签管理
// @Accept json
// @Produce json
// @Param id path int true "标签ID"
// @Success 200 {object} response.Response{data=database.Tag} "修改成功"
// @Failure 404 {object} response.Response "标签不存在"
// @Router /api/v1/tags/{id} [put]
func (h *TagHandler) Rename(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	tagID, ok := parseTagID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	updated, err := h.tagService.Rename(owner, tagID, strings.TrimSpace(req.Name))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "标签更新成功", updated)
}

// Delete 删除标签
// @Summary 删除标签
// @Description 删除标签并解除其全部文件关联
// @Tags 标签管理
// @Produce json
// @Param id path int true "标签ID"
// @Success 200 {object} response.Response "删除成功"
// @Failure 404 {object} response.Response "标签不存在"
// @Router /api/v1/tags/{id} [delete]
func (h *TagHandler) Delete(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	tagID, ok := parseTagID(c, "id")
	if !ok {
		return
	}

	if err := h.tagService.Delete(owner, tagID); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "标签删除成功", nil)
}

// Attach 给文件打标签
// @Summary 给文件关联标签
// @Description 文件与标签必须属于同一用户，重复关联为幂等操作
// @Tags 标签管理
// @Accept json
// @Produce json
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response "关联成功"
// @Failure 403 {object} response.Response "文件与标签不属于同一用户"
// @Router /api/v1/files/{id}/tags [post]
func (h *TagHandler) Attach(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	var req struct {
		TagID uint `json:"tag_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if err := h.tagService.Attach(owner, c.Param("id"), req.TagID); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "标签关联成功", nil)
}

// Detach 解除文件标签
// @Summary 解除文件的标签关联
// @Tags 标签管理
// @Produce json
// @Param id path string true "文件ID"
// @Param tagID path int true "标签ID"
// @Success 200 {object} response.Response "解除成功"
// @Router /api/v1/files/{id}/tags/{tagID} [delete]
func (h *TagHandler) Detach(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	tagID, ok := parseTagID(c, "tagID")
	if !ok {
		return
	}

	if err := h.tagService.Detach(owner, c.Param("id"), tagID); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "标签解除成功", nil)
}
