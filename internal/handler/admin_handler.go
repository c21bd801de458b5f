// Package handler 提供管理员专用的HTTP处理器
// 包含用户管理、对象清扫触发、补索引触发和清扫报告查询
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiwangfds/snapshare/internal/response"
	"github.com/weiwangfds/snapshare/internal/service/sync"
	"github.com/weiwangfds/snapshare/internal/service/user"
)

// AdminHandler 管理员处理器
// 全部接口要求管理员角色，由路由层中间件保障
type AdminHandler struct {
	userService user.Service
	syncService sync.Service
}

// NewAdminHandler 创建管理员处理器实例
func NewAdminHandler(userService user.Service, syncService sync.Service) *AdminHandler {
	return &AdminHandler{
		userService: userService,
		syncService: syncService,
	}
}

// ListUsers 查询用户列表
// @Summary 查询用户列表
// @Description 分页查询全部用户，支持按角色、状态过滤和用户名模糊搜索
// @Tags 管理员
// @Produce json
// @Param page query int false "页码（默认1）"
// @Param page_size query int false "每页数量（默认20）"
// @Param role query string false "角色过滤（admin、user）"
// @Param status query string false "状态过滤（active、pending、locked）"
// @Param search query string false "用户名关键词"
// @Success 200 {object} response.Response "查询成功"
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	users, total, err := h.userService.List(user.ListOptions{
		Page:     page,
		PageSize: pageSize,
		Role:     c.Query("role"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithPage(c, users, total, page, pageSize)
}

// UpdateUserStatus 更新用户状态
// @Summary 更新用户状态
// @Description 在active、pending、locked之间切换用户状态
// @Tags 管理员
// @Accept json
// @Produce json
// @Param id path int true "用户ID"
// @Success 200 {object} response.Response{data=database.User} "更新成功"
// @Failure 404 {object} response.Response "用户不存在"
// @Router /api/v1/admin/users/{id}/status [patch]
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "用户ID格式错误")
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	record, err := h.userService.SetStatus(uint(userID), req.Status)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "用户状态已更新", record)
}

// UpdateUserQuota 更新用户存储配额
// @Summary 更新用户存储配额
// @Tags 管理员
// @Accept json
// @Produce json
// @Param id path int true "用户ID"
// @Success 200 {object} response.Response{data=database.User} "更新成功"
// @Failure 404 {object} response.Response "用户不存在"
// @Router /api/v1/admin/users/{id}/quota [patch]
func (h *AdminHandler) UpdateUserQuota(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "用户ID格式错误")
		return
	}

	var req struct {
		StorageLimit int64 `json:"storage_limit" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	record, err := h.userService.SetQuota(uint(userID), req.StorageLimit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "用户配额已更新", record)
}

// TriggerSync 手动触发对象清扫
// @Summary 手动触发对象清扫
// @Description 同步执行一轮对象存储与数据库的对账，已有清扫进行中时返回冲突
// @Tags 管理员
// @Produce json
// @Success 200 {object} response.Response{data=database.SyncReport} "清扫完成"
// @Failure 409 {object} response.Response "清扫已在进行中"
// @Router /api/v1/admin/sync [post]
func (h *AdminHandler) TriggerSync(c *gin.Context) {
	report, err := h.syncService.Reconcile(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "清扫完成", report)
}

// TriggerReindex 手动触发补索引
// @Summary 手动触发补索引
// @Description 对缺少搜索文本的历史文件批量补提取，limit限制单批数量
// @Tags 管理员
// @Produce json
// @Param limit query int false "单批处理数量"
// @Success 200 {object} response.Response "处理完成"
// @Router /api/v1/admin/reindex [post]
func (h *AdminHandler) TriggerReindex(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	processed, err := h.syncService.ReindexBatch(c.Request.Context(), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"processed": processed})
}

// SyncReports 查询清扫报告
// @Summary 查询最近的清扫报告
// @Tags 管理员
// @Produce json
// @Param limit query int false "返回数量（默认10）"
// @Success 200 {object} response.Response{data=[]database.SyncReport} "查询成功"
// @Router /api/v1/admin/sync/report [get]
func (h *AdminHandler) SyncReports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	reports, err := h.syncService.LatestReports(limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, reports)
}
