// Package handler 提供存储配置管理相关的HTTP处理器
// 支持多云存储配置的增删改查、激活切换和连接测试
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiwangfds/snapshare/internal/database"
	"github.com/weiwangfds/snapshare/internal/response"
	"github.com/weiwangfds/snapshare/internal/service/storage"
)

// StorageHandler 存储配置处理器
// 全部接口要求管理员角色，由路由层中间件保障
type StorageHandler struct {
	configService storage.ConfigService
}

// NewStorageHandler 创建存储配置处理器实例
func NewStorageHandler(configService storage.ConfigService) *StorageHandler {
	return &StorageHandler{configService: configService}
}

// parseConfigID 解析路径中的配置ID
func parseConfigID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "配置ID格式错误")
		return 0, false
	}
	return uint(id), true
}

// Create 创建存储配置
// @Summary 创建存储配置
// @Description 创建新的存储配置，首个配置自动激活
// @Tags 存储配置
// @Accept json
// @Produce json
// @Success 200 {object} response.Response{data=database.StorageConfig} "创建成功"
// @Failure 400 {object} response.Response "配置参数错误"
// @Router /api/v1/admin/storage/configs [post]
func (h *StorageHandler) Create(c *gin.Context) {
	var config database.StorageConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if err := h.configService.CreateConfig(&config); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "存储配置创建成功", config)
}

// Get 获取存储配置详情
// @Summary 获取存储配置详情
// @Tags 存储配置
// @Produce json
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response{data=database.StorageConfig} "获取成功"
// @Failure 404 {object} response.Response "配置不存在"
// @Router /api/v1/admin/storage/configs/{id} [get]
func (h *StorageHandler) Get(c *gin.Context) {
	id, ok := parseConfigID(c)
	if !ok {
		return
	}

	config, err := h.configService.GetConfigByID(id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, config)
}

// List 获取存储配置列表
// @Summary 获取全部存储配置
// @Tags 存储配置
// @Produce json
// @Success 200 {object} response.Response{data=[]database.StorageConfig} "获取成功"
// @Router /api/v1/admin/storage/configs [get]
func (h *StorageHandler) List(c *gin.Context) {
	configs, err := h.configService.ListConfigs()
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, configs)
}

// Update 更新存储配置
// @Summary 更新存储配置
// @Tags 存储配置
// @Accept json
// @Produce json
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response{data=database.StorageConfig} "更新成功"
// @Failure 404 {object} response.Response "配置不存在"
// @Router /api/v1/admin/storage/configs/{id} [put]
func (h *StorageHandler) Update(c *gin.Context) {
	id, ok := parseConfigID(c)
	if !ok {
		return
	}

	var config database.StorageConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}
	config.ID = id

	if err := h.configService.UpdateConfig(&config); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "存储配置更新成功", config)
}

// Delete 删除存储配置
// @Summary 删除存储配置
// @Description 激活中的配置不允许删除
// @Tags 存储配置
// @Produce json
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response "删除成功"
// @Failure 400 {object} response.Response "激活中的配置不允许删除"
// @Router /api/v1/admin/storage/configs/{id} [delete]
func (h *StorageHandler) Delete(c *gin.Context) {
	id, ok := parseConfigID(c)
	if !ok {
		return
	}

	if err := h.configService.DeleteConfig(id); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "存储配置删除成功", nil)
}

// Activate 激活存储配置
// @Summary 激活存储配置
// @Description 激活指定配置并取消其他配置的激活状态
// @Tags 存储配置
// @Produce json
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response "激活成功"
// @Failure 404 {object} response.Response "配置不存在"
// @Router /api/v1/admin/storage/configs/{id}/activate [post]
func (h *StorageHandler) Activate(c *gin.Context) {
	id, ok := parseConfigID(c)
	if !ok {
		return
	}

	if err := h.configService.ActivateConfig(id); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "存储配置已激活", nil)
}

// Test 测试存储配置连接
// @Summary 测试存储配置连接
// @Description 用配置创建客户端并执行一次探测请求
// @Tags 存储配置
// @Produce json
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response "连接正常"
// @Failure 500 {object} response.Response "连接失败"
// @Router /api/v1/admin/storage/configs/{id}/test [post]
func (h *StorageHandler) Test(c *gin.Context) {
	id, ok := parseConfigID(c)
	if !ok {
		return
	}

	if err := h.configService.TestConfig(id); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "存储连接正常", nil)
}

// GetActive 获取当前激活的存储配置
// @Summary 获取当前激活的存储配置
// @Tags 存储配置
// @Produce json
// @Success 200 {object} response.Response{data=database.StorageConfig} "获取成功"
// @Failure 404 {object} response.Response "没有激活的配置"
// @Router /api/v1/admin/storage/configs/active [get]
func (h *StorageHandler) GetActive(c *gin.Context) {
	config, err := h.configService.GetActiveConfig()
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, config)
}

// Toggle 启用或禁用存储配置
// @Summary 启用或禁用存储配置
// @Description 激活中的配置不允许禁用
// @Tags 存储配置
// @Accept json
// @Produce json
// @Param id path int true "配置ID"
// @Success 200 {object} response.Response "操作成功"
// @Router /api/v1/admin/storage/configs/{id}/toggle [post]
func (h *StorageHandler) Toggle(c *gin.Context) {
	id, ok := parseConfigID(c)
	if !ok {
		return
	}

	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if err := h.configService.ToggleConfig(id, *req.Enabled); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "存储配置状态已更新", nil)
}
