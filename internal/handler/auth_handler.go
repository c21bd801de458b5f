// Package handler 提供认证相关的HTTP处理器
// 身份协议本身由外部系统完成，这里只消费已签发的令牌
// 开发用令牌签发接口仅在配置显式开启时注册
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiwangfds/snapshare/internal/middleware"
	"github.com/weiwangfds/snapshare/internal/response"
	"github.com/weiwangfds/snapshare/internal/service/file"
	"github.com/weiwangfds/snapshare/internal/service/user"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authManager *middleware.AuthManager
	userService user.Service
	fileService file.Service
}

// NewAuthHandler 创建认证处理器实例
func NewAuthHandler(authManager *middleware.AuthManager, userService user.Service, fileService file.Service) *AuthHandler {
	return &AuthHandler{
		authManager: authManager,
		userService: userService,
		fileService: fileService,
	}
}

// Me 查询当前用户信息
// @Summary 查询当前用户信息
// @Description 返回用户资料和存储配额使用情况
// @Tags 认证
// @Produce json
// @Success 200 {object} response.Response "查询成功"
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	current := middleware.CurrentUser(c)

	usage, err := h.fileService.GetUsage(current)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user":  current,
		"usage": usage,
	})
}

// IssueDevToken 签发开发用令牌
// @Summary 签发开发用令牌
// @Description 按GitHub标识创建或获取用户并签发JWT，仅在enable_dev_token开启时可用
// @Tags 认证
// @Accept json
// @Produce json
// @Success 200 {object} response.Response "签发成功"
// @Router /auth/token [post]
func (h *AuthHandler) IssueDevToken(c *gin.Context) {
	var req struct {
		GithubID  string `json:"github_id" binding:"required"`
		Username  string `json:"username" binding:"required"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	record, err := h.userService.GetOrCreate(req.GithubID, req.Username, req.AvatarURL)
	if err != nil {
		response.FromError(c, err)
		return
	}

	token, err := h.authManager.IssueToken(record.ID)
	if err != nil {
		response.InternalServerError(c, "令牌签发失败")
		return
	}

	response.Success(c, gin.H{
		"token": token,
		"user":  record,
	})
}
