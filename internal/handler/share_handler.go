// Package handler 提供分享相关的HTTP处理器
// 包含分享开关管理接口和无需认证的公开访问端点
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiwangfds/snapshare/internal/database"
	"github.com/weiwangfds/snapshare/internal/logger"
	"github.com/weiwangfds/snapshare/internal/middleware"
	"github.com/weiwangfds/snapshare/internal/response"
	"github.com/weiwangfds/snapshare/internal/service/file"
	"github.com/weiwangfds/snapshare/internal/service/render"
	"github.com/weiwangfds/snapshare/internal/service/share"
)

// rawContentCSP 公开分享页的安全头
// 沙箱化用户上传内容，禁止其访问站点其他资源
const rawContentCSP = "sandbox allow-scripts allow-same-origin; default-src 'self'; style-src 'unsafe-inline'; img-src * data:;"

// ShareHandler 分享处理器
// 处理分享开关和公开访问请求
type ShareHandler struct {
	shareService share.Service
	fileService  file.Service
}

// NewShareHandler 创建分享处理器实例
func NewShareHandler(shareService share.Service, fileService file.Service) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
		fileService:  fileService,
	}
}

// Toggle 开启或关闭文件分享
// @Summary 开启或关闭文件分享
// @Description 首次开启生成分享标识；关闭后重新开启沿用原标识，历史链接继续有效
// @Tags 分享管理
// @Accept json
// @Produce json
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response{data=database.Share} "操作成功"
// @Failure 404 {object} response.Response "文件不存在"
// @Router /api/v1/files/{id}/share [post]
func (h *ShareHandler) Toggle(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	var (
		record *database.Share
		err    error
	)
	if *req.Enabled {
		record, err = h.shareService.Enable(owner, c.Param("id"))
	} else {
		record, err = h.shareService.Disable(owner, c.Param("id"))
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "分享状态已更新", record)
}

// Get 查询文件的分享状态
// @Summary 查询文件的分享状态
// @Tags 分享管理
// @Produce json
// @Param id path string true "文件ID"
// @Success 200 {object} response.Response{data=database.Share} "查询成功，未分享时data为空"
// @Router /api/v1/files/{id}/share [get]
func (h *ShareHandler) Get(c *gin.Context) {
	owner := middleware.CurrentUser(c)

	record, err := h.shareService.GetByFileID(owner, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, record)
}

// Info 公开查询分享信息
// @Summary 查询分享信息（公开）
// @Description 按分享标识返回文件基本信息，不含正文内容
// @Tags 公开访问
// @Produce json
// @Param shareID path string true "分享标识"
// @Success 200 {object} response.Response "查询成功"
// @Failure 404 {object} response.Response "分享不存在或已禁用"
// @Router /api/s/{shareID} [get]
func (h *ShareHandler) Info(c *gin.Context) {
	record, fileRecord, err := h.shareService.Resolve(c.Param("shareID"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"share_id":     record.ShareID,
		"display_name": fileRecord.DisplayName,
		"content_kind": fileRecord.ContentKind,
		"file_size":    fileRecord.FileSize,
		"visit_count":  record.VisitCount,
		"created_at":   record.CreatedAt,
	})
}

// Raw 公开访问分享内容
// @Summary 访问分享内容（公开）
// @Description HTML文件原样输出，Markdown渲染为完整HTML页面；访问计数异步累加
// @Tags 公开访问
// @Produce html
// @Param shareID path string true "分享标识"
// @Success 200 {string} html "文件内容"
// @Failure 404 {object} response.Response "分享不存在或已禁用"
// @Router /raw/{shareID} [get]
func (h *ShareHandler) Raw(c *gin.Context) {
	shareID := c.Param("shareID")

	_, fileRecord, err := h.shareService.Resolve(shareID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	data, err := h.fileService.Content(fileRecord)
	if err != nil {
		response.FromError(c, err)
		return
	}

	// 访问计数不阻塞内容输出，失败仅记日志
	go func() {
		if err := h.shareService.RecordVisit(shareID); err != nil {
			logger.Warnf("[分享处理器] 访问计数更新失败 %s: %v", shareID, err)
		}
	}()

	c.Header("Content-Security-Policy", rawContentCSP)
	if fileRecord.ContentKind == database.KindMarkdown {
		c.Data(http.StatusOK, "text/html; charset=utf-8", render.MarkdownToPage(data, fileRecord.DisplayName))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}
