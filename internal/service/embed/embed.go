// Package embed 提供文本嵌入向量生成能力
// 当前支持Ollama本地嵌入服务，未配置时退化为禁用实现
package embed

import (
	"context"

	"github.com/weiwangfds/snapshare/config"
	apperrors "github.com/weiwangfds/snapshare/internal/errors"
)

// Embedder 嵌入向量生成接口
type Embedder interface {
	// Embed 为文本生成嵌入向量
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions 返回向量维度
	Dimensions() int

	// Enabled 返回嵌入后端是否可用
	Enabled() bool
}

// NewEmbedder 根据配置创建嵌入器
// 未启用或提供商不识别时返回禁用实现，调用方按词法检索降级处理
func NewEmbedder(cfg config.EmbeddingConfig) Embedder {
	if !cfg.Enabled {
		return NewDisabled()
	}
	switch cfg.Provider {
	case "ollama":
		return NewOllamaEmbedder(cfg)
	default:
		return NewDisabled()
	}
}

// Disabled 禁用态嵌入器
// 所有调用返回嵌入未配置错误
type Disabled struct{}

// NewDisabled 创建禁用态嵌入器
func NewDisabled() *Disabled {
	return &Disabled{}
}

// Embed 始终返回嵌入未配置错误
func (d *Disabled) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, apperrors.ErrEmbeddingDisabledError
}

// Dimensions 禁用态没有向量维度
func (d *Disabled) Dimensions() int {
	return 0
}

// Enabled 禁用态始终返回false
func (d *Disabled) Enabled() bool {
	return false
}
