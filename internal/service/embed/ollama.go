package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/weiwangfds/snapshare/config"
	apperrors "github.com/weiwangfds/snapshare/internal/errors"
	"github.com/weiwangfds/snapshare/internal/logger"
)

// OllamaEmbedder 基于Ollama /api/embed接口的嵌入器实现
type OllamaEmbedder struct {
	host         string
	model        string
	dimensions   int
	maxInputSize int
	client       *http.Client
}

// embedRequest Ollama嵌入请求体
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse Ollama嵌入响应体
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaEmbedder 创建Ollama嵌入器实例
func NewOllamaEmbedder(cfg config.EmbeddingConfig) *OllamaEmbedder {
	host := strings.TrimRight(cfg.Host, "/")
	if host == "" {
		host = "http://localhost:11434"
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OllamaEmbedder{
		host:         host,
		model:        cfg.Model,
		dimensions:   cfg.Dimensions,
		maxInputSize: cfg.MaxInputSize,
		client:       &http.Client{Timeout: timeout},
	}
}

// Embed 调用Ollama生成文本嵌入向量
// 输入超过上限时截断，嵌入失败返回ErrEmbeddingFailed
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.maxInputSize > 0 && len(text) > e.maxInputSize {
		text = text[:e.maxInputSize]
	}

	payload, err := json.Marshal(embedRequest{
		Model: e.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrEmbeddingFailed, "嵌入请求序列化失败", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.host+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrEmbeddingFailed, "嵌入请求构建失败", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrEmbeddingFailed, "嵌入服务调用失败", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logger.Warnf("[嵌入服务] Ollama返回异常状态 %d: %s", resp.StatusCode, string(body))
		return nil, apperrors.New(apperrors.ErrEmbeddingFailed,
			fmt.Sprintf("嵌入服务返回状态 %d", resp.StatusCode))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrEmbeddingFailed, "嵌入响应解析失败", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0]) == 0 {
		return nil, apperrors.New(apperrors.ErrEmbeddingFailed, "嵌入服务返回空向量")
	}

	return result.Embeddings[0], nil
}

// Dimensions 返回配置的向量维度
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Enabled Ollama嵌入器始终可用（实际可用性由调用时的错误体现）
func (e *OllamaEmbedder) Enabled() bool {
	return true
}
