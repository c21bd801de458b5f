package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/weiwangfds/snapshare/internal/logger"
)

// RequestID 请求ID中间件
// 为每个请求生成唯一的请求ID，写入上下文和响应头，用于链路追踪
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// AccessLogger 访问日志中间件
// 记录每个请求的方法、路径、状态码、耗时等信息
func AccessLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// 处理请求
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       path,
			"raw_query":  raw,
			"user_agent": c.Request.UserAgent(),
			"body_size":  c.Writer.Size(),
		})

		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("HTTP请求处理失败")
		case status >= 400:
			entry.Warn("HTTP请求异常")
		default:
			entry.Info("HTTP请求完成")
		}
	}
}

// bodyCaptureWriter 响应捕获写入器，仅用于调试日志
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现io.Writer接口，捕获响应数据
func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// DebugBodyLogger 调试日志中间件
// 开发环境下记录请求体和响应体，生产环境不应启用
func DebugBodyLogger(maxBodySize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer, body: bytes.NewBuffer(nil)}
		c.Writer = writer

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})
		if len(requestBody) > 0 {
			entry = entry.WithField("request_body", tryParseJSON(requestBody))
		}
		if writer.body.Len() > 0 {
			entry = entry.WithField("response_body", tryParseJSON(writer.body.Bytes()))
		}
		entry.Debug("HTTP请求详情")
	}
}

// tryParseJSON 尝试解析JSON，失败时返回原始字符串
func tryParseJSON(data []byte) interface{} {
	var parsed interface{}
	if err := json.Unmarshal(data, &parsed); err == nil {
		return parsed
	}
	return string(data)
}
