// Package middleware 提供 HTTP 中间件
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggingConfig 访问日志配置
type LoggingConfig struct {
	Logger       *zap.Logger
	SkipPaths    []string // 完全匹配
	SkipPrefixes []string // 前缀匹配，如 /swagger/
	// LogRequestBody 记录 JSON 请求体，RedactFields 中的字段替换为 ***
	LogRequestBody bool
	RedactFields   []string
	MaxBodySize    int
}

// DefaultLoggingConfig 默认访问日志配置
func DefaultLoggingConfig(logger *zap.Logger) *LoggingConfig {
	return &LoggingConfig{
		Logger:         logger,
		SkipPaths:      []string{"/health", "/ping", "/ready", "/metrics", "/favicon.ico"},
		SkipPrefixes:   []string{"/swagger/"},
		LogRequestBody: true,
		RedactFields:   []string{"password", "old_password", "new_password", "refresh_token", "national_id"},
		MaxBodySize:    1024,
	}
}

// Logging 访问日志中间件
func Logging(config *LoggingConfig) gin.HandlerFunc {
	skipPaths := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = struct{}{}
	}
	redact := make(map[string]struct{}, len(config.RedactFields))
	for _, f := range config.RedactFields {
		redact[f] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skipPaths[path]; ok || hasAnyPrefix(path, config.SkipPrefixes) {
			c.Next()
			return
		}

		start := time.Now()

		var body string
		if config.LogRequestBody && isJSON(c) && c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			body = redactBody(raw, redact, config.MaxBodySize)
		}

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if q := c.Request.URL.RawQuery; q != "" && !strings.Contains(q, "token=") {
			fields = append(fields, zap.String("query", q))
		}
		if adminID := GetAdminID(c); adminID > 0 {
			fields = append(fields, zap.Int64("admin_id", adminID), zap.String("username", GetUsername(c)))
		}
		if body != "" {
			fields = append(fields, zap.String("request_body", body))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			config.Logger.Error("HTTP Request", fields...)
		case status >= 400:
			config.Logger.Warn("HTTP Request", fields...)
		default:
			config.Logger.Info("HTTP Request", fields...)
		}
	}
}

// AccessLog 默认配置的访问日志
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return Logging(DefaultLoggingConfig(logger))
}

// isJSON 仅记录 JSON 请求体，文件上传不读取
func isJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "application/json")
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// redactBody 隐藏敏感字段并截断，非对象请求体原样截断
func redactBody(raw []byte, redact map[string]struct{}, max int) string {
	if len(raw) == 0 {
		return ""
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		for k := range obj {
			if _, ok := redact[k]; ok {
				obj[k] = "***"
			}
		}
		if b, err := json.Marshal(obj); err == nil {
			raw = b
		}
	}

	if max > 0 && len(raw) > max {
		return string(raw[:max]) + "...(truncated)"
	}
	return string(raw)
}
