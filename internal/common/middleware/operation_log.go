// Package middleware 提供 HTTP 中间件
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/market-merchant-backend/internal/common/logger"
	"github.com/dumeirei/market-merchant-backend/internal/models"
	"github.com/dumeirei/market-merchant-backend/internal/repository"
)

// OperationLogger 操作日志中间件
type OperationLogger struct {
	repo  *repository.OperationLogRepository
	async bool
}

// NewOperationLogger 创建操作日志中间件，日志异步写入
func NewOperationLogger(repo *repository.OperationLogRepository) *OperationLogger {
	return &OperationLogger{repo: repo, async: true}
}

// OperationConfig 操作配置
type OperationConfig struct {
	Module     string
	Action     string
	TargetType string
	// TargetParam 目标 ID 所在的路径参数，默认 id
	TargetParam string
}

// routeActions 路由到审计模块与操作的映射，键为 "METHOD 完整路由"
var routeActions = map[string]OperationConfig{
	"POST /api/admin/merchants":                        {Module: "merchant", Action: "create", TargetType: "merchant"},
	"PUT /api/admin/merchants/:id":                     {Module: "merchant", Action: "update", TargetType: "merchant"},
	"DELETE /api/admin/merchants/:id":                  {Module: "merchant", Action: "delete", TargetType: "merchant"},
	"POST /api/admin/merchants/:id/photo":              {Module: "merchant", Action: "upload_photo", TargetType: "merchant"},
	"POST /api/admin/merchants/:id/places/:place_id":   {Module: "merchant", Action: "assign_place", TargetType: "place", TargetParam: "place_id"},
	"DELETE /api/admin/merchants/:id/places/:place_id": {Module: "merchant", Action: "release_place", TargetType: "place", TargetParam: "place_id"},
	"POST /api/admin/merchants/import":                 {Module: "import", Action: "import_merchants"},
	"POST /api/admin/merchants/:id/contracts":          {Module: "contract", Action: "create", TargetType: "merchant"},
	"POST /api/admin/merchants/:id/payments":           {Module: "payment", Action: "create", TargetType: "merchant"},
	"POST /api/admin/auth/logout":                      {Module: "auth", Action: "logout"},
	"PUT /api/admin/auth/password":                     {Module: "auth", Action: "change_password"},
}

// pathModules 路径片段到模块，按匹配优先级排序
var pathModules = []struct {
	segment string
	module  string
}{
	{"payments", "payment"},
	{"contracts", "contract"},
	{"places", "place"},
	{"halls", "hall"},
	{"zones", "zone"},
	{"marchees", "marchee"},
	{"categories", "category"},
	{"annual-fees", "annual_fee"},
	{"merchants", "merchant"},
	{"auth", "auth"},
}

// sensitiveFields 请求体中需要脱敏的字段
var sensitiveFields = []string{
	"password", "token", "secret", "national_id",
}

// Log 记录 /api/admin 下的写操作
func (l *OperationLogger) Log() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isWrite(c.Request.Method) {
			c.Next()
			return
		}

		body := readBody(c)
		c.Next()

		cfg, ok := routeActions[c.Request.Method+" "+c.FullPath()]
		if !ok {
			cfg = inferConfig(c)
		}
		l.save(c, body, cfg)
	}
}

// LogWithConfig 为单个路由指定审计配置
func (l *OperationLogger) LogWithConfig(cfg OperationConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := readBody(c)
		c.Next()
		l.save(c, body, cfg)
	}
}

func (l *OperationLogger) save(c *gin.Context, body []byte, cfg OperationConfig) {
	if l.repo == nil {
		return
	}
	entry, ok := buildEntry(c, body, cfg)
	if !ok {
		return
	}

	// gin.Context 会被复用，异步写入前必须先取出全部数据
	write := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.repo.Create(ctx, entry); err != nil {
			logger.Warn("写入操作日志失败",
				logger.Module(entry.Module), logger.Action(entry.Action), logger.Err(err))
		}
	}
	if l.async {
		go write()
		return
	}
	write()
}

// buildEntry 请求结束时从 gin.Context 中取出审计数据
func buildEntry(c *gin.Context, body []byte, cfg OperationConfig) (*models.OperationLog, bool) {
	v, exists := c.Get("admin_id")
	if !exists {
		return nil, false
	}
	adminID, ok := v.(int64)
	if !ok {
		return nil, false
	}

	log := &models.OperationLog{
		AdminID:    adminID,
		Module:     cfg.Module,
		Action:     cfg.Action,
		StatusCode: c.Writer.Status(),
		IP:         c.ClientIP(),
	}
	if ua := c.Request.UserAgent(); ua != "" {
		if len(ua) > 255 {
			ua = ua[:255]
		}
		log.UserAgent = &ua
	}
	if cfg.TargetType != "" {
		targetType := cfg.TargetType
		log.TargetType = &targetType
		param := cfg.TargetParam
		if param == "" {
			param = "id"
		}
		if id, err := strconv.ParseInt(c.Param(param), 10, 64); err == nil && id > 0 {
			log.TargetID = &id
		}
	}
	if len(body) > 0 {
		var data interface{}
		if err := json.Unmarshal(body, &data); err == nil {
			if m, ok := maskSensitive(data).(map[string]interface{}); ok {
				log.AfterData = m
			}
		}
	}
	return log, true
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// readBody 读取 JSON 请求体并放回，multipart 上传不读取
func readBody(c *gin.Context) []byte {
	if c.Request.Body == nil || !strings.HasPrefix(c.ContentType(), "application/json") {
		return nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	return body
}

// inferConfig 未登记的路由按路径与方法推断
func inferConfig(c *gin.Context) OperationConfig {
	path := c.FullPath()
	module := "unknown"
	for _, seg := range pathModules {
		if strings.Contains(path, "/"+seg.segment) {
			module = seg.module
			break
		}
	}

	action := "unknown"
	switch c.Request.Method {
	case http.MethodPost:
		action = "create"
	case http.MethodPut, http.MethodPatch:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	}

	cfg := OperationConfig{Module: module, Action: action}
	if c.Param("id") != "" && module != "unknown" {
		cfg.TargetType = module
	}
	return cfg
}

// maskSensitive 递归脱敏
func maskSensitive(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = "***"
				continue
			}
			out[key] = maskSensitive(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = maskSensitive(item)
		}
		return out
	default:
		return data
	}
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, f := range sensitiveFields {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
