// Package config 配置管理单元测试
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== Load 测试 ====================

func TestLoad_WithDefaultValues(t *testing.T) {
	// 不指定配置文件路径，使用默认搜索路径
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "market-merchant-backend", cfg.Server.Name)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
}

func TestLoad_WithConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.yaml")

	configContent := `
server:
  name: "test-server"
  mode: "release"
  port: 9000
business:
  locale: "fr"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	// sync.Once 可能导致返回之前加载的配置，但不应该返回 error
	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)
}

// ==================== Get 测试 ====================

func TestGet_ReturnsSameInstance(t *testing.T) {
	cfg1 := Get()
	cfg2 := Get()
	assert.Equal(t, cfg1, cfg2)
}

// ==================== DatabaseConfig 测试 ====================

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		config DatabaseConfig
		want   string
	}{
		{
			name: "Standard config",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "postgres",
				Password: "secret",
				Name:     "market",
				SSLMode:  "disable",
				Timezone: "UTC",
			},
			want: "host=localhost port=5432 user=postgres password=secret dbname=market sslmode=disable TimeZone=UTC",
		},
		{
			name: "Remote database",
			config: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				User:     "admin",
				Password: "p@ssw0rd",
				Name:     "production",
				SSLMode:  "require",
				Timezone: "Africa/Casablanca",
			},
			want: "host=db.example.com port=5433 user=admin password=p@ssw0rd dbname=production sslmode=require TimeZone=Africa/Casablanca",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.DSN())
		})
	}
}

// ==================== RedisConfig 测试 ====================

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "localhost:6379", (&RedisConfig{Host: "localhost", Port: 6379}).Addr())
	assert.Equal(t, "192.168.1.100:6380", (&RedisConfig{Host: "192.168.1.100", Port: 6380}).Addr())
}

// ==================== JWTConfig 测试 ====================

func TestJWTConfig_Durations(t *testing.T) {
	tests := []struct {
		name   string
		expire int
		want   time.Duration
	}{
		{"1 hour", 1, 1 * time.Hour},
		{"24 hours", 24, 24 * time.Hour},
		{"168 hours (7 days)", 168, 168 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := JWTConfig{AccessTokenExpire: tt.expire, RefreshTokenExpire: tt.expire}
			assert.Equal(t, tt.want, config.AccessTokenDuration())
			assert.Equal(t, tt.want, config.RefreshTokenDuration())
		})
	}
}

// ==================== OSSConfig 测试 ====================

func TestOSSConfig_Enabled(t *testing.T) {
	assert.False(t, (&OSSConfig{}).Enabled())
	assert.False(t, (&OSSConfig{Endpoint: "oss-cn.aliyuncs.com"}).Enabled())
	assert.True(t, (&OSSConfig{Endpoint: "oss-cn.aliyuncs.com", AccessKeyID: "ak", Bucket: "photos"}).Enabled())
}

// ==================== Config 模式测试 ====================

func TestConfig_Modes(t *testing.T) {
	tests := []struct {
		mode        string
		wantDebug   bool
		wantRelease bool
	}{
		{"debug", true, false},
		{"release", false, true},
		{"test", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			config := &Config{Server: ServerConfig{Mode: tt.mode}}
			assert.Equal(t, tt.wantDebug, config.IsDebug())
			assert.Equal(t, tt.wantRelease, config.IsRelease())
		})
	}
}

// ==================== 默认值测试 ====================

func TestBusinessConfig_Defaults(t *testing.T) {
	cfg := Get()

	assert.Equal(t, "en", cfg.Business.Locale)
	assert.Equal(t, 5000, cfg.Business.ImportMaxRows)
	assert.Equal(t, int64(10*1024*1024), cfg.Business.MaxUploadSize)
}

func TestConfig_AllFieldsPopulated(t *testing.T) {
	cfg := Get()
	require.NotNil(t, cfg)

	assert.NotEmpty(t, cfg.Server.Name)
	assert.NotZero(t, cfg.Server.Port)
	assert.NotEmpty(t, cfg.Database.Driver)
	assert.NotEmpty(t, cfg.Redis.Host)
	assert.NotEmpty(t, cfg.JWT.Secret)
	assert.NotZero(t, cfg.JWT.AccessTokenExpire)
	assert.NotEmpty(t, cfg.Logger.Level)
	assert.NotEmpty(t, cfg.Logger.Format)
}

func TestCORSConfig_Defaults(t *testing.T) {
	cfg := Get()

	assert.Contains(t, cfg.CORS.AllowedOrigins, "*")
	assert.Contains(t, cfg.CORS.AllowedMethods, "PATCH")
	assert.Contains(t, cfg.CORS.AllowedHeaders, "Authorization")
	assert.Contains(t, cfg.CORS.ExposedHeaders, "Content-Disposition")
	assert.Equal(t, 86400, cfg.CORS.MaxAge)
}

func TestObservabilityDefaults(t *testing.T) {
	cfg := Get()

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "market_merchant", cfg.Metrics.Namespace)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRate)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 60*time.Second, cfg.RateLimit.WindowDuration())
}

func TestLoggerConfig_Defaults(t *testing.T) {
	cfg := Get()

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "stdout", cfg.Logger.Output)
	assert.Equal(t, "./logs/app.log", cfg.Logger.FilePath)
	assert.Equal(t, 100, cfg.Logger.MaxSize)
	assert.True(t, cfg.Logger.Compress)
}
