// Package cache 提供 Redis 连接、分布式锁与令牌黑名单
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/market-merchant-backend/internal/common/config"
)

var rdb *redis.Client

// 常用缓存键前缀
const (
	KeyPrefixRateLimit = "ratelimit:"
	KeyPrefixLock      = "lock:"
	KeyPrefixRevoked   = "token:revoked:"
)

// ErrLockHeld 锁已被其他持有者占用
var ErrLockHeld = errors.New("lock is held by another owner")

// Init 初始化 Redis 连接
func Init(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	return rdb, nil
}

// GetClient 获取 Redis 客户端
func GetClient() *redis.Client {
	return rdb
}

// Close 关闭 Redis 连接
func Close() error {
	if rdb != nil {
		return rdb.Close()
	}
	return nil
}

// BuildKey 构建缓存键
func BuildKey(prefix string, parts ...string) string {
	return prefix + strings.Join(parts, ":")
}

// releaseScript 仅当值匹配时删除锁，避免释放他人的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock 基于 SET NX 的互斥锁
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire 获取锁，已被占用时返回 ErrLockHeld
func Acquire(ctx context.Context, client *redis.Client, name string, ttl time.Duration) (*Lock, error) {
	key := BuildKey(KeyPrefixLock, name)
	token := uuid.NewString()
	ok, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{client: client, key: key, token: token}, nil
}

// Release 释放锁
func (l *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}

// TokenBlacklist 已注销令牌（按 jti）
type TokenBlacklist struct {
	client *redis.Client
}

// NewTokenBlacklist 创建令牌黑名单，client 为 nil 时所有令牌视为有效
func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

// Revoke 注销令牌直至其过期
func (b *TokenBlacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if b.client == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, BuildKey(KeyPrefixRevoked, jti), "1", ttl).Err()
}

// IsRevoked 令牌是否已注销，Redis 错误时视为未注销
func (b *TokenBlacklist) IsRevoked(ctx context.Context, jti string) bool {
	if b.client == nil || jti == "" {
		return false
	}
	n, err := b.client.Exists(ctx, BuildKey(KeyPrefixRevoked, jti)).Result()
	return err == nil && n > 0
}
