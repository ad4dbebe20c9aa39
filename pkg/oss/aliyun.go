// Package oss 对象存储：商户照片上传
package oss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
)

// Storage 对象存储接口
type Storage interface {
	Put(ctx context.Context, objectKey, contentType string, reader io.Reader) (string, error)
	Delete(ctx context.Context, objectKey string) error
	URL(objectKey string) string
}

// AliyunConfig 阿里云 OSS 配置
type AliyunConfig struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	BucketName      string
	Domain          string // 自定义域名（可选）
	BasePath        string // 基础路径，如 "merchants/"
}

// AliyunStorage 阿里云 OSS 存储
type AliyunStorage struct {
	bucket *oss.Bucket
	config *AliyunConfig
}

// NewAliyunStorage 创建阿里云 OSS 存储
func NewAliyunStorage(config *AliyunConfig) (*AliyunStorage, error) {
	client, err := oss.New(config.Endpoint, config.AccessKeyID, config.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("创建 OSS 客户端失败: %w", err)
	}

	bucket, err := client.Bucket(config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("获取 Bucket 失败: %w", err)
	}

	return &AliyunStorage{bucket: bucket, config: config}, nil
}

// Put 上传对象，返回访问 URL
func (s *AliyunStorage) Put(ctx context.Context, objectKey, contentType string, reader io.Reader) (string, error) {
	opts := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := s.bucket.PutObject(s.fullKey(objectKey), reader, opts...); err != nil {
		return "", fmt.Errorf("上传文件失败: %w", err)
	}
	return s.URL(objectKey), nil
}

// Delete 删除对象
func (s *AliyunStorage) Delete(ctx context.Context, objectKey string) error {
	return s.bucket.DeleteObject(s.fullKey(objectKey), oss.WithContext(ctx))
}

// URL 对象访问地址
func (s *AliyunStorage) URL(objectKey string) string {
	fullKey := s.fullKey(objectKey)
	if s.config.Domain != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(s.config.Domain, "/"), fullKey)
	}
	return fmt.Sprintf("https://%s.%s/%s", s.config.BucketName, s.config.Endpoint, fullKey)
}

// SignedURL 带签名的临时 URL，私有 bucket 下用于查看照片
func (s *AliyunStorage) SignedURL(objectKey string, expires time.Duration) (string, error) {
	return s.bucket.SignURL(s.fullKey(objectKey), oss.HTTPGet, int64(expires.Seconds()))
}

func (s *AliyunStorage) fullKey(objectKey string) string {
	if s.config.BasePath == "" {
		return objectKey
	}
	return path.Join(s.config.BasePath, objectKey)
}

// PhotoKey 商户照片对象键：photos/<merchantID>/<yyyy/mm>/<uuid>.<ext>
func PhotoKey(merchantID int64, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("photos/%d/%s/%s%s", merchantID, now.Format("2006/01"), uuid.NewString(), ext)
}

// photoTypes 允许的照片扩展名及其 Content-Type
var photoTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ValidatePhoto 校验扩展名与文件头，返回 Content-Type
func ValidatePhoto(filename string, data []byte) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := photoTypes[ext]
	if !ok {
		return "", fmt.Errorf("不支持的图片格式: %q", ext)
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if detected := http.DetectContentType(head); !strings.HasPrefix(detected, "image/") {
		return "", fmt.Errorf("文件不是有效的图片: %s", detected)
	}
	return contentType, nil
}

// MemoryStorage 内存存储（开发/测试用）
type MemoryStorage struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string][]byte
}

// NewMemoryStorage 创建内存存储
func NewMemoryStorage(baseURL string) *MemoryStorage {
	if baseURL == "" {
		baseURL = "http://localhost/uploads"
	}
	return &MemoryStorage{baseURL: strings.TrimSuffix(baseURL, "/"), objects: make(map[string][]byte)}
}

// Put 保存对象
func (s *MemoryStorage) Put(_ context.Context, objectKey, _ string, reader io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.objects[objectKey] = buf.Bytes()
	s.mu.Unlock()
	return s.URL(objectKey), nil
}

// Delete 删除对象，不存在时不报错
func (s *MemoryStorage) Delete(_ context.Context, objectKey string) error {
	s.mu.Lock()
	delete(s.objects, objectKey)
	s.mu.Unlock()
	return nil
}

// URL 对象访问地址
func (s *MemoryStorage) URL(objectKey string) string {
	return s.baseURL + "/" + objectKey
}

// Object 读取已保存的对象
func (s *MemoryStorage) Object(objectKey string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[objectKey]
	return data, ok
}

// Len 已保存对象数
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
