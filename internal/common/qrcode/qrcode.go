// Package qrcode 生成商户证卡二维码
package qrcode

import (
	"encoding/base64"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

// RecoveryLevel 纠错级别
type RecoveryLevel int

const (
	// Low 7% 纠错
	Low RecoveryLevel = iota
	// Medium 15% 纠错
	Medium
	// High 25% 纠错，证卡打印后容易磨损，默认使用
	High
)

// Generator 二维码生成器
type Generator struct {
	size          int
	recoveryLevel RecoveryLevel
	baseURL       string
}

// Option 生成器选项
type Option func(*Generator)

// WithSize 设置二维码尺寸（像素）
func WithSize(size int) Option {
	return func(g *Generator) {
		if size > 0 {
			g.size = size
		}
	}
}

// WithRecoveryLevel 设置纠错级别
func WithRecoveryLevel(level RecoveryLevel) Option {
	return func(g *Generator) {
		g.recoveryLevel = level
	}
}

// WithBaseURL 设置扫码跳转的后台地址
func WithBaseURL(url string) Option {
	return func(g *Generator) {
		g.baseURL = strings.TrimRight(url, "/")
	}
}

// NewGenerator 创建二维码生成器
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		size:          256,
		recoveryLevel: High,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) level() qrcode.RecoveryLevel {
	switch g.recoveryLevel {
	case Low:
		return qrcode.Low
	case Medium:
		return qrcode.Medium
	default:
		return qrcode.High
	}
}

// BadgeContent 商户证卡二维码内容
// 配置了 baseURL 时为详情页地址，否则为 MERCHANT-<id>
func (g *Generator) BadgeContent(merchantID int64) string {
	if g.baseURL != "" {
		return g.baseURL + "/merchants/" + strconv.FormatInt(merchantID, 10)
	}
	return "MERCHANT-" + strconv.FormatInt(merchantID, 10)
}

// Generate 生成二维码图片
func (g *Generator) Generate(content string) (image.Image, error) {
	qr, err := qrcode.New(content, g.level())
	if err != nil {
		return nil, fmt.Errorf("创建二维码失败: %w", err)
	}
	return qr.Image(g.size), nil
}

// GeneratePNG 生成 PNG 格式二维码
func (g *Generator) GeneratePNG(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("二维码内容为空")
	}
	return qrcode.Encode(content, g.level(), g.size)
}

// MerchantBadge 生成商户证卡 PNG
func (g *Generator) MerchantBadge(merchantID int64) ([]byte, error) {
	return g.GeneratePNG(g.BadgeContent(merchantID))
}

// GenerateDataURL 生成 Data URL 格式的二维码
func (g *Generator) GenerateDataURL(content string) (string, error) {
	data, err := g.GeneratePNG(content)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}
