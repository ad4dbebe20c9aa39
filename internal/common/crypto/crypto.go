// Package crypto 提供密码哈希与脱敏工具
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword 以默认成本对密码进行哈希
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, bcrypt.DefaultCost)
}

// HashPasswordWithCost 以指定成本对密码进行哈希，超出范围时回退默认成本
func HashPasswordWithCost(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// VerifyPassword 验证密码
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateRandomString 生成随机字符串
func GenerateRandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}

// MaskPhone 电话号码脱敏，保留前三位和末两位
func MaskPhone(phone string) string {
	n := utf8.RuneCountInString(phone)
	if n < 7 {
		return phone
	}
	r := []rune(phone)
	return string(r[:3]) + strings.Repeat("*", n-5) + string(r[n-2:])
}

// MaskNationalID 身份证号脱敏，保留前两位和末两位
func MaskNationalID(id string) string {
	n := utf8.RuneCountInString(id)
	if n <= 4 {
		return id
	}
	r := []rune(id)
	return string(r[:2]) + strings.Repeat("*", n-4) + string(r[n-2:])
}
