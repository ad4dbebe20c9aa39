// Package repository 提供数据访问层
package repository

import (
	"errors"

	"gorm.io/gorm"
)

// findOne 查询单条记录，记录不存在时返回 (nil, nil)
func findOne[T any](query *gorm.DB) (*T, error) {
	var out T
	err := query.First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// likePattern 构造模糊查询参数
func likePattern(keyword string) string {
	return "%" + keyword + "%"
}
