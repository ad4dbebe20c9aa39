// Package upload 商户照片上传服务
package upload

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/common/logger"
	"github.com/dumeirei/market-merchant-backend/internal/repository"
	"github.com/dumeirei/market-merchant-backend/pkg/oss"
)

// DefaultMaxPhotoSize 照片默认大小上限（5MB）
const DefaultMaxPhotoSize = 5 * 1024 * 1024

// PhotoService 商户照片服务
type PhotoService struct {
	storage      oss.Storage
	merchantRepo *repository.MerchantRepository
	maxSize      int64
	now          func() time.Time
}

// NewPhotoService 创建照片服务，storage 为 nil 表示未配置对象存储
func NewPhotoService(storage oss.Storage, merchantRepo *repository.MerchantRepository, maxSize int64) *PhotoService {
	if maxSize <= 0 {
		maxSize = DefaultMaxPhotoSize
	}
	return &PhotoService{
		storage:      storage,
		merchantRepo: merchantRepo,
		maxSize:      maxSize,
		now:          time.Now,
	}
}

// MaxSize 单张照片大小上限
func (s *PhotoService) MaxSize() int64 {
	return s.maxSize
}

// PhotoResponse 上传结果
type PhotoResponse struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
}

// UploadMerchantPhoto 上传商户照片并更新 photo_url
func (s *PhotoService) UploadMerchantPhoto(ctx context.Context, merchantID int64, file *multipart.FileHeader) (*PhotoResponse, error) {
	if s.storage == nil {
		return nil, errors.ErrStorageUnavailable
	}
	if file == nil {
		return nil, errors.ErrInvalidParams.WithMessage("请选择要上传的文件")
	}
	if file.Size > s.maxSize {
		return nil, errors.ErrPhotoTooLarge.WithMessage(fmt.Sprintf("照片大小不能超过 %dMB", s.maxSize/(1024*1024)))
	}

	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrMerchantNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	f, err := file.Open()
	if err != nil {
		return nil, errors.ErrOperationFailed.WithMessage("无法打开文件").WithError(err)
	}
	defer f.Close()

	// 多读一个字节用于判断是否超限
	data, err := io.ReadAll(io.LimitReader(f, s.maxSize+1))
	if err != nil {
		return nil, errors.ErrOperationFailed.WithMessage("读取文件失败").WithError(err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, errors.ErrPhotoTooLarge
	}

	contentType, err := oss.ValidatePhoto(file.Filename, data)
	if err != nil {
		return nil, errors.ErrPhotoInvalid.WithError(err)
	}

	key := oss.PhotoKey(merchant.ID, file.Filename, s.now())
	url, err := s.storage.Put(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, errors.ErrExternalService.WithMessage("上传文件失败").WithError(err)
	}

	if err := s.merchantRepo.UpdateFields(ctx, merchant.ID, map[string]interface{}{"photo_url": url}); err != nil {
		// 回滚已上传的对象
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			logger.Warn("删除照片失败", logger.MerchantID(merchant.ID), logger.Err(delErr))
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	return &PhotoResponse{URL: url, FileName: file.Filename, Size: int64(len(data))}, nil
}
