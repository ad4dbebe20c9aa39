// Package catalog 位置层级与参考数据维护
package catalog

import (
	"context"
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/models"
	"github.com/dumeirei/market-merchant-backend/internal/repository"
	"github.com/dumeirei/market-merchant-backend/internal/service/market"
)

// LocationService 市场、区域、展厅、摊位维护
type LocationService struct {
	repo      *repository.LocationRepository
	assembler *market.Assembler
}

// NewLocationService 创建位置服务
func NewLocationService(repo *repository.LocationRepository, assembler *market.Assembler) *LocationService {
	return &LocationService{repo: repo, assembler: assembler}
}

// MarcheeRequest 市场请求
type MarcheeRequest struct {
	Name    string  `json:"name" binding:"required,max=100"`
	Address *string `json:"address" binding:"omitempty,max=255"`
}

// ZoneRequest 区域请求
type ZoneRequest struct {
	Name      string `json:"name" binding:"required,max=100"`
	MarcheeID *int64 `json:"marchee_id"`
}

// HallRequest 展厅请求，可隶属于区域或市场
type HallRequest struct {
	Name      string `json:"name" binding:"required,max=100"`
	ZoneID    *int64 `json:"zone_id"`
	MarcheeID *int64 `json:"marchee_id"`
}

// PlaceRequest 摊位请求，必须且只能隶属于展厅、区域、市场之一
type PlaceRequest struct {
	Name      string `json:"name" binding:"required,max=100"`
	HallID    *int64 `json:"hall_id"`
	ZoneID    *int64 `json:"zone_id"`
	MarcheeID *int64 `json:"marchee_id"`
}

// ---------------------------------------------------------------------------
// 市场
// ---------------------------------------------------------------------------

// CreateMarchee 创建市场
func (s *LocationService) CreateMarchee(ctx context.Context, req *MarcheeRequest) (*models.Marchee, error) {
	name, err := s.uniqueMarcheeName(ctx, req.Name, 0)
	if err != nil {
		return nil, err
	}
	m := &models.Marchee{Name: name, Address: req.Address}
	if err := s.repo.CreateMarchee(ctx, m); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return m, nil
}

// GetMarchee 获取市场
func (s *LocationService) GetMarchee(ctx context.Context, id int64) (*models.Marchee, error) {
	m, err := s.repo.GetMarcheeByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrMarcheeNotFound)
	}
	return m, nil
}

// UpdateMarchee 更新市场
func (s *LocationService) UpdateMarchee(ctx context.Context, id int64, req *MarcheeRequest) (*models.Marchee, error) {
	m, err := s.GetMarchee(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Name, err = s.uniqueMarcheeName(ctx, req.Name, id); err != nil {
		return nil, err
	}
	m.Address = req.Address
	if err := s.repo.UpdateMarchee(ctx, m); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return m, nil
}

// DeleteMarchee 删除市场，仍被区域、展厅或摊位引用时拒绝
func (s *LocationService) DeleteMarchee(ctx context.Context, id int64) error {
	if _, err := s.GetMarchee(ctx, id); err != nil {
		return err
	}
	return s.deleteUnused(ctx, id, s.repo.CountMarcheeUsage, s.repo.DeleteMarchee)
}

// ListMarchees 市场列表
func (s *LocationService) ListMarchees(ctx context.Context, offset, limit int, keyword string) ([]*models.Marchee, int64, error) {
	list, total, err := s.repo.ListMarchees(ctx, offset, limit, keyword)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return list, total, nil
}

// ---------------------------------------------------------------------------
// 区域
// ---------------------------------------------------------------------------

// CreateZone 创建区域
func (s *LocationService) CreateZone(ctx context.Context, req *ZoneRequest) (*models.Zone, error) {
	name, err := s.uniqueZoneName(ctx, req.Name, 0)
	if err != nil {
		return nil, err
	}
	if err := s.checkMarchee(ctx, req.MarcheeID); err != nil {
		return nil, err
	}
	z := &models.Zone{Name: name, MarcheeID: req.MarcheeID}
	if err := s.repo.CreateZone(ctx, z); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return s.GetZone(ctx, z.ID)
}

// GetZone 获取区域
func (s *LocationService) GetZone(ctx context.Context, id int64) (*models.Zone, error) {
	z, err := s.repo.GetZoneByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrZoneNotFound)
	}
	return z, nil
}

// UpdateZone 更新区域
func (s *LocationService) UpdateZone(ctx context.Context, id int64, req *ZoneRequest) (*models.Zone, error) {
	z, err := s.GetZone(ctx, id)
	if err != nil {
		return nil, err
	}
	if z.Name, err = s.uniqueZoneName(ctx, req.Name, id); err != nil {
		return nil, err
	}
	if err := s.checkMarchee(ctx, req.MarcheeID); err != nil {
		return nil, err
	}
	z.MarcheeID = req.MarcheeID
	if err := s.repo.UpdateZone(ctx, z); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return s.GetZone(ctx, id)
}

// DeleteZone 删除区域
func (s *LocationService) DeleteZone(ctx context.Context, id int64) error {
	if _, err := s.GetZone(ctx, id); err != nil {
		return err
	}
	return s.deleteUnused(ctx, id, s.repo.CountZoneUsage, s.repo.DeleteZone)
}

// ListZones 区域列表
func (s *LocationService) ListZones(ctx context.Context, offset, limit int, keyword string, marcheeID int64) ([]*models.Zone, int64, error) {
	list, total, err := s.repo.ListZones(ctx, offset, limit, keyword, marcheeID)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return list, total, nil
}

// ---------------------------------------------------------------------------
// 展厅
// ---------------------------------------------------------------------------

// CreateHall 创建展厅
func (s *LocationService) CreateHall(ctx context.Context, req *HallRequest) (*models.Hall, error) {
	name, err := s.uniqueHallName(ctx, req.Name, 0)
	if err != nil {
		return nil, err
	}
	if err := s.checkHallParent(ctx, req); err != nil {
		return nil, err
	}
	h := &models.Hall{Name: name, ZoneID: req.ZoneID, MarcheeID: req.MarcheeID}
	if err := s.repo.CreateHall(ctx, h); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return s.GetHall(ctx, h.ID)
}

// GetHall 获取展厅
func (s *LocationService) GetHall(ctx context.Context, id int64) (*models.Hall, error) {
	h, err := s.repo.GetHallByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrHallNotFound)
	}
	return h, nil
}

// UpdateHall 更新展厅
func (s *LocationService) UpdateHall(ctx context.Context, id int64, req *HallRequest) (*models.Hall, error) {
	h, err := s.GetHall(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.Name, err = s.uniqueHallName(ctx, req.Name, id); err != nil {
		return nil, err
	}
	if err := s.checkHallParent(ctx, req); err != nil {
		return nil, err
	}
	h.ZoneID, h.MarcheeID = req.ZoneID, req.MarcheeID
	h.Zone, h.Marchee = nil, nil
	if err := s.repo.UpdateHall(ctx, h); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return s.GetHall(ctx, id)
}

// DeleteHall 删除展厅
func (s *LocationService) DeleteHall(ctx context.Context, id int64) error {
	if _, err := s.GetHall(ctx, id); err != nil {
		return err
	}
	return s.deleteUnused(ctx, id, s.repo.CountHallUsage, s.repo.DeleteHall)
}

// ListHalls 展厅列表
func (s *LocationService) ListHalls(ctx context.Context, offset, limit int, keyword string, zoneID int64) ([]*models.Hall, int64, error) {
	list, total, err := s.repo.ListHalls(ctx, offset, limit, keyword, zoneID)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return list, total, nil
}

// ---------------------------------------------------------------------------
// 摊位
// ---------------------------------------------------------------------------

// CreatePlace 创建摊位，同一上级内名称唯一
func (s *LocationService) CreatePlace(ctx context.Context, req *PlaceRequest) (*market.PlaceDTO, error) {
	name, err := s.checkPlace(ctx, req, 0)
	if err != nil {
		return nil, err
	}
	p := &models.Place{Name: name, HallID: req.HallID, ZoneID: req.ZoneID, MarcheeID: req.MarcheeID}
	if err := s.repo.CreatePlace(ctx, p); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return s.GetPlace(ctx, p.ID)
}

// GetPlace 获取摊位（含完整位置名称）
func (s *LocationService) GetPlace(ctx context.Context, id int64) (*market.PlaceDTO, error) {
	p, err := s.repo.GetPlaceByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrPlaceNotFound)
	}
	dto := s.assembler.Place(p)
	return &dto, nil
}

// UpdatePlace 更新摊位名称或上级
func (s *LocationService) UpdatePlace(ctx context.Context, id int64, req *PlaceRequest) (*market.PlaceDTO, error) {
	p, err := s.repo.GetPlaceByID(ctx, id)
	if err != nil {
		return nil, notFound(err, errors.ErrPlaceNotFound)
	}
	name, err := s.checkPlace(ctx, req, id)
	if err != nil {
		return nil, err
	}
	p.Name, p.HallID, p.ZoneID, p.MarcheeID = name, req.HallID, req.ZoneID, req.MarcheeID
	if err := s.repo.UpdatePlace(ctx, p); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return s.GetPlace(ctx, id)
}

// DeletePlace 删除摊位，已分配给商户时拒绝
func (s *LocationService) DeletePlace(ctx context.Context, id int64) error {
	p, err := s.repo.GetPlaceByID(ctx, id)
	if err != nil {
		return notFound(err, errors.ErrPlaceNotFound)
	}
	if p.MerchantID != nil {
		return errors.ErrLocationInUse.WithMessage("摊位已分配给商户")
	}
	if err := s.repo.DeletePlace(ctx, id); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// ListPlaces 摊位列表
func (s *LocationService) ListPlaces(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]market.PlaceDTO, int64, error) {
	places, total, err := s.repo.ListPlaces(ctx, offset, limit, filters)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	list := make([]market.PlaceDTO, 0, len(places))
	for _, p := range places {
		list = append(list, s.assembler.Place(p))
	}
	return list, total, nil
}

// ---------------------------------------------------------------------------
// 校验
// ---------------------------------------------------------------------------

func (s *LocationService) uniqueMarcheeName(ctx context.Context, raw string, selfID int64) (string, error) {
	return uniqueName(raw, selfID, func(name string) (int64, bool, error) {
		m, err := s.repo.FindMarcheeByName(ctx, name)
		if err != nil || m == nil {
			return 0, false, err
		}
		return m.ID, true, nil
	})
}

func (s *LocationService) uniqueZoneName(ctx context.Context, raw string, selfID int64) (string, error) {
	return uniqueName(raw, selfID, func(name string) (int64, bool, error) {
		z, err := s.repo.FindZoneByName(ctx, name)
		if err != nil || z == nil {
			return 0, false, err
		}
		return z.ID, true, nil
	})
}

func (s *LocationService) uniqueHallName(ctx context.Context, raw string, selfID int64) (string, error) {
	return uniqueName(raw, selfID, func(name string) (int64, bool, error) {
		h, err := s.repo.FindHallByName(ctx, name)
		if err != nil || h == nil {
			return 0, false, err
		}
		return h.ID, true, nil
	})
}

// uniqueName 规范化名称并检查是否被其他记录占用
func uniqueName(raw string, selfID int64, find func(string) (int64, bool, error)) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", errors.ErrInvalidParams.WithMessage("名称不能为空")
	}
	id, found, err := find(name)
	if err != nil {
		return "", errors.ErrDatabaseError.WithError(err)
	}
	if found && id != selfID {
		return "", errors.ErrLocationNameExists
	}
	return name, nil
}

func (s *LocationService) checkMarchee(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := s.GetMarchee(ctx, *id)
	return err
}

func (s *LocationService) checkZone(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := s.GetZone(ctx, *id)
	return err
}

func (s *LocationService) checkHallParent(ctx context.Context, req *HallRequest) error {
	if req.ZoneID != nil && req.MarcheeID != nil {
		return errors.ErrInvalidParams.WithMessage("展厅只能隶属于区域或市场之一")
	}
	if err := s.checkZone(ctx, req.ZoneID); err != nil {
		return err
	}
	return s.checkMarchee(ctx, req.MarcheeID)
}

// checkPlace 校验摊位上级唯一且存在，并检查同一上级内名称不重复
func (s *LocationService) checkPlace(ctx context.Context, req *PlaceRequest, selfID int64) (string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", errors.ErrInvalidParams.WithMessage("名称不能为空")
	}

	parents := 0
	for _, id := range []*int64{req.HallID, req.ZoneID, req.MarcheeID} {
		if id != nil {
			parents++
		}
	}
	if parents != 1 {
		return "", errors.ErrNoLocationHierarchy.WithMessage("摊位必须且只能隶属于展厅、区域或市场之一")
	}

	var existing *models.Place
	var err error
	switch {
	case req.HallID != nil:
		if _, err = s.GetHall(ctx, *req.HallID); err != nil {
			return "", err
		}
		existing, err = s.repo.FindPlaceByNameAndHallID(ctx, name, *req.HallID)
	case req.ZoneID != nil:
		if err = s.checkZone(ctx, req.ZoneID); err != nil {
			return "", err
		}
		existing, err = s.repo.FindPlaceByNameAndZoneID(ctx, name, *req.ZoneID)
	default:
		if err = s.checkMarchee(ctx, req.MarcheeID); err != nil {
			return "", err
		}
		existing, err = s.repo.FindPlaceByNameAndMarcheeID(ctx, name, *req.MarcheeID)
	}
	if err != nil {
		return "", errors.ErrDatabaseError.WithError(err)
	}
	if existing != nil && existing.ID != selfID {
		return "", errors.ErrLocationNameExists
	}
	return name, nil
}

func (s *LocationService) deleteUnused(ctx context.Context, id int64, count func(context.Context, int64) (int64, error), del func(context.Context, int64) error) error {
	n, err := count(ctx, id)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if n > 0 {
		return errors.ErrLocationInUse
	}
	if err := del(ctx, id); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

func notFound(err error, appErr *errors.AppError) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return appErr
	}
	return errors.ErrDatabaseError.WithError(err)
}
