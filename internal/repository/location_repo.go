package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/market-merchant-backend/internal/models"
)

// LocationRepository 市场 / 区域 / 展厅 / 摊位仓储
type LocationRepository struct {
	db *gorm.DB
}

// NewLocationRepository 创建位置仓储
func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// ---------- 市场 ----------

// CreateMarchee 创建市场
func (r *LocationRepository) CreateMarchee(ctx context.Context, m *models.Marchee) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// GetMarcheeByID 根据 ID 获取市场
func (r *LocationRepository) GetMarcheeByID(ctx context.Context, id int64) (*models.Marchee, error) {
	var m models.Marchee
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindMarcheeByName 按名称查找市场，不存在返回 nil
func (r *LocationRepository) FindMarcheeByName(ctx context.Context, name string) (*models.Marchee, error) {
	return findOne[models.Marchee](r.db.WithContext(ctx).Where("name = ?", name))
}

// UpdateMarchee 更新市场
func (r *LocationRepository) UpdateMarchee(ctx context.Context, m *models.Marchee) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// DeleteMarchee 删除市场
func (r *LocationRepository) DeleteMarchee(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Marchee{}, id).Error
}

// ListMarchees 获取市场列表
func (r *LocationRepository) ListMarchees(ctx context.Context, offset, limit int, keyword string) ([]*models.Marchee, int64, error) {
	var list []*models.Marchee
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Marchee{})
	if keyword != "" {
		query = query.Where("name LIKE ?", likePattern(keyword))
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ---------- 区域 ----------

// CreateZone 创建区域
func (r *LocationRepository) CreateZone(ctx context.Context, z *models.Zone) error {
	return r.db.WithContext(ctx).Create(z).Error
}

// GetZoneByID 根据 ID 获取区域（包含市场）
func (r *LocationRepository) GetZoneByID(ctx context.Context, id int64) (*models.Zone, error) {
	var z models.Zone
	if err := r.db.WithContext(ctx).Preload("Marchee").First(&z, id).Error; err != nil {
		return nil, err
	}
	return &z, nil
}

// FindZoneByName 按名称查找区域，不存在返回 nil
func (r *LocationRepository) FindZoneByName(ctx context.Context, name string) (*models.Zone, error) {
	return findOne[models.Zone](r.db.WithContext(ctx).Where("name = ?", name))
}

// UpdateZone 更新区域
func (r *LocationRepository) UpdateZone(ctx context.Context, z *models.Zone) error {
	return r.db.WithContext(ctx).Omit("Marchee").Save(z).Error
}

// DeleteZone 删除区域
func (r *LocationRepository) DeleteZone(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Zone{}, id).Error
}

// ListZones 获取区域列表
func (r *LocationRepository) ListZones(ctx context.Context, offset, limit int, keyword string, marcheeID int64) ([]*models.Zone, int64, error) {
	var list []*models.Zone
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Zone{})
	if keyword != "" {
		query = query.Where("name LIKE ?", likePattern(keyword))
	}
	if marcheeID > 0 {
		query = query.Where("marchee_id = ?", marcheeID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Preload("Marchee").Order("name ASC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ---------- 展厅 ----------

// CreateHall 创建展厅
func (r *LocationRepository) CreateHall(ctx context.Context, h *models.Hall) error {
	return r.db.WithContext(ctx).Create(h).Error
}

// GetHallByID 根据 ID 获取展厅（包含上级）
func (r *LocationRepository) GetHallByID(ctx context.Context, id int64) (*models.Hall, error) {
	var h models.Hall
	err := r.db.WithContext(ctx).
		Preload("Zone").Preload("Zone.Marchee").Preload("Marchee").
		First(&h, id).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// FindHallByName 按名称查找展厅，不存在返回 nil
func (r *LocationRepository) FindHallByName(ctx context.Context, name string) (*models.Hall, error) {
	return findOne[models.Hall](r.db.WithContext(ctx).Where("name = ?", name))
}

// UpdateHall 更新展厅
func (r *LocationRepository) UpdateHall(ctx context.Context, h *models.Hall) error {
	return r.db.WithContext(ctx).Omit("Zone", "Marchee").Save(h).Error
}

// DeleteHall 删除展厅
func (r *LocationRepository) DeleteHall(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Hall{}, id).Error
}

// ListHalls 获取展厅列表
func (r *LocationRepository) ListHalls(ctx context.Context, offset, limit int, keyword string, zoneID int64) ([]*models.Hall, int64, error) {
	var list []*models.Hall
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Hall{})
	if keyword != "" {
		query = query.Where("name LIKE ?", likePattern(keyword))
	}
	if zoneID > 0 {
		query = query.Where("zone_id = ?", zoneID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Zone").Preload("Zone.Marchee").Preload("Marchee").
		Order("name ASC").Offset(offset).Limit(limit).Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ---------- 摊位 ----------

// preloadPlace 预加载计算位置名称所需的层级
func preloadPlace(query *gorm.DB, prefix string) *gorm.DB {
	for _, p := range models.PlacePreloads {
		query = query.Preload(prefix + p)
	}
	return query
}

// CreatePlace 创建摊位
func (r *LocationRepository) CreatePlace(ctx context.Context, p *models.Place) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// GetPlaceByID 根据 ID 获取摊位（包含完整层级与商户）
func (r *LocationRepository) GetPlaceByID(ctx context.Context, id int64) (*models.Place, error) {
	var p models.Place
	if err := preloadPlace(r.db.WithContext(ctx), "").Preload("Merchant").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPlaceByNameAndHallID 在展厅内按名称查找摊位
func (r *LocationRepository) FindPlaceByNameAndHallID(ctx context.Context, name string, hallID int64) (*models.Place, error) {
	return findOne[models.Place](r.db.WithContext(ctx).Where("name = ? AND hall_id = ?", name, hallID).Order("id ASC"))
}

// FindPlaceByNameAndZoneID 在区域内按名称查找摊位
func (r *LocationRepository) FindPlaceByNameAndZoneID(ctx context.Context, name string, zoneID int64) (*models.Place, error) {
	return findOne[models.Place](r.db.WithContext(ctx).Where("name = ? AND zone_id = ?", name, zoneID).Order("id ASC"))
}

// FindPlaceByNameAndMarcheeID 在市场内按名称查找摊位
func (r *LocationRepository) FindPlaceByNameAndMarcheeID(ctx context.Context, name string, marcheeID int64) (*models.Place, error) {
	return findOne[models.Place](r.db.WithContext(ctx).Where("name = ? AND marchee_id = ?", name, marcheeID).Order("id ASC"))
}

// UpdatePlace 更新摊位
func (r *LocationRepository) UpdatePlace(ctx context.Context, p *models.Place) error {
	return r.db.WithContext(ctx).Omit("Hall", "Zone", "Marchee", "Merchant").Save(p).Error
}

// AssignPlace 将摊位分配给商户，merchantID 为 nil 时释放
func (r *LocationRepository) AssignPlace(ctx context.Context, placeID int64, merchantID *int64, at time.Time) error {
	fields := map[string]interface{}{
		"merchant_id": merchantID,
		"assigned_at": nil,
	}
	if merchantID != nil {
		fields["assigned_at"] = at
	}
	return r.db.WithContext(ctx).Model(&models.Place{}).Where("id = ?", placeID).Updates(fields).Error
}

// ClaimPlace 条件分配：仅当摊位空闲或已属于该商户时更新，返回是否分配成功
func (r *LocationRepository) ClaimPlace(ctx context.Context, placeID, merchantID int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Place{}).
		Where("id = ? AND (merchant_id IS NULL OR merchant_id = ?)", placeID, merchantID).
		Updates(map[string]interface{}{"merchant_id": merchantID, "assigned_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseMerchantPlaces 释放商户名下全部摊位
func (r *LocationRepository) ReleaseMerchantPlaces(ctx context.Context, merchantID int64) error {
	return r.db.WithContext(ctx).Model(&models.Place{}).
		Where("merchant_id = ?", merchantID).
		Updates(map[string]interface{}{"merchant_id": nil, "assigned_at": nil}).Error
}

// DeletePlace 删除摊位
func (r *LocationRepository) DeletePlace(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Place{}, id).Error
}

// ListPlaces 获取摊位列表
func (r *LocationRepository) ListPlaces(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Place, int64, error) {
	var list []*models.Place
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Place{})
	if keyword, ok := filters["keyword"].(string); ok && keyword != "" {
		query = query.Where("name LIKE ?", likePattern(keyword))
	}
	if hallID, ok := filters["hall_id"].(int64); ok && hallID > 0 {
		query = query.Where("hall_id = ?", hallID)
	}
	if zoneID, ok := filters["zone_id"].(int64); ok && zoneID > 0 {
		query = query.Where("zone_id = ?", zoneID)
	}
	if marcheeID, ok := filters["marchee_id"].(int64); ok && marcheeID > 0 {
		query = query.Where("marchee_id = ?", marcheeID)
	}
	if free, ok := filters["free"].(bool); ok {
		if free {
			query = query.Where("merchant_id IS NULL")
		} else {
			query = query.Where("merchant_id IS NOT NULL")
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := preloadPlace(query, "").Order("id ASC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// CountMarcheeUsage 统计引用市场的区域、展厅与摊位数量
func (r *LocationRepository) CountMarcheeUsage(ctx context.Context, id int64) (int64, error) {
	return r.countWhere(ctx, "marchee_id", id, &models.Zone{}, &models.Hall{}, &models.Place{})
}

// CountZoneUsage 统计引用区域的展厅与摊位数量
func (r *LocationRepository) CountZoneUsage(ctx context.Context, id int64) (int64, error) {
	return r.countWhere(ctx, "zone_id", id, &models.Hall{}, &models.Place{})
}

// CountHallUsage 统计展厅下的摊位数量
func (r *LocationRepository) CountHallUsage(ctx context.Context, id int64) (int64, error) {
	return r.countWhere(ctx, "hall_id", id, &models.Place{})
}

func (r *LocationRepository) countWhere(ctx context.Context, column string, id int64, tables ...interface{}) (int64, error) {
	var total int64
	for _, model := range tables {
		var count int64
		if err := r.db.WithContext(ctx).Model(model).Where(column+" = ?", id).Count(&count).Error; err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}
