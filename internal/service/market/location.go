// Package market 市场核心业务：摊位定位、参考数据校验、缴费事由计算与读模型组装
package market

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/models"
)

// LocationName 摊位完整位置路径：摊位/展厅/区域/市场，缺失的层级省略
// 区域优先取展厅所属区域，市场依次取区域、展厅、摊位自身的市场
func LocationName(p *models.Place) string {
	if p == nil {
		return ""
	}
	segments := []string{p.Name}
	if p.Hall != nil {
		segments = append(segments, p.Hall.Name)
	}
	if z := placeZone(p); z != nil {
		segments = append(segments, z.Name)
	}
	if m := placeMarchee(p); m != nil {
		segments = append(segments, m.Name)
	}

	out := segments[:0]
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

func placeZone(p *models.Place) *models.Zone {
	if p.Hall != nil && p.Hall.Zone != nil {
		return p.Hall.Zone
	}
	return p.Zone
}

func placeMarchee(p *models.Place) *models.Marchee {
	if z := placeZone(p); z != nil && z.Marchee != nil {
		return z.Marchee
	}
	if p.Hall != nil && p.Hall.Marchee != nil {
		return p.Hall.Marchee
	}
	return p.Marchee
}

// LocationLookup 定位所需的存储查询，未找到返回 (nil, nil)
type LocationLookup interface {
	FindHallByName(ctx context.Context, name string) (*models.Hall, error)
	FindZoneByName(ctx context.Context, name string) (*models.Zone, error)
	FindMarcheeByName(ctx context.Context, name string) (*models.Marchee, error)
	FindPlaceByNameAndHallID(ctx context.Context, name string, hallID int64) (*models.Place, error)
	FindPlaceByNameAndZoneID(ctx context.Context, name string, zoneID int64) (*models.Place, error)
	FindPlaceByNameAndMarcheeID(ctx context.Context, name string, marcheeID int64) (*models.Place, error)
}

// LocationQuery 一行数据中的摊位及其层级限定
type LocationQuery struct {
	Place   string
	Hall    string
	Zone    string
	Marchee string
}

// LookupError 定位或校验失败，Field 为出错的字段，Value 为查找值
type LookupError struct {
	Field string
	Value string
	Err   *apperrors.AppError
}

func (e *LookupError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Err.Message)
	}
	return fmt.Sprintf("%s=%q: %s", e.Field, e.Value, e.Err.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// scope 一级定位策略：先按名称找到上级，再在上级范围内找摊位
type scope struct {
	field         string
	qualifier     func(LocationQuery) string
	findParent    func(ctx context.Context, name string) (int64, bool, error)
	findPlace     func(ctx context.Context, place string, parentID int64) (*models.Place, error)
	parentMissing *apperrors.AppError
	placeMissing  *apperrors.AppError
}

// Resolver 摊位定位器，按 展厅 > 区域 > 市场 的优先级只评估第一个给出的限定
type Resolver struct {
	scopes []scope
}

// NewResolver 创建摊位定位器
func NewResolver(lookup LocationLookup) *Resolver {
	return &Resolver{scopes: []scope{
		{
			field:     "hall",
			qualifier: func(q LocationQuery) string { return q.Hall },
			findParent: func(ctx context.Context, name string) (int64, bool, error) {
				h, err := lookup.FindHallByName(ctx, name)
				if err != nil || h == nil {
					return 0, false, err
				}
				return h.ID, true, nil
			},
			findPlace:     lookup.FindPlaceByNameAndHallID,
			parentMissing: apperrors.ErrHallNotFound,
			placeMissing:  apperrors.ErrPlaceNotFoundInHall,
		},
		{
			field:     "zone",
			qualifier: func(q LocationQuery) string { return q.Zone },
			findParent: func(ctx context.Context, name string) (int64, bool, error) {
				z, err := lookup.FindZoneByName(ctx, name)
				if err != nil || z == nil {
					return 0, false, err
				}
				return z.ID, true, nil
			},
			findPlace:     lookup.FindPlaceByNameAndZoneID,
			parentMissing: apperrors.ErrZoneNotFound,
			placeMissing:  apperrors.ErrPlaceNotFoundInZone,
		},
		{
			field:     "marchee",
			qualifier: func(q LocationQuery) string { return q.Marchee },
			findParent: func(ctx context.Context, name string) (int64, bool, error) {
				m, err := lookup.FindMarcheeByName(ctx, name)
				if err != nil || m == nil {
					return 0, false, err
				}
				return m.ID, true, nil
			},
			findPlace:     lookup.FindPlaceByNameAndMarcheeID,
			parentMissing: apperrors.ErrMarcheeNotFound,
			placeMissing:  apperrors.ErrPlaceNotFoundInMarchee,
		},
	}}
}

// Resolve 定位摊位
// 业务失败返回 *LookupError，存储错误原样返回
func (r *Resolver) Resolve(ctx context.Context, q LocationQuery) (*models.Place, error) {
	placeName := strings.TrimSpace(q.Place)
	for _, s := range r.scopes {
		name := strings.TrimSpace(s.qualifier(q))
		if name == "" {
			continue
		}

		parentID, found, err := s.findParent(ctx, name)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, &LookupError{Field: s.field, Value: name, Err: s.parentMissing}
		}

		place, err := s.findPlace(ctx, placeName, parentID)
		if err != nil {
			return nil, err
		}
		if place == nil {
			return nil, &LookupError{Field: "place", Value: placeName + " @ " + name, Err: s.placeMissing}
		}
		return place, nil
	}
	return nil, &LookupError{Field: "place", Value: placeName, Err: apperrors.ErrNoLocationHierarchy}
}
