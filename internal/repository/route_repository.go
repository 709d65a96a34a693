package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"agro-herders-service/internal/domain/agro"
)

type RouteRepository struct {
	store
}

func NewRouteRepository(db *gorm.DB, opts Options) *RouteRepository {
	return &RouteRepository{store: newStore(db, opts)}
}

type Route struct {
	ID          int64          `gorm:"primaryKey"`
	RouteName   string         `gorm:"not null"`
	State       string         `gorm:"not null"`
	GeoJSONData datatypes.JSON `gorm:"column:geojson_data;not null"`
	Status      string         `gorm:"not null;default:active;index"`
	CreatedAt   time.Time
}

func (r Route) toDomain() agro.Route {
	return agro.Route{
		ID:          r.ID,
		RouteName:   r.RouteName,
		State:       r.State,
		GeoJSONData: json.RawMessage(r.GeoJSONData),
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
}

func routesToDomain(rows []Route) []agro.Route {
	result := make([]agro.Route, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result
}

func (r *RouteRepository) ListActive(ctx context.Context) ([]agro.Route, error) {
	var rows []Route
	err := r.read(ctx, "list_active_routes", func(tx *gorm.DB) error {
		return tx.Where("status = ?", agro.RouteStatusActive).Order("id").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return routesToDomain(rows), nil
}

func (r *RouteRepository) Get(ctx context.Context, id int64) (*agro.Route, error) {
	var row Route
	err := r.read(ctx, "get_route", func(tx *gorm.DB) error {
		return tx.First(&row, id).Error
	})
	if err != nil {
		return nil, err
	}
	route := row.toDomain()
	return &route, nil
}

func (r *RouteRepository) Create(ctx context.Context, route *agro.Route) error {
	row := Route{
		RouteName:   route.RouteName,
		State:       route.State,
		GeoJSONData: datatypes.JSON(route.GeoJSONData),
		Status:      route.Status,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.write(ctx, "create_route", func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	}); err != nil {
		return err
	}
	*route = row.toDomain()
	return nil
}

func (r *RouteRepository) UpdateStatus(ctx context.Context, id int64, status string) (*agro.Route, error) {
	err := r.write(ctx, "update_route_status", func(tx *gorm.DB) error {
		res := tx.Model(&Route{}).Where("id = ?", id).Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *RouteRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.read(ctx, "count_active_routes", func(tx *gorm.DB) error {
		return tx.Model(&Route{}).Where("status = ?", agro.RouteStatusActive).Count(&n).Error
	})
	return n, err
}
