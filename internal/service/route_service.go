package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"agro-herders-service/internal/domain/agro"
	"agro-herders-service/internal/geo"
	"agro-herders-service/internal/metrics"
)

type RouteService struct {
	repo    RouteStore
	index   *geo.Index
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewRouteService(repo RouteStore, index *geo.Index, log zerolog.Logger, m *metrics.Metrics) *RouteService {
	if m == nil {
		m = metrics.NewNop()
	}
	return &RouteService{
		repo:    repo,
		index:   index,
		log:     log.With().Str("component", "routes").Logger(),
		metrics: m,
	}
}

// Reload rebuilds the geofence index from the active routes in the store.
func (s *RouteService) Reload(ctx context.Context) error {
	routes, err := s.repo.ListActive(ctx)
	if err != nil {
		return storeError(err, "routes")
	}
	for _, skipped := range s.index.Load(routes) {
		s.log.Warn().Int64("route_id", skipped.RouteID).Err(skipped.Err).Msg("skipping route with invalid polygon")
	}
	s.metrics.SetRoutesLoaded(s.index.Len())
	s.log.Debug().Int("routes", s.index.Len()).Msg("geofence index reloaded")
	return nil
}

// Run reloads the index every interval until ctx is done, picking up route
// changes made outside this process.
func (s *RouteService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil {
				s.log.Error().Err(err).Msg("periodic route reload failed")
			}
		}
	}
}

func (s *RouteService) List(ctx context.Context) ([]agro.Route, error) {
	routes, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, storeError(err, "routes")
	}
	return routes, nil
}

func (s *RouteService) Get(ctx context.Context, id int64) (*agro.Route, error) {
	if id <= 0 {
		return nil, invalid("route id must be positive")
	}
	route, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "route")
	}
	return route, nil
}

// reloadAfterWrite refreshes the index once a route change is stored. A
// failure leaves the old snapshot in place until the next Run tick.
func (s *RouteService) reloadAfterWrite(ctx context.Context, routeID int64) {
	if err := s.Reload(ctx); err != nil {
		s.log.Error().Err(err).Int64("route_id", routeID).Msg("route saved but geofence reload failed")
	}
}

func (s *RouteService) Create(ctx context.Context, req agro.RouteCreate) (*agro.Route, error) {
	name := strings.TrimSpace(req.RouteName)
	state := strings.TrimSpace(req.State)
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = agro.RouteStatusActive
	}

	switch {
	case name == "":
		return nil, invalid("route_name is required")
	case state == "":
		return nil, invalid("state is required")
	case len(req.GeoJSONData) == 0:
		return nil, invalid("geojson_data is required")
	}
	if _, err := geo.ParseGeoJSON(req.GeoJSONData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	route := &agro.Route{
		RouteName:   name,
		State:       state,
		GeoJSONData: req.GeoJSONData,
		Status:      status,
	}
	if err := s.repo.Create(ctx, route); err != nil {
		return nil, storeError(err, "route")
	}
	s.log.Info().Int64("route_id", route.ID).Str("state", state).Msg("route created")

	s.reloadAfterWrite(ctx, route.ID)
	return route, nil
}

func (s *RouteService) UpdateStatus(ctx context.Context, id int64, status string) (*agro.Route, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return nil, invalid("status is required")
	}
	route, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, storeError(err, "route")
	}
	s.log.Info().Int64("route_id", id).Str("status", status).Msg("route status changed")

	s.reloadAfterWrite(ctx, route.ID)
	return route, nil
}

// CheckLocation reports which active routes contain the point.
func (s *RouteService) CheckLocation(_ context.Context, lat, lng float64) (*agro.LocationCheck, error) {
	if err := geo.ValidatePoint(lat, lng); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if s.index.Len() == 0 {
		s.metrics.RecordGeofenceCheck(false)
		return &agro.LocationCheck{Message: "No active routes found", Routes: []agro.Route{}}, nil
	}

	routes, err := s.index.PointInRoutes(lat, lng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	s.metrics.RecordGeofenceCheck(len(routes) > 0)

	if len(routes) == 0 {
		return &agro.LocationCheck{
			Message: "Location is outside all authorized grazing routes",
			Routes:  routes,
		}, nil
	}
	return &agro.LocationCheck{
		Authorized: true,
		Message:    fmt.Sprintf("Location is within %d authorized route(s)", len(routes)),
		Routes:     routes,
	}, nil
}
