package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"agro-herders-service/internal/domain/agro"
)

const recentVerificationsLimit = 10

type DashboardService struct {
	herders HerderStore
	routes  RouteStore
	audit   AuditStore
}

func NewDashboardService(herders HerderStore, routes RouteStore, audit AuditStore) *DashboardService {
	return &DashboardService{herders: herders, routes: routes, audit: audit}
}

// Stats runs the dashboard queries concurrently. The first failure cancels
// the rest.
func (s *DashboardService) Stats(ctx context.Context) (*agro.DashboardStats, error) {
	stats := &agro.DashboardStats{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.herders.Count(ctx)
		if err != nil {
			return storeError(err, "herders")
		}
		stats.TotalHerders = n
		return nil
	})
	g.Go(func() error {
		n, err := s.herders.CountLivestock(ctx)
		if err != nil {
			return storeError(err, "livestock")
		}
		stats.TotalLivestock = n
		return nil
	})
	g.Go(func() error {
		n, err := s.routes.CountActive(ctx)
		if err != nil {
			return storeError(err, "routes")
		}
		stats.ActiveRoutes = n
		return nil
	})
	g.Go(func() error {
		n, err := s.audit.Count(ctx)
		if err != nil {
			return storeError(err, "verifications")
		}
		stats.TotalVerifications = n
		return nil
	})
	g.Go(func() error {
		recent, err := s.audit.Recent(ctx, recentVerificationsLimit)
		if err != nil {
			return storeError(err, "verifications")
		}
		stats.RecentVerifications = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if stats.RecentVerifications == nil {
		stats.RecentVerifications = []agro.RecentVerification{}
	}
	return stats, nil
}
