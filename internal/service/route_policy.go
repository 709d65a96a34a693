package service

import (
	"fmt"
	"strings"

	"agro-herders-service/internal/config"
	"agro-herders-service/internal/domain/agro"
)

// RoutePolicy decides whether a route that contains the herder's position
// counts as authorized for that herder.
type RoutePolicy interface {
	Name() string
	Allows(herder *agro.Herder, route agro.Route) bool
}

// NewRoutePolicy builds the policy named by verification.route_policy.
func NewRoutePolicy(name string) (RoutePolicy, error) {
	switch name {
	case config.RoutePolicyAny:
		return anyRoutePolicy{}, nil
	case config.RoutePolicyState:
		return stateRoutePolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown route policy %q", name)
	}
}

// anyRoutePolicy accepts every active route.
type anyRoutePolicy struct{}

func (anyRoutePolicy) Name() string { return config.RoutePolicyAny }

func (anyRoutePolicy) Allows(*agro.Herder, agro.Route) bool { return true }

// stateRoutePolicy accepts routes in the herder's state of origin. Without an
// identified herder nothing is accepted.
type stateRoutePolicy struct{}

func (stateRoutePolicy) Name() string { return config.RoutePolicyState }

func (stateRoutePolicy) Allows(herder *agro.Herder, route agro.Route) bool {
	if herder == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(herder.StateOfOrigin), strings.TrimSpace(route.State))
}

func allowedRoutes(policy RoutePolicy, herder *agro.Herder, routes []agro.Route) []agro.Route {
	allowed := make([]agro.Route, 0, len(routes))
	for _, r := range routes {
		if policy.Allows(herder, r) {
			allowed = append(allowed, r)
		}
	}
	return allowed
}
