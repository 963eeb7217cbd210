// Package provider wires route calculation and guidance into a navigation.RouteProvider.
package provider

import (
	"context"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/navigation"
)

// Calculator computes routes. The OSRM client and the route cache both implement it.
type Calculator interface {
	CalculateRoute(ctx context.Context, req navigation.RouteRequest) (navigation.RouteSolution, error)
}

// CalculatorFunc adapts a function to Calculator.
type CalculatorFunc func(ctx context.Context, req navigation.RouteRequest) (navigation.RouteSolution, error)

// CalculateRoute calls f.
func (f CalculatorFunc) CalculateRoute(ctx context.Context, req navigation.RouteRequest) (navigation.RouteSolution, error) {
	return f(ctx, req)
}

// Guide drives simulated guidance along a solution.
type Guide interface {
	Start(solution navigation.RouteSolution, observer navigation.GuidanceObserver) error
	Stop()
}
