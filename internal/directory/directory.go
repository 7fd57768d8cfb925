// Package directory provides the static route catalogue and path geometry
// the simulator runs against. Two backends exist: a YAML file with inline
// shapes for standalone use, and Postgres for deployments with an imported
// transit dataset.
package directory

import (
	"context"

	"transit-simulator/internal/transit"
)

// Directory lists routes and resolves their path geometry.
type Directory interface {
	// ListRoutes returns every route the backend knows about.
	ListRoutes(ctx context.Context) ([]transit.Route, error)

	// GetRouteShape returns the path for a route and direction. For
	// direction 1 a nil path with nil error means no distinct reverse shape
	// exists and the forward shape is traversed end to start instead.
	GetRouteShape(ctx context.Context, routeID string, direction int) (transit.Path, error)
}
