package directory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"transit-simulator/internal/transit"
)

// PostgresDirectory reads routes and shapes from a transit dataset import.
// Expected tables:
//
//	routes(route_id, short_name, long_name, color, direction_0, direction_1,
//	       headway_minutes, trip_duration_minutes)
//	shapes(route_id, direction, pt_sequence, lat, lon)
type PostgresDirectory struct {
	db *sql.DB
}

func Open(dsn string) (*PostgresDirectory, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &PostgresDirectory{db: db}, nil
}

func (d *PostgresDirectory) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return d.db.PingContext(ctx)
}

func (d *PostgresDirectory) Close() error { return d.db.Close() }

func (d *PostgresDirectory) ListRoutes(ctx context.Context) ([]transit.Route, error) {
	q := `SELECT route_id,
	             COALESCE(short_name, ''),
	             COALESCE(long_name, ''),
	             COALESCE(color, ''),
	             COALESCE(direction_0, ''),
	             COALESCE(direction_1, ''),
	             COALESCE(headway_minutes, 0),
	             COALESCE(trip_duration_minutes, 0)
	      FROM routes ORDER BY route_id`
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	var routes []transit.Route
	for rows.Next() {
		var r transit.Route
		if err := rows.Scan(&r.ID, &r.ShortName, &r.LongName, &r.Color,
			&r.DirectionLabels[0], &r.DirectionLabels[1],
			&r.HeadwayMinutes, &r.TripDurationMinutes); err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

func (d *PostgresDirectory) GetRouteShape(ctx context.Context, routeID string, direction int) (transit.Path, error) {
	q := `SELECT lat, lon FROM shapes
	      WHERE route_id = $1 AND direction = $2
	      ORDER BY pt_sequence`
	rows, err := d.db.QueryContext(ctx, q, routeID, direction)
	if err != nil {
		return nil, fmt.Errorf("query shapes: %w", err)
	}
	defer rows.Close()

	var path transit.Path
	for rows.Next() {
		var p transit.Point
		if err := rows.Scan(&p.Lat, &p.Lon); err != nil {
			return nil, err
		}
		path = append(path, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if direction == 0 && len(path) == 0 {
		return nil, fmt.Errorf("no shape for route %q", routeID)
	}
	return path, nil
}
