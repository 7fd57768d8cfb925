package directory

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"transit-simulator/internal/transit"
)

// routesFile is the on-disk YAML layout.
type routesFile struct {
	Routes []yamlRoute `yaml:"routes" validate:"required,min=1,dive"`
}

type yamlRoute struct {
	ID         string   `yaml:"id" validate:"required"`
	ShortName  string   `yaml:"short_name" validate:"required"`
	LongName   string   `yaml:"long_name"`
	Color      string   `yaml:"color"`
	Directions []string `yaml:"directions" validate:"omitempty,len=2"`

	HeadwayMinutes      float64 `yaml:"headway_minutes" validate:"omitempty,gt=0"`
	TripDurationMinutes float64 `yaml:"trip_duration_minutes" validate:"omitempty,gt=0"`

	Shape        []yamlPoint `yaml:"shape" validate:"required,min=2,dive"`
	ReverseShape []yamlPoint `yaml:"reverse_shape" validate:"omitempty,min=2,dive"`
}

type yamlPoint struct {
	Lat float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `yaml:"lon" validate:"gte=-180,lte=180"`
}

// YAMLDirectory serves routes from a file loaded once at startup. The loaded
// data is never mutated afterwards.
type YAMLDirectory struct {
	routes  []transit.Route
	forward map[string]transit.Path
	reverse map[string]transit.Path
}

// LoadYAML reads and validates a routes file.
func LoadYAML(path string) (*YAMLDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes file: %w", err)
	}
	var rf routesFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("parse routes file %s: %w", path, err)
	}
	if err := validator.New().Struct(&rf); err != nil {
		return nil, fmt.Errorf("validate routes file %s: %w", path, err)
	}

	d := &YAMLDirectory{
		forward: make(map[string]transit.Path, len(rf.Routes)),
		reverse: make(map[string]transit.Path),
	}
	for _, yr := range rf.Routes {
		r := transit.Route{
			ID:                  yr.ID,
			ShortName:           yr.ShortName,
			LongName:            yr.LongName,
			Color:               yr.Color,
			HeadwayMinutes:      yr.HeadwayMinutes,
			TripDurationMinutes: yr.TripDurationMinutes,
		}
		if len(yr.Directions) == 2 {
			r.DirectionLabels = [2]string{yr.Directions[0], yr.Directions[1]}
		}
		d.routes = append(d.routes, r)
		d.forward[yr.ID] = toPath(yr.Shape)
		if len(yr.ReverseShape) > 0 {
			d.reverse[yr.ID] = toPath(yr.ReverseShape)
		}
	}
	return d, nil
}

func toPath(pts []yamlPoint) transit.Path {
	path := make(transit.Path, len(pts))
	for i, p := range pts {
		path[i] = transit.Point{Lat: p.Lat, Lon: p.Lon}
	}
	return path
}

func (d *YAMLDirectory) ListRoutes(context.Context) ([]transit.Route, error) {
	out := make([]transit.Route, len(d.routes))
	copy(out, d.routes)
	return out, nil
}

func (d *YAMLDirectory) GetRouteShape(_ context.Context, routeID string, direction int) (transit.Path, error) {
	if direction == 1 {
		return d.reverse[routeID], nil
	}
	p, ok := d.forward[routeID]
	if !ok {
		return nil, fmt.Errorf("unknown route %q", routeID)
	}
	return p, nil
}
