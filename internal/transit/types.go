package transit

import "time"

// Route describes one transit line from the route directory.
type Route struct {
	ID              string
	ShortName       string
	LongName        string
	Color           string
	DirectionLabels [2]string // e.g. {"Outbound", "Inbound"}

	HeadwayMinutes      float64 // spacing between consecutive vehicles, one direction
	TripDurationMinutes float64 // end-to-end traversal time for the full path
}

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Path is the ordered polyline a route physically follows. It is read-only
// once obtained; direction 1 traverses the same points in reverse unless the
// directory supplies a distinct shape for it.
type Path []Point

// SimulatedVehicle is one generated vehicle position. It has no lifecycle of
// its own: each generation cycle fully recomputes it. The ID is stable per
// (route, direction, slot) so consecutive snapshots describe "the same"
// vehicle and can be animated between.
type SimulatedVehicle struct {
	ID             string    `json:"id"`
	RouteID        string    `json:"routeId"`
	RouteShortName string    `json:"routeShortName"`
	Lat            float64   `json:"lat"`
	Lon            float64   `json:"lon"`
	BearingDeg     float64   `json:"bearing"`
	Direction      int       `json:"direction"` // 0 or 1
	DirectionLabel string    `json:"directionLabel,omitempty"`
	Progress       float64   `json:"progress"` // 0..1 along the direction of travel
	Timestamp      time.Time `json:"timestamp"`
}

// LiveVehicle is a position reported by an external real-time feed. When a
// route has fresh live data the simulator republishes it unchanged instead of
// generating positions.
type LiveVehicle struct {
	ID        string    `json:"id"`
	RouteID   string    `json:"routeId"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Direction int       `json:"direction"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the full vehicle list for one route at one instant. All
// vehicles in a snapshot are computed from the same reference time.
type Snapshot struct {
	RouteID     string             `json:"routeId"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Source      string             `json:"source"` // "simulated" or "live"
	Vehicles    []SimulatedVehicle `json:"vehicles"`
}
