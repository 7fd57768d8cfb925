package marker

import (
	"context"
	"sync"
	"time"

	"transit-simulator/internal/transit"
)

// DefaultFrameRate approximates a display refresh callback when none exists.
const DefaultFrameRate = 60

// DefaultAnimationDuration suits generator-driven refresh, where updates
// arrive every few seconds rather than every frame.
const DefaultAnimationDuration = 2 * time.Second

// DisplayFunc receives each marker's position every animation frame. The
// display layer uses it to move whatever it draws for that vehicle.
type DisplayFunc func(vehicleID string, pos transit.Point)

// Registry owns the animation state for every displayed vehicle marker,
// keyed by vehicle ID. Markers are managed through explicit add, update and
// remove operations, so the interpolator can run without a display surface.
type Registry struct {
	duration time.Duration
	snapKm   float64

	mu      sync.Mutex
	markers map[string]*markerEntry
}

// markerEntry tags each marker with the route its snapshots come from, so
// reconciliation for one route cannot touch another route's markers.
type markerEntry struct {
	st      *State
	routeID string
}

func NewRegistry(animationDuration time.Duration, snapKm float64) *Registry {
	if animationDuration <= 0 {
		animationDuration = DefaultAnimationDuration
	}
	if snapKm <= 0 {
		snapKm = DefaultSnapKm
	}
	return &Registry{
		duration: animationDuration,
		snapKm:   snapKm,
		markers:  make(map[string]*markerEntry),
	}
}

func (r *Registry) newState(initial transit.Point) *State {
	st := NewState(initial)
	st.SetSnapThreshold(r.snapKm)
	return st
}

// Apply reconciles the registry against a new snapshot: unknown vehicles are
// added at their reported position, known vehicles get a new animation
// target, and vehicles absent from the snapshot are removed, cancelling any
// in-flight animation they had. Snapshots are per route, so removal only
// considers markers belonging to the snapshot's route; markers fed by other
// routes' snapshots keep animating untouched.
func (r *Registry) Apply(snap transit.Snapshot, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(snap.Vehicles))
	for _, v := range snap.Vehicles {
		seen[v.ID] = true
		pos := transit.Point{Lat: v.Lat, Lon: v.Lon}
		if e, ok := r.markers[v.ID]; ok {
			e.routeID = snap.RouteID
			e.st.SetTarget(pos, r.duration, now)
		} else {
			r.markers[v.ID] = &markerEntry{st: r.newState(pos), routeID: snap.RouteID}
		}
	}
	for id, e := range r.markers {
		if e.routeID == snap.RouteID && !seen[id] {
			delete(r.markers, id)
		}
	}
}

// Add registers a marker at its initial position. An existing marker with
// the same ID is replaced. Markers added this way belong to no route and are
// only ever removed explicitly.
func (r *Registry) Add(vehicleID string, initial transit.Point) {
	r.mu.Lock()
	r.markers[vehicleID] = &markerEntry{st: r.newState(initial)}
	r.mu.Unlock()
}

// Update retargets one marker. Unknown IDs are ignored.
func (r *Registry) Update(vehicleID string, target transit.Point, now time.Time) {
	r.mu.Lock()
	if e, ok := r.markers[vehicleID]; ok {
		e.st.SetTarget(target, r.duration, now)
	}
	r.mu.Unlock()
}

// Remove drops a marker and cancels its animation.
func (r *Registry) Remove(vehicleID string) {
	r.mu.Lock()
	delete(r.markers, vehicleID)
	r.mu.Unlock()
}

// Position returns the current displayed position of a marker.
func (r *Registry) Position(vehicleID string) (transit.Point, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.markers[vehicleID]
	if !ok {
		return transit.Point{}, false
	}
	return e.st.Displayed, true
}

// Positions returns the current displayed position of every marker.
func (r *Registry) Positions() map[string]transit.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]transit.Point, len(r.markers))
	for id, e := range r.markers {
		out[id] = e.st.Displayed
	}
	return out
}

// Len returns the number of registered markers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.markers)
}

// Step advances every marker to the given instant, invoking display for each
// one that is animating. Idle markers are no-ops.
func (r *Registry) Step(now time.Time, display DisplayFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.markers {
		if !e.st.Animating() {
			continue
		}
		pos := e.st.Tick(now)
		if display != nil {
			display(id, pos)
		}
	}
}

// Run drives the animation loop at a fixed frame rate until the context is
// cancelled. It stands in for a display-refresh-synchronized callback.
func (r *Registry) Run(ctx context.Context, frameRate int, display DisplayFunc) {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	tick := time.NewTicker(time.Second / time.Duration(frameRate))
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			r.Step(now, display)
		}
	}
}
