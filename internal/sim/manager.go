package sim

import (
	"context"
	"log"
	"sync"
	"time"

	"transit-simulator/internal/metrics"
	"transit-simulator/internal/transit"
)

// SnapshotPublisher receives the full vehicle list each generation cycle.
type SnapshotPublisher interface {
	PublishSnapshot(snap transit.Snapshot) error
}

// LiveSource exposes the most recent externally reported vehicles for a
// route, if any. Fresh live data takes precedence over simulation.
type LiveSource interface {
	Latest(routeID string) (vehicles []transit.LiveVehicle, receivedAt time.Time, ok bool)
}

// Manager owns one generation loop per selected route. Each loop ticks at the
// publish interval, recomputes the route's snapshot from a single reference
// timestamp, and republishes it. Snapshots fully replace one another; nothing
// is mutated incrementally.
type Manager struct {
	pub             SnapshotPublisher
	live            LiveSource // may be nil
	publishInterval time.Duration
	liveStaleness   time.Duration
	tz              *time.Location
	metrics         *metrics.Collector

	mu      sync.Mutex
	running map[string]context.CancelFunc // routeID -> cancel
	wg      sync.WaitGroup
}

// ManagedRoute bundles a route with its precomputed geometry and schedule.
type ManagedRoute struct {
	Route  transit.Route
	Shapes *RouteShapes
	Params ScheduleParams
}

func NewManager(pub SnapshotPublisher, live LiveSource, publishInterval, liveStaleness time.Duration, tz *time.Location, m *metrics.Collector) *Manager {
	return &Manager{
		pub:             pub,
		live:            live,
		publishInterval: publishInterval,
		liveStaleness:   liveStaleness,
		tz:              tz,
		metrics:         m,
		running:         make(map[string]context.CancelFunc),
	}
}

// Start launches generation loops for all given routes.
func (m *Manager) Start(ctx context.Context, routes []ManagedRoute) {
	for _, r := range routes {
		m.StartRoute(ctx, r)
	}
}

// StartRoute begins the periodic generation loop for one route. Starting an
// already running route is a no-op.
func (m *Manager) StartRoute(parent context.Context, r ManagedRoute) {
	m.mu.Lock()
	if _, exists := m.running[r.Route.ID]; exists {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	m.running[r.Route.ID] = cancel
	m.wg.Add(1)
	if m.metrics != nil {
		m.metrics.RoutesStarted.Inc()
		m.metrics.ActiveRoutes.Set(float64(len(m.running)))
	}
	m.mu.Unlock()

	log.Printf("starting route %s (%s): %d vehicles per direction",
		r.Route.ID, r.Route.ShortName, r.Params.VehiclesPerDirection())
	go func() {
		defer m.wg.Done()
		m.runRoute(ctx, r)
		m.mu.Lock()
		delete(m.running, r.Route.ID)
		if m.metrics != nil {
			m.metrics.ActiveRoutes.Set(float64(len(m.running)))
		}
		m.mu.Unlock()
	}()
}

// StopRoute cancels the generation loop for one route, e.g. when it is
// deselected. Unknown route IDs are ignored.
func (m *Manager) StopRoute(routeID string) {
	m.mu.Lock()
	cancel, ok := m.running[routeID]
	m.mu.Unlock()
	if ok {
		log.Printf("stopping route %s", routeID)
		cancel()
	}
}

// ActiveCount returns the number of routes with a running generation loop.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}

// Stop cancels every loop and waits for them to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	for _, cancel := range m.running {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) runRoute(ctx context.Context, r ManagedRoute) {
	// Publish an initial snapshot immediately so subscribers do not wait a
	// full interval after route selection.
	m.publishOnce(r)

	tick := time.NewTicker(m.publishInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			m.publishOnce(r)
		}
	}
}

func (m *Manager) publishOnce(r ManagedRoute) {
	tickStart := time.Now()
	now := time.Now().In(m.tz)

	snap := transit.Snapshot{
		RouteID:     r.Route.ID,
		GeneratedAt: now,
		Source:      "simulated",
	}
	if lv, receivedAt, ok := m.latestLive(r.Route.ID); ok && now.Sub(receivedAt) <= m.liveStaleness {
		snap.Source = "live"
		snap.Vehicles = liveToSimulated(r.Route, lv)
	} else {
		snap.Vehicles = Generate(r.Route, r.Shapes, r.Params, now)
	}

	if err := m.pub.PublishSnapshot(snap); err != nil {
		log.Printf("publish snapshot for route %s: %v", r.Route.ID, err)
	}
	if m.metrics != nil {
		m.metrics.SnapshotsGenerated.WithLabelValues(snap.Source).Inc()
		m.metrics.VehiclesPerSnapshot.Observe(float64(len(snap.Vehicles)))
		m.metrics.TickDuration.Observe(time.Since(tickStart).Seconds())
	}
}

func (m *Manager) latestLive(routeID string) ([]transit.LiveVehicle, time.Time, bool) {
	if m.live == nil {
		return nil, time.Time{}, false
	}
	lv, at, ok := m.live.Latest(routeID)
	if !ok || len(lv) == 0 {
		return nil, time.Time{}, false
	}
	return lv, at, true
}

// liveToSimulated reshapes live reports into the snapshot vehicle format so
// downstream consumers handle one message shape.
func liveToSimulated(route transit.Route, lv []transit.LiveVehicle) []transit.SimulatedVehicle {
	out := make([]transit.SimulatedVehicle, 0, len(lv))
	for _, v := range lv {
		direction := v.Direction
		if direction != 0 && direction != 1 {
			direction = 0
		}
		out = append(out, transit.SimulatedVehicle{
			ID:             v.ID,
			RouteID:        route.ID,
			RouteShortName: route.ShortName,
			Lat:            v.Lat,
			Lon:            v.Lon,
			Direction:      direction,
			DirectionLabel: route.DirectionLabels[direction],
			Timestamp:      v.Timestamp,
		})
	}
	return out
}
