package marker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-simulator/internal/transit"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestStateEasesLinearly(t *testing.T) {
	st := NewState(transit.Point{Lat: 53.0, Lon: -6.0})
	st.SetTarget(transit.Point{Lat: 53.001, Lon: -6.0}, time.Second, t0)

	tests := []struct {
		name    string
		elapsed time.Duration
		wantLat float64
	}{
		{"quarter", 250 * time.Millisecond, 53.00025},
		{"half", 500 * time.Millisecond, 53.0005},
		{"three quarters", 750 * time.Millisecond, 53.00075},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := st.Tick(t0.Add(tt.elapsed))
			assert.InDelta(t, tt.wantLat, pos.Lat, 1e-9)
			assert.InDelta(t, -6.0, pos.Lon, 1e-12)
		})
	}
}

func TestStateCompletionIsExact(t *testing.T) {
	start := transit.Point{Lat: 53.0, Lon: -6.0}
	target := transit.Point{Lat: 53.001, Lon: -6.0005}
	st := NewState(start)
	st.SetTarget(target, time.Second, t0)

	pos := st.Tick(t0.Add(time.Second))
	// Exactly equal, not merely close: completion must clear any residual
	// floating-point drift.
	assert.Equal(t, target, pos)
	assert.False(t, st.Animating())

	// Further ticks stay put.
	assert.Equal(t, target, st.Tick(t0.Add(2*time.Second)))
}

func TestStateSnapRule(t *testing.T) {
	// ~11 km jump, far over the 500 m threshold: the marker must snap, not
	// slide.
	st := NewState(transit.Point{Lat: 53.0, Lon: -6.0})
	target := transit.Point{Lat: 53.1, Lon: -6.0}
	st.SetTarget(target, time.Second, t0)

	assert.False(t, st.Animating())
	assert.Equal(t, target, st.Displayed)
	// First tick output equals the target exactly, not an intermediate.
	assert.Equal(t, target, st.Tick(t0.Add(time.Millisecond)))
}

func TestStateUnderThresholdAnimates(t *testing.T) {
	st := NewState(transit.Point{Lat: 53.0, Lon: -6.0})
	// ~110 m, under the threshold.
	st.SetTarget(transit.Point{Lat: 53.001, Lon: -6.0}, time.Second, t0)
	assert.True(t, st.Animating())

	pos := st.Tick(t0.Add(100 * time.Millisecond))
	assert.Less(t, pos.Lat, 53.001)
	assert.Greater(t, pos.Lat, 53.0)
}

func TestStateRetargetCancelsInFlight(t *testing.T) {
	st := NewState(transit.Point{Lat: 53.0, Lon: -6.0})
	st.SetTarget(transit.Point{Lat: 53.001, Lon: -6.0}, time.Second, t0)

	// Halfway through, a new target arrives. The animation restarts from
	// the currently displayed position; only one easing drives the marker.
	mid := st.Tick(t0.Add(500 * time.Millisecond))
	newTarget := transit.Point{Lat: 53.0005, Lon: -6.001}
	retargetAt := t0.Add(500 * time.Millisecond)
	st.SetTarget(newTarget, time.Second, retargetAt)

	atStart := st.Tick(retargetAt)
	assert.InDelta(t, mid.Lat, atStart.Lat, 1e-9, "restart begins at the displayed position")

	done := st.Tick(retargetAt.Add(time.Second))
	assert.Equal(t, newTarget, done)
}

func TestStateZeroDurationJumps(t *testing.T) {
	st := NewState(transit.Point{Lat: 53.0, Lon: -6.0})
	target := transit.Point{Lat: 53.0001, Lon: -6.0}
	st.SetTarget(target, 0, t0)
	assert.Equal(t, target, st.Displayed)
	assert.False(t, st.Animating())
}

func TestStateTickBeforeStartClamps(t *testing.T) {
	start := transit.Point{Lat: 53.0, Lon: -6.0}
	st := NewState(start)
	st.SetTarget(transit.Point{Lat: 53.001, Lon: -6.0}, time.Second, t0)

	pos := st.Tick(t0.Add(-time.Second))
	assert.Equal(t, start, pos, "a tick before the start time does not extrapolate backwards")
}

func TestRegistryApplyReconciles(t *testing.T) {
	reg := NewRegistry(time.Second, DefaultSnapKm)

	snap := transit.Snapshot{
		RouteID: "40",
		Vehicles: []transit.SimulatedVehicle{
			{ID: "sim-40-0-0", Lat: 53.0, Lon: -6.0},
			{ID: "sim-40-1-0", Lat: 53.01, Lon: -6.01},
		},
	}
	reg.Apply(snap, t0)
	assert.Equal(t, 2, reg.Len())

	pos, ok := reg.Position("sim-40-0-0")
	require.True(t, ok)
	assert.Equal(t, transit.Point{Lat: 53.0, Lon: -6.0}, pos)

	// Next snapshot drops one vehicle and moves the other slightly.
	next := transit.Snapshot{
		RouteID: "40",
		Vehicles: []transit.SimulatedVehicle{
			{ID: "sim-40-0-0", Lat: 53.0005, Lon: -6.0},
		},
	}
	reg.Apply(next, t0.Add(5*time.Second))
	assert.Equal(t, 1, reg.Len())
	_, ok = reg.Position("sim-40-1-0")
	assert.False(t, ok, "vehicles absent from the snapshot are removed")

	// The survivor is animating toward the new target.
	reg.Step(t0.Add(5*time.Second+500*time.Millisecond), nil)
	pos, ok = reg.Position("sim-40-0-0")
	require.True(t, ok)
	assert.Greater(t, pos.Lat, 53.0)
	assert.Less(t, pos.Lat, 53.0005)
}

func TestRegistryApplyScopedToSnapshotRoute(t *testing.T) {
	// One registry serves every route; each route publishes its own snapshot
	// on its own tick. Reconciling route 151 must not disturb route 40.
	reg := NewRegistry(time.Second, DefaultSnapKm)

	reg.Apply(transit.Snapshot{
		RouteID: "40",
		Vehicles: []transit.SimulatedVehicle{
			{ID: "sim-40-0-0", RouteID: "40", Lat: 53.35, Lon: -6.26},
		},
	}, t0)
	reg.Apply(transit.Snapshot{
		RouteID: "151",
		Vehicles: []transit.SimulatedVehicle{
			{ID: "sim-151-0-0", RouteID: "151", Lat: 53.34, Lon: -6.23},
		},
	}, t0)

	assert.Equal(t, 2, reg.Len())
	_, ok := reg.Position("sim-40-0-0")
	assert.True(t, ok, "route 40's marker survives route 151's snapshot")

	// Route 40's animation keeps running across route 151's snapshots.
	reg.Apply(transit.Snapshot{
		RouteID: "40",
		Vehicles: []transit.SimulatedVehicle{
			{ID: "sim-40-0-0", RouteID: "40", Lat: 53.3505, Lon: -6.26},
		},
	}, t0.Add(5*time.Second))
	reg.Apply(transit.Snapshot{
		RouteID: "151",
		Vehicles: []transit.SimulatedVehicle{
			{ID: "sim-151-0-0", RouteID: "151", Lat: 53.34, Lon: -6.23},
		},
	}, t0.Add(5*time.Second))

	reg.Step(t0.Add(5*time.Second+500*time.Millisecond), nil)
	pos, ok := reg.Position("sim-40-0-0")
	require.True(t, ok)
	assert.Greater(t, pos.Lat, 53.35)
	assert.Less(t, pos.Lat, 53.3505)

	// A route's own snapshot still prunes its own vehicles, and only those.
	reg.Apply(transit.Snapshot{
		RouteID: "40",
		Vehicles: []transit.SimulatedVehicle{
			{ID: "sim-40-1-0", RouteID: "40", Lat: 53.40, Lon: -6.27},
		},
	}, t0.Add(10*time.Second))
	_, ok = reg.Position("sim-40-0-0")
	assert.False(t, ok)
	_, ok = reg.Position("sim-151-0-0")
	assert.True(t, ok)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryStepInvokesDisplayOnlyForAnimating(t *testing.T) {
	reg := NewRegistry(time.Second, DefaultSnapKm)
	reg.Add("idle", transit.Point{Lat: 1, Lon: 1})
	reg.Add("moving", transit.Point{Lat: 53.0, Lon: -6.0})
	reg.Update("moving", transit.Point{Lat: 53.001, Lon: -6.0}, t0)

	var calls []string
	reg.Step(t0.Add(100*time.Millisecond), func(id string, _ transit.Point) {
		calls = append(calls, id)
	})
	assert.Equal(t, []string{"moving"}, calls)
}

func TestRegistryAddUpdateRemove(t *testing.T) {
	reg := NewRegistry(time.Second, DefaultSnapKm)

	reg.Add("v1", transit.Point{Lat: 53.0, Lon: -6.0})
	assert.Equal(t, 1, reg.Len())

	reg.Update("v1", transit.Point{Lat: 53.0002, Lon: -6.0}, t0)
	reg.Step(t0.Add(time.Second), nil)
	pos, ok := reg.Position("v1")
	require.True(t, ok)
	assert.Equal(t, transit.Point{Lat: 53.0002, Lon: -6.0}, pos)

	// Updating an unknown ID is a no-op.
	reg.Update("ghost", transit.Point{Lat: 1, Lon: 1}, t0)
	assert.Equal(t, 1, reg.Len())

	reg.Remove("v1")
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryCustomSnapThreshold(t *testing.T) {
	// 5 km threshold: a ~1.1 km move should still animate.
	reg := NewRegistry(time.Second, 5)
	reg.Add("v1", transit.Point{Lat: 53.0, Lon: -6.0})
	reg.Update("v1", transit.Point{Lat: 53.01, Lon: -6.0}, t0)

	reg.Step(t0.Add(100*time.Millisecond), nil)
	pos, _ := reg.Position("v1")
	assert.Greater(t, pos.Lat, 53.0)
	assert.Less(t, pos.Lat, 53.01)
}

func TestRegistryPositions(t *testing.T) {
	reg := NewRegistry(time.Second, DefaultSnapKm)
	reg.Add("a", transit.Point{Lat: 1, Lon: 2})
	reg.Add("b", transit.Point{Lat: 3, Lon: 4})

	all := reg.Positions()
	assert.Len(t, all, 2)
	assert.Equal(t, transit.Point{Lat: 1, Lon: 2}, all["a"])
	assert.Equal(t, transit.Point{Lat: 3, Lon: 4}, all["b"])
}
