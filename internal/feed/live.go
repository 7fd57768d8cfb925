// Package feed subscribes to an optional external real-time vehicle feed.
// When a route has a fresh, non-empty live report the simulator republishes
// it instead of generating positions for that route.
package feed

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"transit-simulator/internal/publisher"
	"transit-simulator/internal/transit"
)

// LiveSubjectPrefix is where external feeds report real vehicle positions,
// one subject per route.
const LiveSubjectPrefix = "vehicles.live"

// report is the wire format a live feed publishes per route.
type report struct {
	RouteID  string                `json:"routeId"`
	Vehicles []transit.LiveVehicle `json:"vehicles"`
}

// DefaultRetention bounds how long a route's last report is kept when no
// newer one arrives.
const DefaultRetention = time.Minute

// Subscriber retains the latest live vehicle list per route. It implements
// sim.LiveSource.
type Subscriber struct {
	sub       *nats.Subscription
	retention time.Duration

	mu     sync.Mutex
	latest map[string]entry
}

type entry struct {
	vehicles   []transit.LiveVehicle
	receivedAt time.Time
}

// Subscribe listens on vehicles.live.> using the given connection. Malformed
// messages are logged and dropped; the feed is advisory and must never take
// down the generation path. Reports older than retention are evicted as new
// ones arrive, so the per-route map stays bounded however many subjects a
// feed publishes on.
func Subscribe(nc *nats.Conn, retention time.Duration) (*Subscriber, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &Subscriber{retention: retention, latest: make(map[string]entry)}
	sub, err := nc.Subscribe(LiveSubjectPrefix+".>", func(msg *nats.Msg) {
		var r report
		if err := json.Unmarshal(msg.Data, &r); err != nil {
			log.Printf("live feed: bad message on %s: %v", msg.Subject, err)
			return
		}
		if r.RouteID == "" {
			return
		}
		now := time.Now()
		s.mu.Lock()
		s.latest[r.RouteID] = entry{vehicles: r.Vehicles, receivedAt: now}
		s.evictStaleLocked(now)
		s.mu.Unlock()
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", LiveSubjectPrefix+".>", err)
	}
	s.sub = sub
	return s, nil
}

// evictStaleLocked drops reports old enough that no reader would ever accept
// them. Caller holds mu.
func (s *Subscriber) evictStaleLocked(now time.Time) {
	for id, e := range s.latest {
		if now.Sub(e.receivedAt) > s.retention {
			delete(s.latest, id)
		}
	}
}

// Latest returns the most recently received live vehicles for a route.
func (s *Subscriber) Latest(routeID string) ([]transit.LiveVehicle, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.latest[routeID]
	if !ok {
		return nil, time.Time{}, false
	}
	return e.vehicles, e.receivedAt, true
}

// Close drops the subscription.
func (s *Subscriber) Close() {
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
}

// SubjectFor returns the live feed subject for one route, for publishers of
// live data.
func SubjectFor(routeID string) string {
	return fmt.Sprintf("%s.%s", LiveSubjectPrefix, publisher.SubjectToken(routeID))
}
