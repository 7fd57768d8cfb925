package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	ActiveRoutes  prometheus.Gauge
	RoutesStarted prometheus.Counter

	SnapshotsGenerated  *prometheus.CounterVec // source label: simulated|live
	VehiclesPerSnapshot prometheus.Histogram

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	PublishInterval prometheus.Gauge // seconds
	LiveStaleness   prometheus.Gauge // seconds
}

func NewCollector(publishInterval, liveStaleness time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ActiveRoutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_active_routes",
			Help: "Number of routes with a running generation loop.",
		}),
		RoutesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_routes_started_total",
			Help: "Total generation loops started.",
		}),
		SnapshotsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simulator_snapshots_generated_total",
			Help: "Total snapshots produced, by source.",
		}, []string{"source"}),
		VehiclesPerSnapshot: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_vehicles_per_snapshot",
			Help:    "Vehicle count per published snapshot.",
			Buckets: prometheus.LinearBuckets(0, 2, 12),
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_tick_duration_seconds",
			Help:    "Duration of one generation cycle.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulator_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		PublishInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_publish_interval_seconds",
			Help: "Snapshot publish interval in seconds.",
		}),
		LiveStaleness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_live_staleness_seconds",
			Help: "Window after which live feed data is considered stale.",
		}),
	}

	reg.MustRegister(
		c.ActiveRoutes, c.RoutesStarted,
		c.SnapshotsGenerated, c.VehiclesPerSnapshot,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.TickDuration, c.PublishDuration,
		c.PublishInterval, c.LiveStaleness,
	)

	c.PublishInterval.Set(publishInterval.Seconds())
	c.LiveStaleness.Set(liveStaleness.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
