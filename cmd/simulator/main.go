package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"transit-simulator/internal/api"
	"transit-simulator/internal/config"
	"transit-simulator/internal/directory"
	"transit-simulator/internal/feed"
	"transit-simulator/internal/marker"
	"transit-simulator/internal/metrics"
	"transit-simulator/internal/publisher"
	"transit-simulator/internal/sim"
	"transit-simulator/internal/transit"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Route directory: Postgres when a DSN is configured, YAML file otherwise
	var dir directory.Directory
	var dirName string
	if cfg.DatabaseURL != "" {
		pg, err := directory.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db open error: %v", err)
		}
		defer pg.Close()
		if err := pg.Ping(ctx); err != nil {
			log.Fatalf("db ping error: %v", err)
		}
		dir = pg
		dirName = "postgres"
	} else {
		yd, err := directory.LoadYAML(cfg.RoutesFile)
		if err != nil {
			log.Fatalf("routes file error: %v", err)
		}
		dir = yd
		dirName = "yaml"
	}

	routes, err := dir.ListRoutes(ctx)
	if err != nil {
		log.Fatalf("list routes error: %v", err)
	}
	if len(routes) == 0 {
		log.Printf("route directory is empty; nothing to simulate")
	}

	// Precompute geometry once per route; paths are immutable afterwards.
	managed := make(map[string]sim.ManagedRoute, len(routes))
	var startable []sim.ManagedRoute
	for _, r := range routes {
		mr, ok := buildManagedRoute(ctx, dir, r, cfg)
		if !ok {
			continue
		}
		managed[r.ID] = mr
		startable = append(startable, mr)
	}

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.PublishInterval, cfg.LiveStaleness)
		srv := mcol.Serve(cfg.MetricsAddr)
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// NATS publisher for generated snapshots
	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
	if err != nil {
		log.Fatalf("nats error: %v", err)
	}
	defer pub.Close()

	// Optional live feed; fresh live data takes precedence over simulation
	var live sim.LiveSource
	if cfg.LiveFeed {
		sub, err := feed.Subscribe(pub.Conn(), cfg.LiveStaleness)
		if err != nil {
			log.Fatalf("live feed subscribe error: %v", err)
		}
		defer sub.Close()
		live = sub
	}

	// Marker registry: the daemon's own display layer. Each published
	// snapshot retargets the markers, and the animation loop eases them at
	// the configured frame rate.
	reg := marker.NewRegistry(cfg.AnimationDuration, cfg.SnapThresholdKm)
	go reg.Run(ctx, cfg.FrameRate, nil)

	mgr := sim.NewManager(&snapshotTee{pub: pub, reg: reg}, live, cfg.PublishInterval, cfg.LiveStaleness, cfg.Location, mcol)
	mgr.Start(ctx, startable)

	// HTTP API for route listing and on-demand snapshots
	apiSrv := api.NewServer(routes, func(id string) (sim.ManagedRoute, bool) {
		mr, ok := managed[id]
		return mr, ok
	}, mgr.ActiveCount, dirName, cfg.Location, reg).Serve(cfg.APIAddr)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(shutdownCtx)
	}()

	// Block until context cancelled
	<-ctx.Done()
	mgr.Stop()
	log.Println("shutdown complete")
}

// buildManagedRoute resolves a route's shapes and schedule parameters. Routes
// without a usable path are skipped: an unserved route legitimately has no
// simulated traffic.
func buildManagedRoute(ctx context.Context, dir directory.Directory, r transit.Route, cfg *config.Config) (sim.ManagedRoute, bool) {
	forward, err := dir.GetRouteShape(ctx, r.ID, 0)
	if err != nil {
		log.Printf("route %s: shape error: %v", r.ID, err)
		return sim.ManagedRoute{}, false
	}
	if len(forward) < 2 {
		log.Printf("route %s: path has %d points, skipping", r.ID, len(forward))
		return sim.ManagedRoute{}, false
	}
	reverse, err := dir.GetRouteShape(ctx, r.ID, 1)
	if err != nil {
		log.Printf("route %s: reverse shape error: %v", r.ID, err)
		reverse = nil
	}

	params := sim.ScheduleParams{
		HeadwayMinutes:      r.HeadwayMinutes,
		TripDurationMinutes: r.TripDurationMinutes,
	}
	if params.HeadwayMinutes <= 0 {
		params.HeadwayMinutes = cfg.HeadwayMinutes
	}
	if params.TripDurationMinutes <= 0 {
		params.TripDurationMinutes = cfg.TripDurationMinutes
	}

	return sim.ManagedRoute{
		Route:  r,
		Shapes: sim.NewRouteShapes(forward, reverse),
		Params: params,
	}, true
}

// snapshotTee forwards each snapshot to NATS and retargets the local marker
// registry with it.
type snapshotTee struct {
	pub *publisher.NATSPublisher
	reg *marker.Registry
}

func (t *snapshotTee) PublishSnapshot(snap transit.Snapshot) error {
	t.reg.Apply(snap, time.Now())
	return t.pub.PublishSnapshot(snap)
}

// wrapPublisherMetrics adapts the Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
