package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// DatabaseURL selects the Postgres route directory. Empty means the
	// YAML file directory is used instead.
	DatabaseURL string
	RoutesFile  string `validate:"required_without=DatabaseURL"`

	NATSURL string `validate:"required"`

	PublishInterval time.Duration `validate:"min=1s,max=60s"`
	LiveStaleness   time.Duration `validate:"min=1s"`
	LiveFeed        bool

	// Schedule defaults, used for routes that do not carry their own.
	HeadwayMinutes      float64 `validate:"gt=0"`
	TripDurationMinutes float64 `validate:"gt=0"`

	AnimationDuration time.Duration `validate:"min=100ms,max=30s"`
	SnapThresholdKm   float64       `validate:"gt=0"`
	FrameRate         int           `validate:"min=1,max=240"`

	APIAddr     string
	MetricsAddr string

	LogNATSSubjects bool
	Location        *time.Location `validate:"required"`
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars
	// when PGDATABASE is set. All empty means file-backed routes.
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" && os.Getenv("PGDATABASE") != "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := os.Getenv("PGDATABASE")
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
		} else {
			dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
		}
	}
	cfg.DatabaseURL = dsn
	cfg.RoutesFile = getenvDefault("ROUTES_FILE", "routes.yaml")

	cfg.NATSURL = getenvDefault("NATS_URL", "nats://127.0.0.1:4222")

	// Snapshot publish interval
	if v := os.Getenv("PUBLISH_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid PUBLISH_INTERVAL_SEC: %q", v)
		}
		cfg.PublishInterval = time.Duration(sec) * time.Second
	} else {
		cfg.PublishInterval = 5 * time.Second
	}

	// Window after which live feed data falls back to simulation
	if v := os.Getenv("LIVE_STALENESS_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid LIVE_STALENESS_SEC: %q", v)
		}
		cfg.LiveStaleness = time.Duration(sec) * time.Second
	} else {
		cfg.LiveStaleness = 15 * time.Second
	}
	cfg.LiveFeed = parseBool(getenvDefault("LIVE_FEED", "true"))

	// Schedule defaults
	cfg.HeadwayMinutes = 10
	if v := os.Getenv("HEADWAY_MINUTES"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid HEADWAY_MINUTES: %q", v)
		}
		cfg.HeadwayMinutes = f
	}
	cfg.TripDurationMinutes = 45
	if v := os.Getenv("TRIP_DURATION_MINUTES"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid TRIP_DURATION_MINUTES: %q", v)
		}
		cfg.TripDurationMinutes = f
	}

	// Marker animation
	if v := os.Getenv("ANIMATION_DURATION_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid ANIMATION_DURATION_MS: %q", v)
		}
		cfg.AnimationDuration = time.Duration(ms) * time.Millisecond
	} else {
		cfg.AnimationDuration = 2000 * time.Millisecond
	}
	cfg.SnapThresholdKm = 0.5
	if v := os.Getenv("SNAP_THRESHOLD_KM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid SNAP_THRESHOLD_KM: %q", v)
		}
		cfg.SnapThresholdKm = f
	}
	cfg.FrameRate = 60
	if v := os.Getenv("FRAME_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid FRAME_RATE: %q", v)
		}
		cfg.FrameRate = n
	}

	cfg.APIAddr = getenvDefault("API_ADDR", ":8080")

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))

	// Time zone
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
