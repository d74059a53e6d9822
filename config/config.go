package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// RegionBounds is the rectangular service area. Fixes outside it are
// clamped to the nearest edge, never stored raw.
type RegionBounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BengaluruBounds is the default service region.
var BengaluruBounds = RegionBounds{
	MinLat: 12.834,
	MaxLat: 13.139,
	MinLng: 77.44,
	MaxLng: 77.77,
}

// Config holds all configuration for the chef client.
type Config struct {
	// Backend
	APIBaseURL     string
	GeocodeBaseURL string
	RequestTimeout time.Duration

	// Local persistence
	DataDir    string
	SQLitePath string
	RedisURL   string

	// Location policy
	Region              RegionBounds
	LocationMinInterval time.Duration
	LocationMinDistance float64 // meters

	// Session policy
	OTPTestCode  string
	RequireEmail bool
}

// Load creates a Config from environment variables, falling back to
// defaults usable against a local backend.
func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL:          getEnv("CHEF_API_URL", "http://localhost:8080"),
		GeocodeBaseURL:      getEnv("CHEF_GEOCODE_URL", "https://nominatim.openstreetmap.org"),
		RequestTimeout:      10 * time.Second,
		DataDir:             getEnv("CHEF_DATA_DIR", defaultDataDir()),
		RedisURL:            os.Getenv("CHEF_REDIS_URL"),
		Region:              BengaluruBounds,
		LocationMinInterval: 10 * time.Second,
		LocationMinDistance: 10,
		OTPTestCode:         getEnv("CHEF_OTP_TEST_CODE", "1234"),
	}

	if v := os.Getenv("CHEF_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CHEF_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v := os.Getenv("CHEF_LOCATION_MIN_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CHEF_LOCATION_MIN_INTERVAL: %w", err)
		}
		cfg.LocationMinInterval = d
	}
	if v := os.Getenv("CHEF_LOCATION_MIN_DISTANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid CHEF_LOCATION_MIN_DISTANCE: %w", err)
		}
		cfg.LocationMinDistance = f
	}
	if v := os.Getenv("CHEF_REQUIRE_EMAIL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CHEF_REQUIRE_EMAIL: %w", err)
		}
		cfg.RequireEmail = b
	}

	var err error
	if cfg.Region, err = loadRegion(cfg.Region); err != nil {
		return nil, err
	}

	cfg.SQLitePath = getEnv("CHEF_SQLITE_PATH", filepath.Join(cfg.DataDir, "chef.db"))
	return cfg, nil
}

func loadRegion(defaults RegionBounds) (RegionBounds, error) {
	region := defaults
	for _, f := range []struct {
		env string
		dst *float64
	}{
		{"CHEF_REGION_MIN_LAT", &region.MinLat},
		{"CHEF_REGION_MAX_LAT", &region.MaxLat},
		{"CHEF_REGION_MIN_LNG", &region.MinLng},
		{"CHEF_REGION_MAX_LNG", &region.MaxLng},
	} {
		v := os.Getenv(f.env)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return region, fmt.Errorf("invalid %s: %w", f.env, err)
		}
		*f.dst = parsed
	}
	if region.MinLat > region.MaxLat || region.MinLng > region.MaxLng {
		return region, fmt.Errorf("invalid service region: %+v", region)
	}
	return region, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".chef-client")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
