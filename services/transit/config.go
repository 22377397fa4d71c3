package transit

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rmrobinson/tnsw/services/transit/tripplanner"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const (
	// DefaultScanInterval is how often each route is refreshed.
	DefaultScanInterval = time.Minute
	// DefaultNumTrips is the number of trips tracked when a route doesn't specify one.
	DefaultNumTrips = 1

	configKey         = "transportnsw"
	keyAPIKey         = configKey + ".api_key"
	keyRoutes         = configKey + ".routes"
	keyScanInterval   = configKey + ".scan_interval"
	keyRequestTimeout = configKey + ".request_timeout"
	keyMaxRetries     = configKey + ".max_retries"
	envAPIKey         = "NVS_TRANSPORTNSW_API_KEY"
	routeIDPrefix     = "tnsw"
	noRouteIndex      = -1
)

var (
	// ErrMissingAPIKey is returned if no API key is configured.
	ErrMissingAPIKey = errors.New("api key missing")
	// ErrInvalidScanInterval is returned if the scan interval isn't positive.
	ErrInvalidScanInterval = errors.New("scan interval must be positive")
	// ErrDuplicateRoute is returned if two routes share an origin and destination.
	ErrDuplicateRoute = errors.New("duplicate route")
)

// ConfigError describes a configuration problem.
// Index is the position of the offending route, or -1 for a problem with the whole config.
type ConfigError struct {
	Index int
	Route string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Index == noRouteIndex {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: route %d (%s): %v", e.Index, e.Route, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// RouteConfig is a single origin and destination pair to monitor.
type RouteConfig struct {
	Name              string `mapstructure:"name" validate:"required"`
	StopID            string `mapstructure:"stop_id" validate:"required"`
	DestinationStopID string `mapstructure:"destination_stop_id" validate:"required"`
	NumTrips          int    `mapstructure:"num_trips" validate:"gte=1"`
}

// ID uniquely identifies the route by its origin and destination.
func (rc RouteConfig) ID() string {
	return fmt.Sprintf("%s-%s-%s", routeIDPrefix, rc.StopID, rc.DestinationStopID)
}

// routeEntry distinguishes an omitted trip count from an explicit zero.
type routeEntry struct {
	Name              string `mapstructure:"name"`
	StopID            string `mapstructure:"stop_id"`
	DestinationStopID string `mapstructure:"destination_stop_id"`
	NumTrips          *int   `mapstructure:"num_trips"`
}

// Config is the loaded transportnsw configuration.
type Config struct {
	APIKey         string
	ScanInterval   time.Duration
	RequestTimeout time.Duration
	MaxRetries     int

	// Routes holds only the routes which passed validation.
	Routes []RouteConfig
	// RouteErrors combines a ConfigError for every route which was skipped.
	RouteErrors error
}

// LoadConfig reads the transportnsw section of the supplied viper instance.
// A problem with a single route skips that route and is reported in RouteErrors;
// a problem with the section as a whole is returned as the error.
func LoadConfig(v *viper.Viper) (*Config, error) {
	v.SetDefault(keyScanInterval, DefaultScanInterval)
	v.SetDefault(keyRequestTimeout, tripplanner.DefaultTimeout)
	v.SetDefault(keyMaxRetries, DefaultMaxRetries)
	if err := v.BindEnv(keyAPIKey, envAPIKey); err != nil {
		return nil, &ConfigError{Index: noRouteIndex, Err: err}
	}

	cfg := &Config{
		APIKey:         v.GetString(keyAPIKey),
		ScanInterval:   v.GetDuration(keyScanInterval),
		RequestTimeout: v.GetDuration(keyRequestTimeout),
		MaxRetries:     v.GetInt(keyMaxRetries),
	}

	if len(cfg.APIKey) < 1 {
		return nil, &ConfigError{Index: noRouteIndex, Err: ErrMissingAPIKey}
	}
	if cfg.ScanInterval <= 0 {
		return nil, &ConfigError{Index: noRouteIndex, Err: ErrInvalidScanInterval}
	}

	var entries []routeEntry
	if err := v.UnmarshalKey(keyRoutes, &entries); err != nil {
		return nil, &ConfigError{Index: noRouteIndex, Err: err}
	}

	validate := validator.New()
	seen := map[string]bool{}

	for idx, entry := range entries {
		route := RouteConfig{
			Name:              entry.Name,
			StopID:            entry.StopID,
			DestinationStopID: entry.DestinationStopID,
			NumTrips:          DefaultNumTrips,
		}
		if entry.NumTrips != nil {
			route.NumTrips = *entry.NumTrips
		}

		if err := validate.Struct(route); err != nil {
			cfg.RouteErrors = multierr.Append(cfg.RouteErrors, &ConfigError{Index: idx, Route: route.Name, Err: err})
			continue
		}
		if seen[route.ID()] {
			cfg.RouteErrors = multierr.Append(cfg.RouteErrors, &ConfigError{Index: idx, Route: route.Name, Err: ErrDuplicateRoute})
			continue
		}

		seen[route.ID()] = true
		cfg.Routes = append(cfg.Routes, route)
	}

	return cfg, nil
}
