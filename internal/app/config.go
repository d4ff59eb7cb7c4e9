package app

import (
	"strconv"
	"strings"
	"time"

	"roomnav/server/internal/observability"
	"roomnav/server/internal/telemetry"
	"roomnav/server/internal/tiles"
	"roomnav/server/logging"
)

const (
	defaultListenAddr = ":8080"
	defaultModelsDir  = "rooms"
	defaultTickRate   = 2
	maxTickRate       = 60
)

type Config struct {
	Logger telemetry.Logger

	ModelsDir            string
	WatchModels          bool
	ListenAddr           string
	TickRate             int
	Policy               tiles.Policy
	PreventCornerCutting bool
	Logging              logging.Config
	Observability        observability.Config
}

func DefaultConfig() Config {
	return Config{
		ModelsDir:   defaultModelsDir,
		WatchModels: true,
		ListenAddr:  defaultListenAddr,
		TickRate:    defaultTickRate,
		Policy:      tiles.PolicyIgnoreOccupants,
		Logging:     logging.DefaultConfig(),
	}
}

// TickInterval is the time between two room advances.
func (c Config) TickInterval() time.Duration {
	rate := c.TickRate
	if rate <= 0 {
		rate = defaultTickRate
	}
	return time.Second / time.Duration(rate)
}

// ConfigFromEnv overlays environment settings on DefaultConfig. Invalid
// values are reported through logger and leave the default in place.
func ConfigFromEnv(getenv func(string) string, logger telemetry.Logger) Config {
	cfg := DefaultConfig()
	cfg.Logger = logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}

	if raw := getenv("ROOM_MODELS_DIR"); raw != "" {
		cfg.ModelsDir = raw
	}
	if raw := getenv("WATCH_ROOM_MODELS"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.WatchModels = value
		} else {
			logger.Printf("invalid WATCH_ROOM_MODELS=%q: %v", raw, err)
		}
	}
	if raw := getenv("LISTEN_ADDR"); raw != "" {
		cfg.ListenAddr = raw
	}
	if raw := getenv("TICK_RATE"); raw != "" {
		value, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			logger.Printf("invalid TICK_RATE=%q: %v", raw, err)
		case value <= 0 || value > maxTickRate:
			logger.Printf("invalid TICK_RATE=%q: must be between 1 and %d", raw, maxTickRate)
		default:
			cfg.TickRate = value
		}
	}
	if raw := getenv("OCCUPANCY_POLICY"); raw != "" {
		if policy, err := tiles.ParsePolicy(strings.ToLower(raw)); err == nil {
			cfg.Policy = policy
		} else {
			logger.Printf("invalid OCCUPANCY_POLICY=%q: %v", raw, err)
		}
	}
	if raw := getenv("PREVENT_CORNER_CUTTING"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.PreventCornerCutting = value
		} else {
			logger.Printf("invalid PREVENT_CORNER_CUTTING=%q: %v", raw, err)
		}
	}

	if raw := getenv("ENABLE_PPROF"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Observability.EnablePprof = value
		} else {
			logger.Printf("invalid ENABLE_PPROF=%q: %v", raw, err)
		}
	}

	if raw := getenv("LOG_SINKS"); raw != "" {
		cfg.Logging.EnabledSinks = logging.ParseSinks(raw)
	}
	if raw := getenv("LOG_JSON_PATH"); raw != "" {
		cfg.Logging.JSON.FilePath = raw
	}
	if raw := getenv("LOG_MIN_SEVERITY"); raw != "" {
		cfg.Logging.MinimumSeverity = logging.ParseSeverity(strings.ToLower(raw))
	}

	return cfg
}
