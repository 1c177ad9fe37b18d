package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"edge-viewer/internal/core"
)

// Config carries the startup settings. Every value has a default; a .env
// file or the environment overrides them.
type Config struct {
	Params         core.Params
	PollInterval   time.Duration
	StatusDuration time.Duration
	FetchTimeout   time.Duration
	WindowWidth    float32
	WindowHeight   float32
}

func Load() *Config {
	// Missing .env is fine, the defaults apply.
	_ = godotenv.Load()

	params := core.Params{
		Scale:      envFloat("EDGE_VIEWER_SCALE", 0.5),
		Kernel:     envInt("EDGE_VIEWER_KERNEL", 5),
		Threshold1: envInt("EDGE_VIEWER_THRESHOLD1", 50),
		Threshold2: envInt("EDGE_VIEWER_THRESHOLD2", 100),
	}

	return &Config{
		Params:         params.Clamp(),
		PollInterval:   envDuration("EDGE_VIEWER_POLL_INTERVAL", 250*time.Millisecond),
		StatusDuration: envDuration("EDGE_VIEWER_STATUS_DURATION", 2*time.Second),
		FetchTimeout:   envDuration("EDGE_VIEWER_FETCH_TIMEOUT", 15*time.Second),
		WindowWidth:    float32(envFloat("EDGE_VIEWER_WINDOW_WIDTH", 1200)),
		WindowHeight:   float32(envFloat("EDGE_VIEWER_WINDOW_HEIGHT", 800)),
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return fallback
}
