package config

import (
	"os"
	"strings"
	"time"
)

// Timing constants for the synchronization engine.
const (
	// TypingQuietPeriod is how long after the last keystroke a stop_typing
	// signal is emitted, and how long a peer's typing entry lives without a
	// refresh.
	TypingQuietPeriod = 1500 * time.Millisecond

	// ScrollBottomThreshold is the distance from the bottom of the viewport,
	// in pixels, under which the user counts as "near bottom".
	ScrollBottomThreshold = 100
)

// Config holds the environment-provided settings for the client binaries.
type Config struct {
	APIURL     string // base URL of the REST API, e.g. http://localhost:8080
	Token      string // bearer credential for the current session
	ServerPort string
	JWTSecret  string
}

// Load reads configuration from environment variables, applying defaults
// suitable for a local devserver.
func Load() Config {
	cfg := Config{
		APIURL:     os.Getenv("LIGDI_API_URL"),
		Token:      os.Getenv("LIGDI_TOKEN"),
		ServerPort: os.Getenv("LIGDI_PORT"),
		JWTSecret:  os.Getenv("LIGDI_JWT_SECRET"),
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "http://localhost:8080"
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-only-secret"
	}
	return cfg
}

// ChannelURL derives the websocket endpoint from the API base URL.
func (c Config) ChannelURL() string {
	url := c.APIURL
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return strings.TrimSuffix(url, "/") + "/ws"
}
