package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-wide configuration settings.
type ServerConfig struct {
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Session     SessionConfig     `yaml:"session"`
	Paths       PathsConfig       `yaml:"paths"`
	World       WorldConfig       `yaml:"world"`
}

// PathsConfig holds file and directory paths for the YAML-loaded game
// data the catalogues and caches read at startup.
type PathsConfig struct {
	DataDir       string `yaml:"data_dir"`
	MapsDir       string `yaml:"maps_dir"`
	Items         string `yaml:"items"`
	NPCs          string `yaml:"npcs"`
	Messages      string `yaml:"messages"`
	RoomColors    string `yaml:"room_colors"`
	Logging       string `yaml:"logging"`
}

// WorldConfig holds the grid world's starting placement and a rhythm-NPC
// cycle tick rate. NPCCycleTickSeconds is loaded with the rest of the file,
// but no code in this module reads it or runs a cycle tick.
type WorldConfig struct {
	StartMapID          string `yaml:"start_map_id"`
	StartRoomID          string `yaml:"start_room_id"`
	NPCCycleTickSeconds int    `yaml:"npc_cycle_tick_seconds"`
}

// SessionConfig holds session management settings.
type SessionConfig struct {
	// IdleTimeoutMinutes is loaded from YAML but not read by any code: the
	// server does not disconnect idle players.
	IdleTimeoutMinutes int `yaml:"idle_timeout_minutes"`

	// EngagementDefaultDelayMS is a lorekeeper engagement delay setting. It
	// is loaded with the rest of the file but not read: engagement timers use
	// each NPC definition's engagement_delay_ms as written.
	EngagementDefaultDelayMS int `yaml:"engagement_default_delay_ms"`

	// AutoNavigationStepMS and PathLoopStepMS are per-step interval
	// settings for auto-navigation and path/loop playback. They are loaded
	// but not read: internal/paths steps auto-navigation every 1000 ms and
	// path/loop playback every 2000 ms, and a path's stored kind decides only
	// whether playback wraps.
	AutoNavigationStepMS int `yaml:"auto_navigation_step_ms"`
	PathLoopStepMS       int `yaml:"path_loop_step_ms"`
}

// RateLimitConfig holds rate limiting settings for authenticate attempts.
type RateLimitConfig struct {
	MaxAttempts       int `yaml:"max_attempts"`
	LockoutSeconds    int `yaml:"lockout_seconds"`
	MaxLockoutSeconds int `yaml:"max_lockout_seconds"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections allowed from a single IP address.
	MaxPerIP int `yaml:"max_per_ip"`
	// MaxTotal is the maximum total concurrent connections to the server.
	MaxTotal int `yaml:"max_total"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxMessageSize int64    `yaml:"max_message_size"`
}

// DefaultConfig returns a ServerConfig with secure defaults.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		WebSocket: WebSocketConfig{
			AllowedOrigins: []string{},
			MaxMessageSize: 4096,
		},
		Connections: ConnectionsConfig{
			MaxPerIP: 3,
			MaxTotal: 200,
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:       5,
			LockoutSeconds:    30,
			MaxLockoutSeconds: 300,
		},
		Session: SessionConfig{
			IdleTimeoutMinutes:       30,
			EngagementDefaultDelayMS: 2000,
			AutoNavigationStepMS:     1000,
			PathLoopStepMS:           2000,
		},
		Paths: PathsConfig{
			DataDir:    "data",
			MapsDir:    "data/maps",
			Items:      "data/items.yaml",
			NPCs:       "data/npcs.yaml",
			Messages:   "data/messages.yaml",
			RoomColors: "data/room_colors.yaml",
			Logging:    "data/logging.yaml",
		},
		World: WorldConfig{
			StartMapID:          "overworld",
			StartRoomID:          "town_square",
			NPCCycleTickSeconds: 1,
		},
	}
}

// LoadConfig loads server configuration from a YAML file.
// If the file doesn't exist or can't be parsed, returns default config.
func LoadConfig(path string) (*ServerConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), err
	}

	return config, nil
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" {
			return true
		}
		if allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
