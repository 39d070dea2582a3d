// Package config provides unified configuration for the alertbridge service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (ALERTBRIDGE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for alertbridge.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Token         TokenConfig         `yaml:"token"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Session       SessionConfig       `yaml:"session"`
	Observability ObservabilityConfig `yaml:"observability"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 10s
	RoutePrefix  string        `yaml:"route_prefix"`  // default: "/mqtt"
}

// TokenConfig holds the signing settings shared by all tokens.
type TokenConfig struct {
	Secret       string        `yaml:"secret"`
	SecretFile   string        `yaml:"secret_file"`   // _file variant for secret
	Algorithm    string        `yaml:"algorithm"`     // default: "HS256"
	UserLifetime time.Duration `yaml:"user_lifetime"` // default: 24h
}

// MQTTConfig holds the outbound broker connection settings.
type MQTTConfig struct {
	Host           string        `yaml:"host"`            // default: "localhost"
	Port           int           `yaml:"port"`            // default: 1883
	KeepAlive      time.Duration `yaml:"keepalive"`       // default: 60s
	ClientID       string        `yaml:"client_id"`       // default: "alertbridge-backend"
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // default: 5s
	QoS            int           `yaml:"qos"`             // default: 0
}

// StorageConfig selects and configures the user directory.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
	Memory   MemoryConfig   `yaml:"memory"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
	ListenChannel  string `yaml:"listen_channel"`   // default: "alert_events"
}

// MemoryConfig seeds the in-memory directory.
type MemoryConfig struct {
	Users  []MemoryUser  `yaml:"users"`
	Alerts []MemoryAlert `yaml:"alerts"`
}

// MemoryUser is a seeded directory user.
type MemoryUser struct {
	Email       string   `yaml:"email"`
	Permissions []string `yaml:"permissions"`
}

// MemoryAlert is a seeded alert with its recipients.
type MemoryAlert struct {
	ID         string   `yaml:"id"`
	Recipients []string `yaml:"recipients"`
}

// AuthConfig holds settings for authenticating token mint requests.
type AuthConfig struct {
	Type              string `yaml:"type"`                // "session" or "none", default: "session"
	DevSubject        string `yaml:"dev_subject"`         // identity used by type "none"
	RequestsPerMinute int    `yaml:"requests_per_minute"` // default: 60, 0 disables
}

// SessionConfig holds settings for the session cookie authenticator.
type SessionConfig struct {
	CookieName string      `yaml:"cookie_name"` // default: "sessionid"
	Store      string              `yaml:"store"`       // "redis" or "memory", default: "redis"
	Redis      RedisConfig         `yaml:"redis"`
	Memory     SessionMemoryConfig `yaml:"memory"`
}

// SessionMemoryConfig seeds the in-memory session store. The web backend
// cannot write into this process, so the seeded sessions are the only ones
// the memory store ever holds.
type SessionMemoryConfig struct {
	Sessions []MemorySession `yaml:"sessions"`
}

// MemorySession is a fixed session ID bound to an email. Seeded sessions
// do not expire.
type MemorySession struct {
	ID    string `yaml:"id"`
	Email string `yaml:"email"`
}

// RedisConfig holds settings for the redis session store.
type RedisConfig struct {
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	PasswordFile string `yaml:"password_file"` // _file variant for password
	DB           int    `yaml:"db"`
	KeyPrefix    string `yaml:"key_prefix"` // default: "alertbridge:session:"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LogConfig holds logging settings passed to the debug package.
type LogConfig struct {
	Level string `yaml:"level"` // default: "INFO"
	Debug string `yaml:"debug"` // comma separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			RoutePrefix:  "/mqtt",
		},
		Token: TokenConfig{
			Algorithm:    "HS256",
			UserLifetime: 24 * time.Hour,
		},
		MQTT: MQTTConfig{
			Host:           "localhost",
			Port:           1883,
			KeepAlive:      60 * time.Second,
			ClientID:       "alertbridge-backend",
			ConnectTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns:      10,
				ListenChannel: "alert_events",
			},
		},
		Auth: AuthConfig{
			Type:              "session",
			RequestsPerMinute: 60,
		},
		Session: SessionConfig{
			CookieName: "sessionid",
			Store:      "redis",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "alertbridge:session:",
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}
