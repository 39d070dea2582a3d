package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All violations are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}
	if !strings.HasPrefix(c.Server.RoutePrefix, "/") {
		errs = append(errs, fmt.Errorf("server.route_prefix must start with \"/\", got %q", c.Server.RoutePrefix))
	}

	if c.Token.Secret == "" {
		errs = append(errs, fmt.Errorf("token.secret or token.secret_file is required"))
	}
	switch c.Token.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("token.algorithm must be HS256, HS384 or HS512, got %q", c.Token.Algorithm))
	}
	if c.Token.UserLifetime <= 0 {
		errs = append(errs, fmt.Errorf("token.user_lifetime must be > 0, got %v", c.Token.UserLifetime))
	}

	if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
		errs = append(errs, fmt.Errorf("mqtt.port must be in 1..65535, got %d", c.MQTT.Port))
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}

	switch c.Storage.Type {
	case "memory":
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	switch c.Auth.Type {
	case "session", "none":
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"session\" or \"none\", got %q", c.Auth.Type))
	}
	if c.Auth.Type == "none" && c.Auth.DevSubject == "" {
		errs = append(errs, fmt.Errorf("auth.dev_subject is required when auth.type is \"none\""))
	}
	if c.Auth.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("auth.requests_per_minute must be >= 0, got %d", c.Auth.RequestsPerMinute))
	}

	if c.Auth.Type == "session" {
		switch c.Session.Store {
		case "memory":
			if len(c.Session.Memory.Sessions) == 0 {
				errs = append(errs, fmt.Errorf("session.memory.sessions must list at least one session when session.store is \"memory\"; use \"redis\" to share sessions with the web backend"))
			}
			for i, sess := range c.Session.Memory.Sessions {
				if sess.ID == "" || sess.Email == "" {
					errs = append(errs, fmt.Errorf("session.memory.sessions[%d] requires id and email", i))
				}
			}
		case "redis":
			if c.Session.Redis.Addr == "" {
				errs = append(errs, fmt.Errorf("session.redis.addr is required when session.store is \"redis\""))
			}
		default:
			errs = append(errs, fmt.Errorf("session.store must be \"redis\" or \"memory\", got %q", c.Session.Store))
		}
	}

	return errors.Join(errs...)
}
