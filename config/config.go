/*
Package config loads server configuration from the environment.

PURPOSE:
  Centralizes every tunable the server reads: listen port, database path,
  payload limits, policy file, CORS origins, HTTP timeouts. A .env file is
  loaded first when present, so local development does not need exported
  variables.

PRECEDENCE:
  1. Real environment variables
  2. .env file values (never override a set variable)
  3. Built-in defaults

VARIABLES:
  PORT               HTTP listen port               (default 8080)
  DB_PATH            SQLite database path           (default integrity.db)
  MAX_PAYLOAD_BYTES  Raw payload size limit         (default 10485760)
  POLICY_FILE        Optional policy definitions    (default unset)
  ALLOWED_ORIGINS    CORS origins, comma-separated  (default *)
  READ_TIMEOUT       HTTP read timeout              (default 15s)
  WRITE_TIMEOUT      HTTP write timeout             (default 15s)
  IDLE_TIMEOUT       HTTP idle timeout              (default 60s)

SEE ALSO:
  - cmd/server/main.go: Flag overrides on top of this
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pulse/integrity-engine/integrity"
)

// Config holds every server tunable.
type Config struct {
	Port            int
	DBPath          string
	MaxPayloadBytes int
	PolicyFile      string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:            8080,
		DBPath:          "integrity.db",
		MaxPayloadBytes: integrity.DefaultMaxPayloadBytes,
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
	}
}

// Load reads configuration from the environment, consulting a .env file
// first if one exists in the working directory.
func Load() (Config, error) {
	// Missing .env is the normal production case, not an error.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function. Split out so tests
// do not have to mutate the process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return cfg, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}

	if v := getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	if v := getenv("MAX_PAYLOAD_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid MAX_PAYLOAD_BYTES %q", v)
		}
		cfg.MaxPayloadBytes = n
	}

	cfg.PolicyFile = getenv("POLICY_FILE")

	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			cfg.AllowedOrigins = origins
		}
	}

	var err error
	if cfg.ReadTimeout, err = durationEnv(getenv, "READ_TIMEOUT", cfg.ReadTimeout); err != nil {
		return cfg, err
	}
	if cfg.WriteTimeout, err = durationEnv(getenv, "WRITE_TIMEOUT", cfg.WriteTimeout); err != nil {
		return cfg, err
	}
	if cfg.IdleTimeout, err = durationEnv(getenv, "IDLE_TIMEOUT", cfg.IdleTimeout); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func durationEnv(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback, fmt.Errorf("invalid %s %q", key, v)
	}
	return d, nil
}
