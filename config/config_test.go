package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse/integrity-engine/config"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := config.FromEnv(env(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "integrity.db", cfg.DBPath)
	assert.Equal(t, 10<<20, cfg.MaxPayloadBytes)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Empty(t, cfg.PolicyFile)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := config.FromEnv(env(map[string]string{
		"PORT":              "3000",
		"DB_PATH":           ":memory:",
		"MAX_PAYLOAD_BYTES": "1024",
		"POLICY_FILE":       "policies.yaml",
		"ALLOWED_ORIGINS":   "https://a.example, https://b.example",
		"READ_TIMEOUT":      "5s",
	}))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, 1024, cfg.MaxPayloadBytes)
	assert.Equal(t, "policies.yaml", cfg.PolicyFile)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.WriteTimeout, "untouched values keep defaults")
}

func TestFromEnv_InvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad port":        {"PORT": "not-a-port"},
		"port range":      {"PORT": "70000"},
		"bad payload":     {"MAX_PAYLOAD_BYTES": "-1"},
		"bad duration":    {"READ_TIMEOUT": "soon"},
		"zero duration":   {"WRITE_TIMEOUT": "0s"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.FromEnv(env(vars))
			assert.Error(t, err)
		})
	}
}
