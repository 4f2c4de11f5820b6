// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: advisor\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "advisor", cfg.App.Name)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, 50, cfg.Store.MaxHistory)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 15000, cfg.GenAI.Timeout)
	assert.Equal(t, "advisor-turns", cfg.Archive.Elasticsearch.Index)
	assert.NotEmpty(t, cfg.Escalation.BookingURL)
}

func TestLoadFromFile_EnvExpansionAndOverride(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "localhost:6380")
	t.Setenv("GENAI_BASE_URL", "http://ai.local")
	path := writeConfig(t, `
store:
  backend: redis
  redis:
    address: ${TEST_REDIS_ADDR}
genai:
  enabled: true
engine:
  stuck_threshold: 5
workers:
  advisor-process-turn:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:6380", cfg.Store.Redis.Address)
	assert.Equal(t, "http://ai.local", cfg.GenAI.BaseURL)
	assert.Equal(t, 5, cfg.Engine.StuckThreshold)

	wc := GetWorkerConfig(cfg, "advisor-process-turn")
	assert.Equal(t, 3, wc.MaxRetries)
	assert.True(t, IsWorkerEnabled(cfg, "advisor-process-turn"))
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown backend", "store:\n  backend: mongo\n"},
		{"redis without address", "store:\n  backend: redis\n"},
		{"postgres without host", "store:\n  backend: postgres\n"},
		{"genai without url", "genai:\n  enabled: true\n"},
		{"keycloak without realm", "auth:\n  keycloak:\n    enabled: true\n    url: http://kc\n"},
		{"archive without address", "archive:\n  elasticsearch:\n    enabled: true\n"},
		{"sns without topic", "escalation:\n  sns:\n    enabled: true\n"},
		{"camunda without broker", "camunda:\n  enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "advisor", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=advisor sslmode=disable", p.GetDSN())
}
