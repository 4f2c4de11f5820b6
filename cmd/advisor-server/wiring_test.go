// cmd/advisor-server/wiring_test.go
package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-engine/internal/common/config"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/coordinator"
	"advisor-engine/internal/store"
)

// ==========================
// Dependencies
// ==========================

func TestBuildDependencies_Memory(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Backend: config.StoreMemory, MaxHistory: 10}}

	d, err := buildDependencies(context.Background(), cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer d.Close()

	assert.IsType(t, &store.MemoryStore{}, d.store)
}

func TestBuildDependencies_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{Store: config.StoreConfig{
		Backend:    config.StoreRedis,
		MaxHistory: 10,
		TTL:        60,
		Redis:      config.RedisConfig{Address: mr.Addr()},
	}}

	d, err := buildDependencies(context.Background(), cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer d.Close()

	assert.IsType(t, &store.RedisStore{}, d.store)
	require.NoError(t, d.store.Set(context.Background(), "k", []byte("v")))
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

// ==========================
// Coordinator
// ==========================

func TestBuildCoordinator_EndToEndTurn(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Backend: config.StoreMemory, MaxHistory: 10}}
	cfg.Escalation.BookingURL = "https://book.example/session"
	log := logger.NewTestLogger(t)

	d, err := buildDependencies(context.Background(), cfg, log)
	require.NoError(t, err)
	coord, err := buildCoordinator(cfg, d, nil, log)
	require.NoError(t, err)

	res, err := coord.ProcessTurn(context.Background(), coordinator.TurnRequest{
		ProfileID: "p-1",
		Screen:    "advisor",
		Input:     "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "greeting", string(res.Intent.Intent))
	assert.Contains(t, res.Text, "https://book.example/session")
}

func TestBuildCoordinator_BadCatalogPath(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Backend: config.StoreMemory}}
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.json")

	_, err := buildCoordinator(cfg, &dependencies{store: store.NewMemoryStore()}, nil, logger.NewNoOpLogger())
	require.Error(t, err)
}

func TestBuildCoordinator_InvalidCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"1"}`), 0o600))
	cfg := &config.Config{Store: config.StoreConfig{Backend: config.StoreMemory}}
	cfg.Catalog.Path = path

	_, err := buildCoordinator(cfg, &dependencies{store: store.NewMemoryStore()}, nil, logger.NewNoOpLogger())
	require.Error(t, err)
}

// ==========================
// Retry
// ==========================

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 5, time.Millisecond, logger.NewNoOpLogger(), "op")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	err = retryWithBackoff(context.Background(), func() error { return errors.New("down") }, 2, time.Millisecond, logger.NewNoOpLogger(), "op")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op failed after 2 attempts")
}
