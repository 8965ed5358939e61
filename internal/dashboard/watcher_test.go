package dashboard

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-dashboard/internal/models"
)

func TestLoadFilterFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filters.json")
	defaults := models.DefaultFilterConfig(1_700_000_000_000)

	require.NoError(t, os.WriteFile(path, []byte(`{"period":"5min","categories":["log"]}`), 0o644))
	cfg, err := LoadFilterFile(path, defaults)
	require.NoError(t, err)
	assert.Equal(t, models.Period5Min, cfg.Period)
	assert.Equal(t, []models.Category{models.CategoryLog}, cfg.Categories)
	assert.Equal(t, defaults.TimeRange, cfg.TimeRange)
	assert.Equal(t, defaults.ValueRange, cfg.ValueRange)

	require.NoError(t, os.WriteFile(path, []byte(`{"period":"2min"}`), 0o644))
	_, err = LoadFilterFile(path, defaults)
	assert.ErrorIs(t, err, models.ErrUnknownPeriod)

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, err = LoadFilterFile(path, defaults)
	assert.Error(t, err)

	_, err = LoadFilterFile(filepath.Join(dir, "missing.json"), defaults)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFilterWatcher_AppliesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filters.json")
	defaults := models.DefaultFilterConfig(1_700_000_000_000)

	var mu sync.Mutex
	var applied []models.FilterConfig
	w, err := NewFilterWatcher(path, func() models.FilterConfig { return defaults }, func(cfg models.FilterConfig) error {
		mu.Lock()
		defer mu.Unlock()
		applied = append(applied, cfg)
		return nil
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(`{"period":"1hour"}`), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(applied) > 0 && applied[len(applied)-1].Period == models.Period1Hour
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDashboard_FiltersFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filters.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"period":"5min"}`), 0o644))

	d, _ := newTestDashboard(t, func(c *Config) { c.FiltersFile = path })
	assert.Equal(t, models.Period5Min, d.Filters().Period)

	missing := filepath.Join(dir, "later.json")
	d2, _ := newTestDashboard(t, func(c *Config) { c.FiltersFile = missing })
	assert.Equal(t, models.Period1Min, d2.Filters().Period)
}
