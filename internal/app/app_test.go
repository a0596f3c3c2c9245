package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwuxian/realm-chronicle/internal/catalog"
	"github.com/aiwuxian/realm-chronicle/internal/config"
	"github.com/aiwuxian/realm-chronicle/internal/models"
)

func testConfig(t *testing.T) *models.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "world.db")
	cfg.Game.EventsPath = "../../data/events.yml"
	cfg.Game.StoryCyclesPath = "../../data/story_cycles.yml"
	return cfg
}

func TestNew(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Positive(t, a.Catalog.Len())

	state, err := a.World.GetWorldState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Build-Up", state.World.StoryPhase)

	resp, err := a.World.CheckEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, resp.Events, 1)
}

func TestNew_BadCatalogIsConfigError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Game.EventsPath = filepath.Join(t.TempDir(), "missing.yml")

	_, err := New(context.Background(), cfg)
	require.Error(t, err)

	var cfgErr *catalog.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
	assert.ErrorIs(t, err, catalog.ErrInvalidCatalog)
}

func TestNew_BadPhases(t *testing.T) {
	cfg := testConfig(t)
	cfg.Game.Phases = cfg.Game.Phases[:0]

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
