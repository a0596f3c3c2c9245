package services

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aiwuxian/realm-chronicle/internal/catalog"
	"github.com/aiwuxian/realm-chronicle/internal/models"
	"github.com/aiwuxian/realm-chronicle/internal/storage"
)

// scriptedRandom replays values (mod n) and records every n it was asked for.
type scriptedRandom struct {
	mu     sync.Mutex
	values []int
	next   int
	asked  []int
}

func (s *scriptedRandom) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, n)
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v % n
}

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.New(models.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Seed(context.Background(), "Build-Up"))
	return s
}

func newTestCatalog(t *testing.T, templates []catalog.EventTemplate) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(templates, map[string]string{
		"Build-Up": "Clouds gather.",
		"Conflict": "Blades are drawn.",
		"Climax":   "All is decided.",
	}, []string{"Build-Up", "Conflict", "Climax"}, "test")
	require.NoError(t, err)
	return c
}

// plainTemplates has one effect-free template per phase.
func plainTemplates() []catalog.EventTemplate {
	return []catalog.EventTemplate{
		{Phase: "Build-Up", Description: "Rumors spread through {location}."},
		{Phase: "Conflict", Description: "{faction} raids {location}!"},
		{Phase: "Climax", Description: "{faction} marches on {location}."},
	}
}

type testWorld struct {
	store   *storage.Storage
	service *WorldService
	rng     Random
}

func newTestWorld(t *testing.T, templates []catalog.EventTemplate, rng Random) *testWorld {
	t.Helper()
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	phases, err := NewPhaseMachine(DefaultPhases(), false)
	require.NoError(t, err)

	store := newTestStorage(t)
	return &testWorld{
		store:   store,
		service: NewWorldService(store, newTestCatalog(t, templates), phases, NewRuleEngineWithSource(rng)),
		rng:     rng,
	}
}

func (w *testWorld) state(t *testing.T) *models.WorldState {
	t.Helper()
	state, err := w.store.GetWorldState(context.Background())
	require.NoError(t, err)
	return state
}

func (w *testWorld) events(t *testing.T) []models.EventLogEntry {
	t.Helper()
	events, err := w.store.ListEvents(context.Background(), 0)
	require.NoError(t, err)
	return events
}

func (w *testWorld) setWorld(t *testing.T, tension int, phase string) {
	t.Helper()
	err := w.store.Update(context.Background(), func(tx *storage.Tx) error {
		return tx.SetWorld(context.Background(), tension, phase)
	})
	require.NoError(t, err)
}

func mustAction(t *testing.T, raw string, target, magnitude int) Action {
	t.Helper()
	a, err := ParseAction(raw, target, magnitude, "")
	require.NoError(t, err)
	return a
}
