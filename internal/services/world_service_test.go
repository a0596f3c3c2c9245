package services

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwuxian/realm-chronicle/internal/catalog"
	"github.com/aiwuxian/realm-chronicle/internal/models"
	"github.com/aiwuxian/realm-chronicle/internal/storage"
)

func TestApplyAction_Fight(t *testing.T) {
	w := newTestWorld(t, plainTemplates(), &scriptedRandom{values: []int{0}})
	ctx := context.Background()

	resp, err := w.service.ApplyAction(ctx, Action{Kind: ActionFight, Raw: "fight", Target: 2, Magnitude: 1, CausedBy: "Player"})
	require.NoError(t, err)

	state := w.state(t)
	assert.Equal(t, 20, state.Factions[1].Power)
	assert.Equal(t, 70, state.Factions[0].Power)
	assert.Equal(t, 53, state.Player.Reputation)

	events := w.events(t)
	require.Len(t, events, 2)
	assert.Equal(t, "Knight fought faction 2, reducing their power", events[1].Description)
	assert.Equal(t, "Player", events[1].CausedBy)
	assert.Equal(t, SystemActor, events[0].CausedBy)

	// 20 + 5 -> Conflict；势力抽到下标 0，即 Royal Guard
	assert.Equal(t, []string{"Royal Guard raids Capital!"}, resp.Events)
	assert.Equal(t, "Blades are drawn.", resp.Narrative)
	assert.Equal(t, models.World{ID: 1, Tension: 25, StoryPhase: "Conflict"}, state.World)
}

func TestApplyAction_Help(t *testing.T) {
	w := newTestWorld(t, plainTemplates(), nil)

	_, err := w.service.ApplyAction(context.Background(), mustAction(t, "help", 2, 1))
	require.NoError(t, err)

	state := w.state(t)
	loc, ok := state.LocationByID(2)
	require.True(t, ok)
	assert.Equal(t, 60, loc.Prosperity)
	assert.Equal(t, 70, loc.Safety)
	assert.Equal(t, 55, state.Player.Reputation)

	events := w.events(t)
	require.NotEmpty(t, events)
	assert.Equal(t, "Knight helped location 2, increasing prosperity and safety", events[len(events)-1].Description)
}

func TestApplyAction_Magnitude(t *testing.T) {
	w := newTestWorld(t, nil, nil)

	_, err := w.service.ApplyAction(context.Background(), mustAction(t, "fight", 1, 3))
	require.NoError(t, err)

	state := w.state(t)
	assert.Equal(t, 40, state.Factions[0].Power)
	assert.Equal(t, 59, state.Player.Reputation)
}

func TestApplyAction_Move(t *testing.T) {
	w := newTestWorld(t, nil, nil)
	before := w.state(t)

	resp, err := w.service.ApplyAction(context.Background(), mustAction(t, "move", 2, 0))
	require.NoError(t, err)
	assert.Equal(t, QuietNarrative, resp.Narrative)

	after := w.state(t)
	assert.Equal(t, 2, after.Player.LocationID)
	assert.Equal(t, before.Player.Reputation, after.Player.Reputation)
	assert.Equal(t, before.Locations, after.Locations)
	assert.Equal(t, before.Factions, after.Factions)
	assert.Equal(t, before.NPCs, after.NPCs)

	events := w.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, "Knight moved to location 2", events[0].Description)
	assert.Equal(t, DefaultCausedBy, events[0].CausedBy)
}

func TestApplyAction_UnknownIsNoop(t *testing.T) {
	w := newTestWorld(t, nil, &scriptedRandom{values: []int{3}})
	before := w.state(t)

	resp, err := w.service.ApplyAction(context.Background(), mustAction(t, "dance", 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{}, resp.Events)

	after := w.state(t)
	assert.Equal(t, before.Player, after.Player)
	assert.Equal(t, before.Locations, after.Locations)
	assert.Equal(t, before.Factions, after.Factions)
	assert.Empty(t, w.events(t))

	// 张力照常增加: 20 + (5+3)
	assert.Equal(t, 28, after.World.Tension)
}

func TestApplyAction_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		action Action
	}{
		{name: "move to missing location", action: Action{Kind: ActionMove, Target: 99}},
		{name: "help missing location", action: Action{Kind: ActionHelp, Target: 99}},
		{name: "fight missing faction", action: Action{Kind: ActionFight, Target: 99}},
		{name: "negative magnitude", action: Action{Kind: ActionFight, Target: 1, Magnitude: -2}},
		{name: "magnitude large enough to overflow", action: Action{Kind: ActionHelp, Target: 1, Magnitude: math.MaxInt64 / 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, plainTemplates(), nil)
			before := w.state(t)

			resp, err := w.service.ApplyAction(context.Background(), tt.action)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.NotErrorIs(t, err, ErrStore)

			// 什么都没写入，张力也不变
			assert.Equal(t, before, w.state(t))
			assert.Empty(t, w.events(t))
		})
	}
}

func TestApplyAction_TensionClamped(t *testing.T) {
	w := newTestWorld(t, plainTemplates(), &scriptedRandom{values: []int{9}})
	w.setWorld(t, 98, "Climax")

	_, err := w.service.ApplyAction(context.Background(), mustAction(t, "move", 1, 1))
	require.NoError(t, err)

	world := w.state(t).World
	assert.Equal(t, 100, world.Tension)
	assert.Equal(t, "Climax", world.StoryPhase)
}

func TestApplyAction_TensionAlwaysInRange(t *testing.T) {
	w := newTestWorld(t, plainTemplates(), rand.New(rand.NewSource(42)))
	ctx := context.Background()

	kinds := []string{"move", "help", "fight", "wait"}
	for i := 0; i < 40; i++ {
		_, err := w.service.ApplyAction(ctx, mustAction(t, kinds[i%len(kinds)], 1+i%2, 1))
		require.NoError(t, err)

		world := w.state(t).World
		assert.GreaterOrEqual(t, world.Tension, MinTension)
		assert.LessOrEqual(t, world.Tension, MaxTension)
		assert.Contains(t, []string{"Build-Up", "Conflict", "Climax"}, world.StoryPhase)
	}
}

func TestApplyAction_AppliesEffect(t *testing.T) {
	templates := []catalog.EventTemplate{{
		Phase:       "Conflict",
		Description: "{faction} raids {location}!",
		Effect: &catalog.Effect{
			Query:  "UPDATE locations SET safety = safety - 10 WHERE name = :location",
			Params: []string{"location"},
		},
	}}
	w := newTestWorld(t, templates, &scriptedRandom{values: []int{0}})

	_, err := w.service.ApplyAction(context.Background(), mustAction(t, "move", 2, 1))
	require.NoError(t, err)

	state := w.state(t)
	willowbrook, _ := state.LocationByID(2)
	capital, _ := state.LocationByID(1)
	assert.Equal(t, 50, willowbrook.Safety)
	assert.Equal(t, 90, capital.Safety)
}

func TestApplyAction_StoreFailure(t *testing.T) {
	w := newTestWorld(t, plainTemplates(), nil)
	require.NoError(t, w.store.Close())

	_, err := w.service.ApplyAction(context.Background(), mustAction(t, "help", 2, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)

	_, err = w.service.CheckEvents(context.Background())
	assert.ErrorIs(t, err, ErrStore)
}

func TestApplyAction_FailingEffectRollsBack(t *testing.T) {
	templates := []catalog.EventTemplate{{
		Phase:       "Conflict",
		Description: "{location} burns.",
		Effect:      &catalog.Effect{Query: "UPDATE no_such_table SET x = 1 WHERE name = :location", Params: []string{"location"}},
	}}
	w := newTestWorld(t, templates, &scriptedRandom{values: []int{0}})
	before := w.state(t)

	_, err := w.service.ApplyAction(context.Background(), mustAction(t, "fight", 2, 1))
	require.ErrorIs(t, err, ErrStore)

	assert.Equal(t, before, w.state(t))
	assert.Empty(t, w.events(t))
}

func TestApplyAction_ConcurrentNoLostUpdates(t *testing.T) {
	w := newTestWorld(t, plainTemplates(), rand.New(rand.NewSource(7)))
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.service.ApplyAction(ctx, Action{Kind: ActionFight, Raw: "fight", Target: 1, Magnitude: 1})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	state := w.state(t)
	assert.Equal(t, 50+3*workers, state.Player.Reputation)
	assert.Equal(t, 70-10*workers, state.Factions[0].Power)
	assert.Equal(t, MaxTension, state.World.Tension)
}

func TestCheckEvents_QuietWhenNoTemplates(t *testing.T) {
	w := newTestWorld(t, []catalog.EventTemplate{
		{Phase: "Climax", Description: "Only at the end."},
	}, nil)

	resp, err := w.service.CheckEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.EventResponse{Events: []string{}, Narrative: "The kingdom is quiet for now..."}, resp)
	assert.Empty(t, w.events(t))
}

func TestCheckEvents_LogsSystemEvent(t *testing.T) {
	w := newTestWorld(t, plainTemplates(), &scriptedRandom{values: []int{1}})

	resp, err := w.service.CheckEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Rumors spread through Capital."}, resp.Events)
	assert.Equal(t, "Clouds gather.", resp.Narrative)

	events := w.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, "Rumors spread through Capital.", events[0].Description)
	assert.Equal(t, "System", events[0].CausedBy)

	// 没有行动，张力不变
	assert.Equal(t, 20, w.state(t).World.Tension)
}

func TestCheckEvents_RandomSelection(t *testing.T) {
	templates := []catalog.EventTemplate{
		{Phase: "Build-Up", Description: "one"},
		{Phase: "Build-Up", Description: "two"},
		{Phase: "Build-Up", Description: "three"},
	}
	w := newTestWorld(t, templates, rand.New(rand.NewSource(99)))

	seen := map[string]bool{}
	for i := 0; i < 60; i++ {
		resp, err := w.service.CheckEvents(context.Background())
		require.NoError(t, err)
		require.Len(t, resp.Events, 1)
		seen[resp.Events[0]] = true
	}
	assert.Greater(t, len(seen), 1, "selection must not always return the first match")
}

func TestCheckEvents_FactionPickBoundedByFactionCount(t *testing.T) {
	templates := []catalog.EventTemplate{
		{Phase: "Build-Up", Description: "{faction} stirs (1)."},
		{Phase: "Build-Up", Description: "{faction} stirs (2)."},
		{Phase: "Build-Up", Description: "{faction} stirs (3)."},
		{Phase: "Build-Up", Description: "{faction} stirs (4)."},
		{Phase: "Build-Up", Description: "{faction} stirs (5)."},
	}
	rng := &scriptedRandom{values: []int{4}}
	w := newTestWorld(t, templates, rng)

	resp, err := w.service.CheckEvents(context.Background())
	require.NoError(t, err)

	// 模板从 5 个候选中抽取，势力从 2 个初始势力中抽取
	assert.Equal(t, []int{5, 2}, rng.asked)
	assert.Equal(t, []string{"Royal Guard stirs (5)."}, resp.Events)
}

func TestCheckEvents_NoFactions(t *testing.T) {
	w := newTestWorld(t, []catalog.EventTemplate{{Phase: "Build-Up", Description: "{faction} hides in {location}."}}, nil)
	err := w.store.Update(context.Background(), func(tx *storage.Tx) error {
		return tx.ExecEffect(context.Background(), "DELETE FROM factions", nil)
	})
	require.NoError(t, err)

	resp, err := w.service.CheckEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a nameless band hides in Capital."}, resp.Events)
}

func TestGetWorldState(t *testing.T) {
	w := newTestWorld(t, nil, nil)

	first, err := w.service.GetWorldState(context.Background())
	require.NoError(t, err)
	second, err := w.service.GetWorldState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
