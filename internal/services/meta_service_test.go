package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwuxian/realm-chronicle/internal/models"
)

func TestUpdateState(t *testing.T) {
	store := newTestStorage(t)
	ms := NewMetaService(store)
	ctx := context.Background()

	rep := 99
	err := ms.UpdateState(ctx, models.StateOverride{
		PlayerReputation: &rep,
		FactionPower:     []models.FactionPower{{FactionID: 2, Power: 5}},
	})
	require.NoError(t, err)

	state, err := store.GetWorldState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 99, state.Player.Reputation)
	assert.Equal(t, 70, state.Factions[0].Power)
	assert.Equal(t, 5, state.Factions[1].Power)
	assert.Equal(t, 20, state.World.Tension)

	events, err := store.ListEvents(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestUpdateState_UnknownFactionRollsBack(t *testing.T) {
	store := newTestStorage(t)
	ms := NewMetaService(store)
	ctx := context.Background()

	rep := 1
	err := ms.UpdateState(ctx, models.StateOverride{
		PlayerReputation: &rep,
		FactionPower: []models.FactionPower{
			{FactionID: 1, Power: 0},
			{FactionID: 42, Power: 10},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	state, err := store.GetWorldState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, state.Player.Reputation)
	assert.Equal(t, 70, state.Factions[0].Power)
}

func TestUpdateState_Empty(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, NewMetaService(store).UpdateState(context.Background(), models.StateOverride{}))
}
