package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/domain/services"
)

func TestHistoryHandler_HandleList(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	assert.Empty(t, d.historyH.HandleList())

	rel, err := d.relations.HandleCreate(ctx, ownersInput())
	require.NoError(t, err)
	_, err = d.relations.HandleDelete(ctx, rel.ID)
	require.NoError(t, err)
	d.history.Note("manual note")

	items := d.historyH.HandleList()
	require.Len(t, items, 3)

	assert.Equal(t, 0, items[0].Index)
	assert.Equal(t, entities.ActionCreate, items[0].Action)
	assert.Equal(t, "Created relationship: Owners", items[0].Description)
	assert.True(t, items[0].Reversible)

	assert.Equal(t, "Deleted relationship: "+rel.ID, items[1].Description)

	assert.Equal(t, 2, items[2].Index)
	assert.False(t, items[2].Reversible)
	assert.Equal(t, items[2].Timestamp.Format(entities.TimestampLayout)+": manual note", items[2].Label())
}

func TestHistoryHandler_HandleRollback(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	rel, err := d.relations.HandleCreate(ctx, ownersInput())
	require.NoError(t, err)
	_, err = d.relations.HandleDelete(ctx, rel.ID)
	require.NoError(t, err)

	result, err := d.historyH.HandleRollback(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, services.EffectRestored, result.Effect)
	assert.Equal(t, rel.ID, result.RelationID)
	require.Len(t, result.Relations, 1, "listing is refreshed")
	assert.Equal(t, rel.ID, result.Relations[0].ID)
	assert.Equal(t, 2, d.history.Len(), "rollback is not recorded")

	t.Run("create rollback removes by name", func(t *testing.T) {
		result, err := d.historyH.HandleRollback(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, services.EffectRemoved, result.Effect)
		assert.Empty(t, result.Relations)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := d.historyH.HandleRollback(ctx, 7)
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrIndexOutOfRange)
	})
}
