package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/relman/internal/domain/entities"
)

func TestParseKeyPairs(t *testing.T) {
	tests := []struct {
		name    string
		specs   []string
		want    []entities.KeyPair
		wantErr bool
	}{
		{
			name:  "single pair",
			specs: []string{"sheet:sheet_ref"},
			want:  []entities.KeyPair{{ParentField: "sheet", ChildField: "sheet_ref"}},
		},
		{
			name:  "several pairs keep order and trim",
			specs: []string{" number : number_ref", "sheet:sheet_ref"},
			want: []entities.KeyPair{
				{ParentField: "number", ChildField: "number_ref"},
				{ParentField: "sheet", ChildField: "sheet_ref"},
			},
		},
		{
			name:  "child may contain a colon",
			specs: []string{"a:b:c"},
			want:  []entities.KeyPair{{ParentField: "a", ChildField: "b:c"}},
		},
		{name: "missing colon", specs: []string{"sheet"}, wantErr: true},
		{name: "empty child", specs: []string{"sheet:"}, wantErr: true},
		{name: "empty parent", specs: []string{":x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKeyPairs(tt.specs)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelationHandler_CreateAndList(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	rel, err := d.relations.HandleCreate(ctx, ownersInput())
	require.NoError(t, err)

	items, err := d.relations.HandleList(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, rel.ID, items[0].ID)
	assert.Equal(t, rel.ID+": Owners", items[0].DisplayName)

	all, err := d.relations.HandleRelations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "parcels", all[0].ReferencedLayer)

	shown, err := d.relations.HandleShow(ctx, rel.ID)
	require.NoError(t, err)
	assert.Equal(t, "Owners", shown.Name)
}

func TestRelationHandler_HandleEdit_KeepsUnsetAttributes(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	rel, err := d.relations.HandleCreate(ctx, ownersInput())
	require.NoError(t, err)

	edited, err := d.relations.HandleEdit(ctx, rel.ID, EditOptions{Name: "Renamed"})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", edited.Name)
	assert.Equal(t, "parcels", edited.ReferencedLayer)
	assert.Equal(t, "owners", edited.ReferencingLayer)
	assert.Equal(t, rel.KeyPairs, edited.KeyPairs)

	edited, err = d.relations.HandleEdit(ctx, rel.ID, EditOptions{
		KeyPairs: []entities.KeyPair{{ParentField: "number", ChildField: "number_ref"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", edited.Name)
	assert.Equal(t, "number", edited.KeyPairs[0].ParentField)
}

func TestRelationHandler_HandleEdit_NotFound(t *testing.T) {
	d := newTestDeps(t)

	_, err := d.relations.HandleEdit(context.Background(), "missing", EditOptions{Name: "x"})

	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrRelationNotFound)
}

func TestRelationHandler_DuplicateAndDelete(t *testing.T) {
	d := newTestDeps(t)
	ctx := context.Background()

	rel, err := d.relations.HandleCreate(ctx, ownersInput())
	require.NoError(t, err)

	dup, err := d.relations.HandleDuplicate(ctx, rel.ID, "Owners copy")
	require.NoError(t, err)
	assert.NotEqual(t, rel.ID, dup.ID)

	_, err = d.relations.HandleDelete(ctx, rel.ID)
	require.NoError(t, err)

	items, err := d.relations.HandleList(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, dup.ID, items[0].ID)
	assert.Equal(t, 3, d.history.Len())
}

func TestRelationHandler_HandleLayers(t *testing.T) {
	d := newTestDeps(t)

	layers, err := d.relations.HandleLayers(context.Background())
	require.NoError(t, err)
	require.Len(t, layers, 2)
	assert.Equal(t, "parcels", layers[0].Name)
}
