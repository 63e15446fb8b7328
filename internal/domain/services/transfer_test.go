package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/domain/mocks"
	"github.com/ersonp/relman/internal/infrastructure/parsers"
)

func rawRelation(id, name string) parsers.RawRelation {
	return parsers.RawRelation{
		ID:               id,
		Name:             name,
		ReferencedLayer:  "P",
		ReferencingLayer: "C",
		Keys:             []entities.KeyPair{{ParentField: "pid", ChildField: "cid"}},
	}
}

func newTestTransferService(t *testing.T) (*TransferService, *mocks.RelationStore, *HistoryLog) {
	t.Helper()
	sequentialIDs(t)
	store := mocks.NewRelationStore(testLayers()...)
	history := NewHistoryLog(store, nil)
	return NewTransferService(store, history, nil), store, history
}

func TestParseConflictStrategy(t *testing.T) {
	tests := []struct {
		input   string
		want    ConflictStrategy
		wantErr bool
	}{
		{"", ConflictSkip, false},
		{"skip", ConflictSkip, false},
		{"Overwrite", ConflictOverwrite, false},
		{"merge", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseConflictStrategy(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransferService_Export(t *testing.T) {
	service, store, _ := newTestTransferService(t)
	store.Relations = []entities.Relation{
		*parentsRelation(),
		{ID: "r0", Name: "Second", ReferencedLayer: "P", ReferencingLayer: "C",
			KeyPairs: []entities.KeyPair{{ParentField: "year", ChildField: "year"}}},
	}

	doc, err := service.Export(context.Background())
	require.NoError(t, err)

	require.Len(t, doc.Relations, 2)
	assert.Equal(t, "r1", doc.Relations[0].ID, "store order is kept")
	assert.Equal(t, "r0", doc.Relations[1].ID)
	assert.Equal(t, "P", doc.Relations[0].ReferencedLayer)
	assert.Equal(t, "C", doc.Relations[0].ReferencingLayer)
}

func TestTransferService_Import(t *testing.T) {
	service, store, history := newTestTransferService(t)
	doc := &parsers.Document{Relations: []parsers.RawRelation{
		rawRelation("r1", "Parents"),
		rawRelation("", "No id"),
	}}

	result, err := service.Import(context.Background(), doc, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{"r1", "id-1"}, result.ImportedIDs)
	assert.NotNil(t, store.Relation("r1"))
	assert.NotNil(t, store.Relation("id-1"))

	entries := history.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, entities.ActionNote, entries[0].Action)
	assert.Equal(t, "Imported 2 relationships (0 skipped, 0 failed)", entries[0].Note)
}

func TestTransferService_Import_PerEntryErrors(t *testing.T) {
	service, store, _ := newTestTransferService(t)

	missingLayer := rawRelation("bad-layer", "Missing layer")
	missingLayer.ReferencedLayer = "X"
	missingField := rawRelation("bad-field", "Missing field")
	missingField.Keys = []entities.KeyPair{{ParentField: "pid", ChildField: "nope"}}
	noName := rawRelation("no-name", "")
	noKeys := rawRelation("no-keys", "No keys")
	noKeys.Keys = nil

	doc := &parsers.Document{Relations: []parsers.RawRelation{
		missingLayer,
		rawRelation("good", "Good"),
		missingField,
		noName,
		noKeys,
	}}
	for i := range doc.Relations {
		doc.Relations[i].Position = i + 1
	}

	result, err := service.Import(context.Background(), doc, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.NotNil(t, store.Relation("good"))
	require.Len(t, result.Errors, 4)

	assert.ErrorIs(t, result.Errors[0], entities.ErrLayerNotFound)
	assert.Equal(t, 1, result.Errors[0].Entry)
	assert.Equal(t, "X", result.Errors[0].Value)

	assert.ErrorIs(t, result.Errors[1], entities.ErrFieldNotFound)
	assert.Equal(t, "C.nope", result.Errors[1].Value)
	assert.Equal(t, "entry 3 (bad-field): field not found: C.nope", result.Errors[1].Error())

	assert.ErrorIs(t, result.Errors[2], entities.ErrInvalidRelation)
	assert.Equal(t, "name", result.Errors[2].Field)

	assert.Equal(t, "keys", result.Errors[3].Field)
	assert.Equal(t, "missing required field: keys", result.Errors[3].Message)
}

func TestTransferService_Import_MalformedEntry(t *testing.T) {
	service, store, _ := newTestTransferService(t)

	input := `{
    "r1": {"name": "Parents", "referencing_layer": "C", "referenced_layer": "P", "keys": {"pid": "cid"}},
    "r2": "garbage",
    "r3": {"name": "Bad keys", "referencing_layer": "C", "referenced_layer": "P", "keys": {"pid": 7}}
}`
	doc, err := (&parsers.JSONCodec{}).Parse(bytes.NewBufferString(input))
	require.NoError(t, err)

	result, err := service.Import(context.Background(), doc, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.NotNil(t, store.Relation("r1"))
	assert.Nil(t, store.Relation("r2"))
	require.Len(t, result.Errors, 2)

	assert.ErrorIs(t, result.Errors[0], entities.ErrMalformedImportFile)
	assert.Equal(t, 2, result.Errors[0].Entry)
	assert.Equal(t, "r2", result.Errors[0].ID)

	assert.ErrorIs(t, result.Errors[1], entities.ErrMalformedImportFile)
	assert.Equal(t, 3, result.Errors[1].Entry)
	assert.Equal(t, "r3", result.Errors[1].ID)
}

func TestTransferService_Import_Conflicts(t *testing.T) {
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		strategy     ConflictStrategy
		wantImported int
		wantSkipped  int
		wantName     string
	}{
		{"skip keeps the stored relation", ConflictSkip, 0, 1, "Parents"},
		{"overwrite replaces it", ConflictOverwrite, 1, 0, "Imported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store, _ := newTestTransferService(t)
			existing := parentsRelation()
			existing.CreatedAt = created
			store.Relations = []entities.Relation{*existing}

			doc := &parsers.Document{Relations: []parsers.RawRelation{rawRelation("r1", "Imported")}}
			result, err := service.Import(context.Background(), doc, ImportOptions{OnConflict: tt.strategy})
			require.NoError(t, err)

			assert.Equal(t, tt.wantImported, result.Imported)
			assert.Equal(t, tt.wantSkipped, result.Skipped)
			rel := store.Relation("r1")
			require.NotNil(t, rel)
			assert.Equal(t, tt.wantName, rel.Name)
			assert.Equal(t, created, rel.CreatedAt)
		})
	}
}

func TestTransferService_Import_DuplicateIDInFile(t *testing.T) {
	service, store, _ := newTestTransferService(t)
	doc := &parsers.Document{Relations: []parsers.RawRelation{
		rawRelation("r1", "First"),
		rawRelation("r1", "Second"),
	}}

	result, err := service.Import(context.Background(), doc, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], entities.ErrRelationExists)
	assert.Equal(t, "First", store.Relation("r1").Name)
}

func TestTransferService_Import_DryRun(t *testing.T) {
	service, store, history := newTestTransferService(t)
	doc := &parsers.Document{Relations: []parsers.RawRelation{rawRelation("r1", "Parents")}}

	result, err := service.Import(context.Background(), doc, ImportOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Empty(t, store.Relations)
	assert.Zero(t, store.AddCallCount)
	assert.Zero(t, history.Len())
}

func TestTransferService_Import_StoreError(t *testing.T) {
	service, store, _ := newTestTransferService(t)
	store.AddErr = assert.AnError
	doc := &parsers.Document{Relations: []parsers.RawRelation{rawRelation("r1", "Parents")}}

	_, err := service.Import(context.Background(), doc, ImportOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestTransferService_RoundTrip(t *testing.T) {
	source, sourceStore, _ := newTestTransferService(t)
	sourceStore.Relations = []entities.Relation{
		*parentsRelation(),
		{ID: "r2", Name: "Years", ReferencedLayer: "P", ReferencingLayer: "C",
			KeyPairs: []entities.KeyPair{
				{ParentField: "year", ChildField: "year"},
				{ParentField: "pid", ChildField: "cid"},
			}},
		{ID: "r3", Name: "Orphan", ReferencedLayer: "Gone", ReferencingLayer: "C",
			KeyPairs: []entities.KeyPair{{ParentField: "x", ChildField: "cid"}}},
	}

	doc, err := source.Export(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	codec := &parsers.JSONCodec{}
	require.NoError(t, codec.Format(&buf, doc))
	parsed, err := codec.Parse(&buf)
	require.NoError(t, err)

	target, targetStore, _ := newTestTransferService(t)
	result, err := target.Import(context.Background(), parsed, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "r3", result.Errors[0].ID)
	assert.ErrorIs(t, result.Errors[0], entities.ErrLayerNotFound)

	require.Len(t, targetStore.Relations, 2)
	for i, want := range sourceStore.Relations[:2] {
		got := targetStore.Relations[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.ReferencedLayer, got.ReferencedLayer)
		assert.Equal(t, want.ReferencingLayer, got.ReferencingLayer)
		assert.Equal(t, want.KeyPairs, got.KeyPairs)
	}
}
