package handlers

import (
	"testing"

	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/domain/mocks"
	"github.com/ersonp/relman/internal/domain/services"
)

// testDeps wires handlers over one in-memory store and history log.
type testDeps struct {
	store     *mocks.RelationStore
	history   *services.HistoryLog
	relations *RelationHandler
	layers    *LayerHandler
	historyH  *HistoryHandler
	transfer  *TransferHandler
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	store := mocks.NewRelationStore(
		entities.Layer{Name: "parcels", Fields: []string{"sheet", "number"}},
		entities.Layer{Name: "owners", Fields: []string{"sheet_ref", "number_ref"}},
	)
	history := services.NewHistoryLog(store, nil)
	relationService := services.NewRelationService(store, history, nil)

	return &testDeps{
		store:     store,
		history:   history,
		relations: NewRelationHandler(relationService),
		layers:    NewLayerHandler(services.NewLayerService(store, nil)),
		historyH:  NewHistoryHandler(history, relationService),
		transfer:  NewTransferHandler(services.NewTransferService(store, history, nil)),
	}
}

func ownersInput() services.RelationInput {
	return services.RelationInput{
		Name:        "Owners",
		ParentLayer: "parcels",
		ChildLayer:  "owners",
		KeyPairs:    []entities.KeyPair{{ParentField: "sheet", ChildField: "sheet_ref"}},
	}
}
