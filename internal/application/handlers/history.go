package handlers

import (
	"context"
	"time"

	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/domain/services"
)

// HistoryHandler handles history listing and rollback.
type HistoryHandler struct {
	history   *services.HistoryLog
	relations *services.RelationService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(history *services.HistoryLog, relations *services.RelationService) *HistoryHandler {
	return &HistoryHandler{
		history:   history,
		relations: relations,
	}
}

// HistoryItem is one row of the history listing.
type HistoryItem struct {
	Index       int             `json:"index"`
	Timestamp   time.Time       `json:"timestamp"`
	Action      entities.Action `json:"action"`
	Description string          `json:"description"`
	Reversible  bool            `json:"reversible"`
}

// Label renders the item as "timestamp: description".
func (i HistoryItem) Label() string {
	return i.Timestamp.Format(entities.TimestampLayout) + ": " + i.Description
}

// RollbackResult contains the outcome of a rollback and the refreshed
// relation listing.
type RollbackResult struct {
	*services.RollbackResult
	Relations []entities.RelationListItem `json:"relations"`
}

// HandleList returns the history entries in insertion order.
func (h *HistoryHandler) HandleList() []HistoryItem {
	items := make([]HistoryItem, 0, h.history.Len())
	for i, entry := range h.history.List() {
		items = append(items, HistoryItem{
			Index:       i,
			Timestamp:   entry.Timestamp,
			Action:      entry.Action,
			Description: entry.Description(),
			Reversible:  entry.Action.IsReversible(),
		})
	}
	return items
}

// HandleRollback reverses the entry at index and returns the relations as
// they are after the rollback.
func (h *HistoryHandler) HandleRollback(ctx context.Context, index int) (*RollbackResult, error) {
	result, err := h.history.Rollback(ctx, index)
	if err != nil {
		return nil, err
	}

	relations, err := h.relations.List(ctx)
	if err != nil {
		return nil, err
	}

	return &RollbackResult{
		RollbackResult: result,
		Relations:      relations,
	}, nil
}
