package handlers

import (
	"context"

	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/domain/services"
)

// LayerHandler handles layer operations.
type LayerHandler struct {
	service *services.LayerService
}

// NewLayerHandler creates a new LayerHandler.
func NewLayerHandler(service *services.LayerService) *LayerHandler {
	return &LayerHandler{
		service: service,
	}
}

// HandleList returns all layers.
func (h *LayerHandler) HandleList(ctx context.Context) ([]entities.Layer, error) {
	return h.service.List(ctx)
}

// HandleAdd creates a layer, or replaces its fields when replace is set.
func (h *LayerHandler) HandleAdd(ctx context.Context, name string, fields []string, replace bool) (*entities.Layer, error) {
	return h.service.Add(ctx, services.LayerInput{Name: name, Fields: fields}, replace)
}

// HandleRemove deletes a layer.
func (h *LayerHandler) HandleRemove(ctx context.Context, name string) error {
	return h.service.Remove(ctx, name)
}
