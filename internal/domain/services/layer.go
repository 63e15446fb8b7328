package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/domain/ports"
)

// LayerInput holds the attributes of a new layer.
type LayerInput struct {
	Name   string   `json:"name" validate:"required"`
	Fields []string `json:"fields" validate:"required,min=1,unique,dive,required"`
}

// LayerService manages the layers relations can refer to.
type LayerService struct {
	store  ports.LayerStore
	logger *zap.Logger
}

// NewLayerService creates a new LayerService.
func NewLayerService(store ports.LayerStore, logger *zap.Logger) *LayerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LayerService{
		store:  store,
		logger: logger,
	}
}

// List returns all layers.
func (s *LayerService) List(ctx context.Context) ([]entities.Layer, error) {
	layers, err := s.store.ListLayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing layers: %w", err)
	}
	return layers, nil
}

// Get returns the layer with the given name.
func (s *LayerService) Get(ctx context.Context, name string) (*entities.Layer, error) {
	layer, err := s.store.FindLayer(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("finding layer: %w", err)
	}
	if layer == nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrLayerNotFound, name)
	}
	return layer, nil
}

// Add creates a new layer. Adding a layer that already exists fails unless
// replace is set, in which case its field list is replaced.
func (s *LayerService) Add(ctx context.Context, in LayerInput, replace bool) (*entities.Layer, error) {
	in.Name = strings.TrimSpace(in.Name)
	fields := make([]string, len(in.Fields))
	for i, f := range in.Fields {
		fields[i] = strings.TrimSpace(f)
	}
	in.Fields = fields

	if v := firstViolation(in); v != nil {
		return nil, fmt.Errorf("invalid layer: %s", v.Message)
	}

	existing, err := s.store.FindLayer(ctx, in.Name)
	if err != nil {
		return nil, fmt.Errorf("checking layer: %w", err)
	}
	if existing != nil && !replace {
		return nil, fmt.Errorf("layer '%s' already exists", in.Name)
	}

	layer := &entities.Layer{Name: in.Name, Fields: in.Fields}
	if err := s.store.SaveLayer(ctx, layer); err != nil {
		return nil, fmt.Errorf("saving layer: %w", err)
	}

	s.logger.Info("saved layer", zap.String("layer", layer.Name), zap.Strings("fields", layer.Fields))
	return layer, nil
}

// Remove deletes a layer no relation refers to.
func (s *LayerService) Remove(ctx context.Context, name string) error {
	if _, err := s.Get(ctx, name); err != nil {
		return err
	}
	if err := s.store.DeleteLayer(ctx, name); err != nil {
		return fmt.Errorf("deleting layer: %w", err)
	}
	s.logger.Info("deleted layer", zap.String("layer", name))
	return nil
}
