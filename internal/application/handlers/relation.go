package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/domain/services"
)

// RelationHandler handles relation operations.
type RelationHandler struct {
	service *services.RelationService
}

// NewRelationHandler creates a new RelationHandler.
func NewRelationHandler(service *services.RelationService) *RelationHandler {
	return &RelationHandler{
		service: service,
	}
}

// EditOptions lists the attributes to change. Empty values keep the
// current attribute.
type EditOptions struct {
	Name        string
	ParentLayer string
	ChildLayer  string
	KeyPairs    []entities.KeyPair
}

// ParseKeyPairs parses "parent:child" arguments into key pairs.
func ParseKeyPairs(args []string) ([]entities.KeyPair, error) {
	pairs := make([]entities.KeyPair, 0, len(args))
	for _, arg := range args {
		parent, child, ok := strings.Cut(arg, ":")
		parent = strings.TrimSpace(parent)
		child = strings.TrimSpace(child)
		if !ok || parent == "" || child == "" {
			return nil, fmt.Errorf("invalid key pair %q (expected parent_field:child_field)", arg)
		}
		pairs = append(pairs, entities.KeyPair{ParentField: parent, ChildField: child})
	}
	return pairs, nil
}

// HandleList returns the list items of all relations.
func (h *RelationHandler) HandleList(ctx context.Context) ([]entities.RelationListItem, error) {
	return h.service.List(ctx)
}

// HandleShow returns the relation with the given ID.
func (h *RelationHandler) HandleShow(ctx context.Context, id string) (*entities.Relation, error) {
	return h.service.Get(ctx, id)
}

// HandleRelations returns all relations with their full attributes.
func (h *RelationHandler) HandleRelations(ctx context.Context) ([]entities.Relation, error) {
	return h.service.All(ctx)
}

// HandleLayers returns the layers relations can refer to.
func (h *RelationHandler) HandleLayers(ctx context.Context) ([]entities.Layer, error) {
	return h.service.Layers(ctx)
}

// HandleCreate creates a new relation.
func (h *RelationHandler) HandleCreate(ctx context.Context, in services.RelationInput) (*entities.Relation, error) {
	return h.service.Create(ctx, in)
}

// HandleEdit applies the non-empty options to the relation with the given ID.
func (h *RelationHandler) HandleEdit(ctx context.Context, id string, opts EditOptions) (*entities.Relation, error) {
	current, err := h.service.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	in := services.InputFrom(current)
	if opts.Name != "" {
		in.Name = opts.Name
	}
	if opts.ParentLayer != "" {
		in.ParentLayer = opts.ParentLayer
	}
	if opts.ChildLayer != "" {
		in.ChildLayer = opts.ChildLayer
	}
	if len(opts.KeyPairs) > 0 {
		in.KeyPairs = opts.KeyPairs
	}

	return h.service.Edit(ctx, id, in)
}

// HandleDuplicate copies a relation under a new name.
func (h *RelationHandler) HandleDuplicate(ctx context.Context, id, newName string) (*entities.Relation, error) {
	return h.service.Duplicate(ctx, id, newName)
}

// HandleDelete removes a relation by ID.
func (h *RelationHandler) HandleDelete(ctx context.Context, id string) (*entities.Relation, error) {
	return h.service.Delete(ctx, id)
}
