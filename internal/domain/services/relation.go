package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/domain/ports"
)

// generateUUID returns a new UUID string.
var generateUUID = func() string {
	return uuid.New().String()
}

// RelationInput holds the user-supplied attributes of a relation.
type RelationInput struct {
	Name        string             `json:"name" validate:"required"`
	ParentLayer string             `json:"referenced_layer" validate:"required"`
	ChildLayer  string             `json:"referencing_layer" validate:"required"`
	KeyPairs    []entities.KeyPair `json:"keys" validate:"required,min=1,dive"`
}

// InputFrom returns the input that would recreate rel.
func InputFrom(rel *entities.Relation) RelationInput {
	return RelationInput{
		Name:        rel.Name,
		ParentLayer: rel.ReferencedLayer,
		ChildLayer:  rel.ReferencingLayer,
		KeyPairs:    entities.CloneKeyPairs(rel.KeyPairs),
	}
}

func (in RelationInput) normalized() RelationInput {
	in.Name = strings.TrimSpace(in.Name)
	in.ParentLayer = strings.TrimSpace(in.ParentLayer)
	in.ChildLayer = strings.TrimSpace(in.ChildLayer)
	in.KeyPairs = entities.CloneKeyPairs(in.KeyPairs)
	return in
}

// RelationService manages relations and records every change in the history log.
type RelationService struct {
	store   ports.RelationStore
	history *HistoryLog
	logger  *zap.Logger
}

// NewRelationService creates a new RelationService.
func NewRelationService(store ports.RelationStore, history *HistoryLog, logger *zap.Logger) *RelationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelationService{
		store:   store,
		history: history,
		logger:  logger,
	}
}

// List returns the list items of all relations in store order.
func (s *RelationService) List(ctx context.Context) ([]entities.RelationListItem, error) {
	relations, err := s.store.ListRelations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}
	items := make([]entities.RelationListItem, len(relations))
	for i := range relations {
		items[i] = relations[i].ListItem()
	}
	return items, nil
}

// All returns all relations in store order.
func (s *RelationService) All(ctx context.Context) ([]entities.Relation, error) {
	relations, err := s.store.ListRelations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}
	return relations, nil
}

// Get returns the relation with the given ID.
func (s *RelationService) Get(ctx context.Context, id string) (*entities.Relation, error) {
	rel, err := s.store.GetRelation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding relation: %w", err)
	}
	if rel == nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrRelationNotFound, id)
	}
	return rel, nil
}

// Layers returns the project layers.
func (s *RelationService) Layers(ctx context.Context) ([]entities.Layer, error) {
	layers, err := s.store.ListLayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing layers: %w", err)
	}
	return layers, nil
}

// Create validates the input, adds a new relation with a fresh ID and
// records it.
func (s *RelationService) Create(ctx context.Context, in RelationInput) (*entities.Relation, error) {
	rel, err := s.add(ctx, in)
	if err != nil {
		return nil, err
	}
	s.history.RecordCreate(rel)
	s.logger.Info("created relation", zap.String("relation_id", rel.ID), zap.String("name", rel.Name))
	return rel, nil
}

// Duplicate copies the relation with the given ID under a new name and a new ID.
func (s *RelationService) Duplicate(ctx context.Context, id, newName string) (*entities.Relation, error) {
	source, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	in := InputFrom(source)
	in.Name = newName

	rel, err := s.add(ctx, in)
	if err != nil {
		return nil, err
	}
	s.history.RecordDuplicate(rel)
	s.logger.Info("duplicated relation",
		zap.String("source_id", source.ID),
		zap.String("relation_id", rel.ID),
		zap.String("name", rel.Name),
	)
	return rel, nil
}

// Edit replaces the relation with the given ID by one built from the input,
// keeping the ID. The pre-edit state is recorded.
func (s *RelationService) Edit(ctx context.Context, id string, in RelationInput) (*entities.Relation, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	in = in.normalized()
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	rel := &entities.Relation{
		ID:               id,
		Name:             in.Name,
		ReferencedLayer:  in.ParentLayer,
		ReferencingLayer: in.ChildLayer,
		KeyPairs:         in.KeyPairs,
		CreatedAt:        before.CreatedAt,
	}

	if err := s.store.RemoveRelation(ctx, id); err != nil {
		return nil, fmt.Errorf("removing relation: %w", err)
	}
	if err := s.store.AddRelation(ctx, rel); err != nil {
		err = fmt.Errorf("adding relation: %w", err)
		if rerr := s.store.AddRelation(ctx, before); rerr != nil {
			s.logger.Error("restoring relation after failed edit", zap.String("relation_id", id), zap.Error(rerr))
			return nil, errors.Join(err, fmt.Errorf("restoring relation %s: %w", id, rerr))
		}
		return nil, err
	}

	s.history.RecordEdit(before)
	s.logger.Info("edited relation", zap.String("relation_id", id), zap.String("name", rel.Name))
	return rel, nil
}

// Delete removes the relation with the given ID and records its last state.
func (s *RelationService) Delete(ctx context.Context, id string) (*entities.Relation, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.RemoveRelation(ctx, id); err != nil {
		return nil, fmt.Errorf("removing relation: %w", err)
	}

	s.history.RecordDelete(before)
	s.logger.Info("deleted relation", zap.String("relation_id", id))
	return before, nil
}

// add validates the input and stores a new relation built from it.
func (s *RelationService) add(ctx context.Context, in RelationInput) (*entities.Relation, error) {
	in = in.normalized()
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	rel := &entities.Relation{
		ID:               generateUUID(),
		Name:             in.Name,
		ReferencedLayer:  in.ParentLayer,
		ReferencingLayer: in.ChildLayer,
		KeyPairs:         in.KeyPairs,
		CreatedAt:        timeNow(),
	}
	if err := s.store.AddRelation(ctx, rel); err != nil {
		return nil, fmt.Errorf("adding relation: %w", err)
	}
	return rel, nil
}

// validate checks required attributes, key pair uniqueness and that the
// referenced layers and fields exist.
func (s *RelationService) validate(ctx context.Context, in RelationInput) error {
	if v := firstViolation(in); v != nil {
		return fmt.Errorf("%w: %s", entities.ErrInvalidRelation, v.Message)
	}
	if dup := duplicateParentField(in.KeyPairs); dup != "" {
		return fmt.Errorf("%w: parent field %s is paired more than once", entities.ErrInvalidRelation, dup)
	}

	idx, err := loadLayers(ctx, s.store)
	if err != nil {
		return err
	}
	return idx.checkReferences(in.ParentLayer, in.ChildLayer, in.KeyPairs)
}
