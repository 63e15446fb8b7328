package mocks

import (
	"context"
	"fmt"

	"github.com/ersonp/relman/internal/domain/entities"
)

// RelationStore is an in-memory implementation of ports.ProjectDB.
// Relations keep insertion order, like the SQLite store.
type RelationStore struct {
	Relations []entities.Relation
	Layers    []entities.Layer
	Err       error

	// Operation errors (separate from Err for fine-grained control)
	AddErr    error
	RemoveErr error

	// Call tracking
	AddCallCount    int
	RemoveCallCount int
	RemovedIDs      []string
}

// NewRelationStore creates a new mock RelationStore holding the given layers.
func NewRelationStore(layers ...entities.Layer) *RelationStore {
	return &RelationStore{Layers: layers}
}

// ListRelations returns all relations in insertion order.
func (m *RelationStore) ListRelations(_ context.Context) ([]entities.Relation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([]entities.Relation, len(m.Relations))
	for i := range m.Relations {
		result[i] = m.Relations[i]
		result[i].KeyPairs = entities.CloneKeyPairs(m.Relations[i].KeyPairs)
	}
	return result, nil
}

// GetRelation finds a relation by ID.
func (m *RelationStore) GetRelation(_ context.Context, id string) (*entities.Relation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Relations {
		if m.Relations[i].ID == id {
			rel := m.Relations[i]
			rel.KeyPairs = entities.CloneKeyPairs(rel.KeyPairs)
			return &rel, nil
		}
	}
	return nil, nil
}

// AddRelation stores a new relation.
func (m *RelationStore) AddRelation(_ context.Context, rel *entities.Relation) error {
	m.AddCallCount++
	if m.Err != nil {
		return m.Err
	}
	if m.AddErr != nil {
		return m.AddErr
	}
	for i := range m.Relations {
		if m.Relations[i].ID == rel.ID {
			return fmt.Errorf("%w: %s", entities.ErrRelationExists, rel.ID)
		}
	}
	stored := *rel
	stored.KeyPairs = entities.CloneKeyPairs(rel.KeyPairs)
	m.Relations = append(m.Relations, stored)
	return nil
}

// RemoveRelation deletes a relation by ID.
func (m *RelationStore) RemoveRelation(_ context.Context, id string) error {
	m.RemoveCallCount++
	m.RemovedIDs = append(m.RemovedIDs, id)
	if m.Err != nil {
		return m.Err
	}
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	for i := range m.Relations {
		if m.Relations[i].ID == id {
			m.Relations = append(m.Relations[:i], m.Relations[i+1:]...)
			return nil
		}
	}
	return nil
}

// ListLayers returns all layers.
func (m *RelationStore) ListLayers(_ context.Context) ([]entities.Layer, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([]entities.Layer, len(m.Layers))
	for i := range m.Layers {
		result[i] = entities.Layer{Name: m.Layers[i].Name, Fields: append([]string(nil), m.Layers[i].Fields...)}
	}
	return result, nil
}

// SaveLayer saves or replaces a layer.
func (m *RelationStore) SaveLayer(_ context.Context, layer *entities.Layer) error {
	if m.Err != nil {
		return m.Err
	}
	stored := entities.Layer{Name: layer.Name, Fields: append([]string(nil), layer.Fields...)}
	for i := range m.Layers {
		if m.Layers[i].Name == layer.Name {
			m.Layers[i] = stored
			return nil
		}
	}
	m.Layers = append(m.Layers, stored)
	return nil
}

// FindLayer finds a layer by name.
func (m *RelationStore) FindLayer(_ context.Context, name string) (*entities.Layer, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Layers {
		if m.Layers[i].Name == name {
			layer := entities.Layer{Name: name, Fields: append([]string(nil), m.Layers[i].Fields...)}
			return &layer, nil
		}
	}
	return nil, nil
}

// DeleteLayer deletes a layer that no relation references.
func (m *RelationStore) DeleteLayer(_ context.Context, name string) error {
	if m.Err != nil {
		return m.Err
	}
	for _, rel := range m.Relations {
		if rel.ReferencedLayer == name || rel.ReferencingLayer == name {
			return fmt.Errorf("layer %s is referenced by relation %s", name, rel.ID)
		}
	}
	for i := range m.Layers {
		if m.Layers[i].Name == name {
			m.Layers = append(m.Layers[:i], m.Layers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", entities.ErrLayerNotFound, name)
}

// EnsureSchema is a no-op.
func (m *RelationStore) EnsureSchema(_ context.Context) error {
	return m.Err
}

// Close is a no-op.
func (m *RelationStore) Close() error {
	return nil
}

// Relation returns the stored relation with the given ID, or nil.
// Test helper that bypasses error injection.
func (m *RelationStore) Relation(id string) *entities.Relation {
	for i := range m.Relations {
		if m.Relations[i].ID == id {
			return &m.Relations[i]
		}
	}
	return nil
}
