// Package ports defines interfaces for external service communication.
package ports

import (
	"context"

	"github.com/ersonp/relman/internal/domain/entities"
)

// RelationStore is the authoritative collection of relations and layers of a
// project. The history log and the services take it as an explicit
// dependency; nothing reaches for a process-wide project.
type RelationStore interface {
	// ListRelations returns all relations in insertion order.
	ListRelations(ctx context.Context) ([]entities.Relation, error)

	// GetRelation finds a relation by ID. Returns nil if it does not exist.
	GetRelation(ctx context.Context, id string) (*entities.Relation, error)

	// AddRelation stores a new relation.
	// Returns entities.ErrRelationExists if the ID is already taken.
	AddRelation(ctx context.Context, rel *entities.Relation) error

	// RemoveRelation deletes a relation by ID. Removing a missing ID is a no-op.
	RemoveRelation(ctx context.Context, id string) error

	// ListLayers returns all layers of the project.
	ListLayers(ctx context.Context) ([]entities.Layer, error)
}

// LayerStore manages the layers of a project.
type LayerStore interface {
	// ListLayers returns all layers of the project.
	ListLayers(ctx context.Context) ([]entities.Layer, error)

	// SaveLayer saves or replaces a layer and its fields.
	SaveLayer(ctx context.Context, layer *entities.Layer) error

	// FindLayer finds a layer by name. Returns nil if it does not exist.
	FindLayer(ctx context.Context, name string) (*entities.Layer, error)

	// DeleteLayer deletes a layer that no relation references.
	DeleteLayer(ctx context.Context, name string) error
}

// ProjectDB is a relation and layer store backed by a database file.
type ProjectDB interface {
	RelationStore
	LayerStore

	// EnsureSchema creates the database schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
