// Package entities contains core domain data structures.
package entities

import (
	"fmt"
	"time"
)

// KeyPair links a field of the referenced (parent) layer to a field of the
// referencing (child) layer.
type KeyPair struct {
	ParentField string `json:"parent_field" validate:"required"`
	ChildField  string `json:"child_field" validate:"required"`
}

// Relation represents a declared parent/child link between two layers.
// ReferencedLayer is the parent, ReferencingLayer is the child.
type Relation struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ReferencedLayer  string    `json:"referenced_layer"`
	ReferencingLayer string    `json:"referencing_layer"`
	KeyPairs         []KeyPair `json:"keys"`
	CreatedAt        time.Time `json:"created_at"`
}

// RelationListItem carries the identifier of a relation alongside the text
// rendered for it, so callers never parse the id back out of the label.
type RelationListItem struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// ListItem returns the list entry for the relation.
func (r *Relation) ListItem() RelationListItem {
	return RelationListItem{
		ID:          r.ID,
		DisplayName: fmt.Sprintf("%s: %s", r.ID, r.Name),
	}
}

// CloneKeyPairs returns a copy of pairs that shares no memory with the input.
func CloneKeyPairs(pairs []KeyPair) []KeyPair {
	if pairs == nil {
		return nil
	}
	out := make([]KeyPair, len(pairs))
	copy(out, pairs)
	return out
}
