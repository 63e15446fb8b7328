package entities

import "time"

// RelationSnapshot is an immutable capture of the attributes needed to
// recreate or identify a relation. Construct it with SnapshotOf; the key pairs
// are copied so later changes to the source relation do not leak in.
type RelationSnapshot struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	ParentLayer string    `json:"parent_layer"`
	ChildLayer  string    `json:"child_layer"`
	KeyPairs    []KeyPair `json:"keys"`
}

// SnapshotOf captures the current state of rel.
func SnapshotOf(rel *Relation) RelationSnapshot {
	return RelationSnapshot{
		ID:          rel.ID,
		Name:        rel.Name,
		ParentLayer: rel.ReferencedLayer,
		ChildLayer:  rel.ReferencingLayer,
		KeyPairs:    CloneKeyPairs(rel.KeyPairs),
	}
}

// Pairs returns a copy of the recorded key pairs.
func (s RelationSnapshot) Pairs() []KeyPair {
	return CloneKeyPairs(s.KeyPairs)
}

// Relation rebuilds a relation from the snapshot, keeping the recorded id.
func (s RelationSnapshot) Relation(createdAt time.Time) *Relation {
	return &Relation{
		ID:               s.ID,
		Name:             s.Name,
		ReferencedLayer:  s.ParentLayer,
		ReferencingLayer: s.ChildLayer,
		KeyPairs:         s.Pairs(),
		CreatedAt:        createdAt,
	}
}
