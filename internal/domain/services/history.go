package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/domain/ports"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// RollbackEffect describes what a rollback did to the relation store.
type RollbackEffect string

const (
	// EffectRemoved means a created or duplicated relation was removed.
	EffectRemoved RollbackEffect = "removed"
	// EffectRestored means a deleted relation was added back.
	EffectRestored RollbackEffect = "restored"
	// EffectReplaced means an edited relation was reverted to its prior state.
	EffectReplaced RollbackEffect = "replaced"
	// EffectNone means the store already matched and nothing changed.
	EffectNone RollbackEffect = "none"
)

// RollbackResult contains the outcome of a rollback.
type RollbackResult struct {
	Index      int                   `json:"index"`
	Entry      entities.HistoryEntry `json:"entry"`
	Effect     RollbackEffect        `json:"effect"`
	RelationID string                `json:"relation_id,omitempty"`
}

// HistoryLog records mutating actions taken against a relation store and can
// replay the inverse of any of them.
//
// The log is append-only and lives in memory for the duration of a session.
// Rollbacks are applied to the store immediately and are not recorded
// themselves. A HistoryLog is not safe for concurrent use.
type HistoryLog struct {
	store   ports.RelationStore
	logger  *zap.Logger
	entries []entities.HistoryEntry
}

// NewHistoryLog creates an empty history log over store.
func NewHistoryLog(store ports.RelationStore, logger *zap.Logger) *HistoryLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryLog{
		store:  store,
		logger: logger,
	}
}

// Record appends an entry for action with the given snapshot.
func (h *HistoryLog) Record(action entities.Action, snapshot entities.RelationSnapshot) entities.HistoryEntry {
	snapshot.KeyPairs = entities.CloneKeyPairs(snapshot.KeyPairs)
	return h.append(entities.HistoryEntry{
		Timestamp: timeNow().Truncate(time.Second),
		Action:    action,
		Snapshot:  snapshot,
	})
}

// RecordCreate records the creation of rel.
func (h *HistoryLog) RecordCreate(rel *entities.Relation) entities.HistoryEntry {
	return h.Record(entities.ActionCreate, entities.SnapshotOf(rel))
}

// RecordDuplicate records the creation of rel as a copy of another relation.
func (h *HistoryLog) RecordDuplicate(rel *entities.Relation) entities.HistoryEntry {
	return h.Record(entities.ActionDuplicate, entities.SnapshotOf(rel))
}

// RecordEdit records an edit; before is the state prior to the edit.
func (h *HistoryLog) RecordEdit(before *entities.Relation) entities.HistoryEntry {
	return h.Record(entities.ActionEdit, entities.SnapshotOf(before))
}

// RecordDelete records a deletion; before is the state prior to deletion.
func (h *HistoryLog) RecordDelete(before *entities.Relation) entities.HistoryEntry {
	return h.Record(entities.ActionDelete, entities.SnapshotOf(before))
}

// Note appends a free-text informational entry.
func (h *HistoryLog) Note(text string) entities.HistoryEntry {
	return h.append(entities.HistoryEntry{
		Timestamp: timeNow().Truncate(time.Second),
		Action:    entities.ActionNote,
		Note:      text,
	})
}

func (h *HistoryLog) append(entry entities.HistoryEntry) entities.HistoryEntry {
	h.entries = append(h.entries, entry)
	h.logger.Debug("recorded history entry",
		zap.Int("index", len(h.entries)-1),
		zap.String("action", string(entry.Action)),
		zap.String("relation_id", entry.Snapshot.ID),
	)
	return entry
}

// Len returns the number of entries.
func (h *HistoryLog) Len() int {
	return len(h.entries)
}

// List returns the entries in insertion order, paired with their index.
// The sequence reads the log at iteration time and can be ranged over again.
func (h *HistoryLog) List() iter.Seq2[int, entities.HistoryEntry] {
	return func(yield func(int, entities.HistoryEntry) bool) {
		for i := 0; i < len(h.entries); i++ {
			entry := h.entries[i]
			entry.Snapshot.KeyPairs = entities.CloneKeyPairs(entry.Snapshot.KeyPairs)
			if !yield(i, entry) {
				return
			}
		}
	}
}

// Entries returns a copy of all entries in insertion order.
func (h *HistoryLog) Entries() []entities.HistoryEntry {
	result := make([]entities.HistoryEntry, 0, len(h.entries))
	for _, entry := range h.List() {
		result = append(result, entry)
	}
	return result
}

// Rollback reverses the entry at index against the store.
//
// Created and duplicated relations are removed by name, the first match in
// store order. Deleted relations are added back unless their ID is present
// again. Edited relations are replaced by their pre-edit state. Calling
// Rollback twice on the same index replays the same transformation twice.
func (h *HistoryLog) Rollback(ctx context.Context, index int) (*RollbackResult, error) {
	if index < 0 || index >= len(h.entries) {
		return nil, fmt.Errorf("%w: %d (history has %d entries)", entities.ErrIndexOutOfRange, index, len(h.entries))
	}

	entry := h.entries[index]
	result := &RollbackResult{
		Index:  index,
		Entry:  entry,
		Effect: EffectNone,
	}

	var err error
	switch entry.Action {
	case entities.ActionCreate, entities.ActionDuplicate:
		err = h.undoCreate(ctx, entry.Snapshot, result)
	case entities.ActionDelete:
		err = h.undoDelete(ctx, entry.Snapshot, result)
	case entities.ActionEdit:
		err = h.undoEdit(ctx, entry.Snapshot, result)
	default:
		return nil, fmt.Errorf("%w: %s entry at index %d", entities.ErrNotReversible, entry.Action, index)
	}
	if err != nil {
		return nil, fmt.Errorf("rolling back %s entry %d: %w", entry.Action, index, err)
	}

	h.logger.Info("rolled back history entry",
		zap.Int("index", index),
		zap.String("action", string(entry.Action)),
		zap.String("effect", string(result.Effect)),
		zap.String("relation_id", result.RelationID),
	)
	return result, nil
}

// undoCreate removes the first relation named like the snapshot.
// The ID assigned at creation may differ from any recorded one, so the match
// is by name.
func (h *HistoryLog) undoCreate(ctx context.Context, snap entities.RelationSnapshot, result *RollbackResult) error {
	relations, err := h.store.ListRelations(ctx)
	if err != nil {
		return fmt.Errorf("listing relations: %w", err)
	}

	var match *entities.Relation
	matches := 0
	for i := range relations {
		if relations[i].Name == snap.Name {
			if match == nil {
				match = &relations[i]
			}
			matches++
		}
	}
	if match == nil {
		return nil
	}
	if matches > 1 {
		h.logger.Warn("several relations share the rolled back name, removing the first",
			zap.String("name", snap.Name),
			zap.Int("matches", matches),
			zap.String("relation_id", match.ID),
		)
	}

	if err := h.store.RemoveRelation(ctx, match.ID); err != nil {
		return fmt.Errorf("removing relation: %w", err)
	}
	result.Effect = EffectRemoved
	result.RelationID = match.ID
	return nil
}

// undoDelete adds the deleted relation back if its ID is free.
func (h *HistoryLog) undoDelete(ctx context.Context, snap entities.RelationSnapshot, result *RollbackResult) error {
	if snap.ID == "" {
		return fmt.Errorf("%w: snapshot has no id", entities.ErrInvalidRelation)
	}
	result.RelationID = snap.ID

	existing, err := h.store.GetRelation(ctx, snap.ID)
	if err != nil {
		return fmt.Errorf("finding relation: %w", err)
	}
	if existing != nil {
		return nil
	}

	if err := checkSnapshotReferences(ctx, h.store, snap); err != nil {
		return err
	}
	if err := h.store.AddRelation(ctx, snap.Relation(timeNow())); err != nil {
		return fmt.Errorf("adding relation: %w", err)
	}
	result.Effect = EffectRestored
	return nil
}

// undoEdit replaces whatever bears the snapshot ID with the pre-edit state.
// References are checked before the removal so a failed check leaves the
// store untouched.
func (h *HistoryLog) undoEdit(ctx context.Context, snap entities.RelationSnapshot, result *RollbackResult) error {
	if snap.ID == "" {
		return fmt.Errorf("%w: snapshot has no id", entities.ErrInvalidRelation)
	}
	result.RelationID = snap.ID

	if err := checkSnapshotReferences(ctx, h.store, snap); err != nil {
		return err
	}

	createdAt := timeNow()
	current, err := h.store.GetRelation(ctx, snap.ID)
	if err != nil {
		return fmt.Errorf("finding relation: %w", err)
	}
	if current != nil {
		createdAt = current.CreatedAt
	}

	if err := h.store.RemoveRelation(ctx, snap.ID); err != nil {
		return fmt.Errorf("removing relation: %w", err)
	}
	if err := h.store.AddRelation(ctx, snap.Relation(createdAt)); err != nil {
		err = fmt.Errorf("adding relation: %w", err)
		if current != nil && !errors.Is(err, entities.ErrRelationExists) {
			// Put the current state back so the store is not left without the relation.
			if rerr := h.store.AddRelation(ctx, current); rerr != nil {
				h.logger.Error("restoring relation after failed rollback",
					zap.String("relation_id", snap.ID), zap.Error(rerr))
				return errors.Join(err, fmt.Errorf("restoring relation %s: %w", snap.ID, rerr))
			}
		}
		return err
	}
	result.Effect = EffectReplaced
	return nil
}
