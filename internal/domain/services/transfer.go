package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/domain/ports"
	"github.com/ersonp/relman/internal/infrastructure/parsers"
)

// ConflictStrategy defines how to handle existing relations during import.
type ConflictStrategy string

const (
	// ConflictSkip skips relations whose ID already exists.
	ConflictSkip ConflictStrategy = "skip"
	// ConflictOverwrite replaces existing relations with the imported data.
	ConflictOverwrite ConflictStrategy = "overwrite"
)

// ParseConflictStrategy validates a strategy name. An empty name means skip.
func ParseConflictStrategy(name string) (ConflictStrategy, error) {
	switch ConflictStrategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", ConflictSkip:
		return ConflictSkip, nil
	case ConflictOverwrite:
		return ConflictOverwrite, nil
	default:
		return "", fmt.Errorf("invalid conflict strategy %q (valid: skip, overwrite)", name)
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun     bool             // Validate without saving
	OnConflict ConflictStrategy // How to handle existing relations
}

// ImportError represents an error for a specific relation during import.
type ImportError struct {
	Entry   int    // Position in the file (1-indexed, 0 if unknown)
	ID      string // Relation ID as written in the file
	Field   string // Which field has the error
	Value   string // The invalid value
	Message string // Human-readable error message
	Err     error  // Domain error kind
}

func (e ImportError) Error() string {
	prefix := ""
	switch {
	case e.Entry > 0 && e.ID != "":
		prefix = fmt.Sprintf("entry %d (%s): ", e.Entry, e.ID)
	case e.Entry > 0:
		prefix = fmt.Sprintf("entry %d: ", e.Entry)
	case e.ID != "":
		prefix = e.ID + ": "
	}
	return prefix + e.Message
}

func (e ImportError) Unwrap() error {
	return e.Err
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Imported    int
	Skipped     int
	Errors      []ImportError
	ImportedIDs []string
}

// TransferService moves relations between the store and bulk documents.
type TransferService struct {
	store   ports.RelationStore
	history *HistoryLog
	logger  *zap.Logger
}

// NewTransferService creates a new TransferService.
func NewTransferService(store ports.RelationStore, history *HistoryLog, logger *zap.Logger) *TransferService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferService{
		store:   store,
		history: history,
		logger:  logger,
	}
}

// Export returns all relations as a bulk document, in store order.
func (s *TransferService) Export(ctx context.Context) (*parsers.Document, error) {
	relations, err := s.store.ListRelations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}

	doc := &parsers.Document{Relations: make([]parsers.RawRelation, 0, len(relations))}
	for i := range relations {
		raw := parsers.RawFromRelation(&relations[i])
		raw.Position = i + 1
		doc.Relations = append(doc.Relations, raw)
	}

	s.logger.Debug("exported relations", zap.Int("count", len(doc.Relations)))
	return doc, nil
}

// Import validates each relation of the document independently and stores
// the valid ones. Invalid entries are reported in the result and do not stop
// the import. A store failure aborts it.
func (s *TransferService) Import(ctx context.Context, doc *parsers.Document, opts ImportOptions) (*ImportResult, error) {
	if opts.OnConflict == "" {
		opts.OnConflict = ConflictSkip
	}

	layers, err := loadLayers(ctx, s.store)
	if err != nil {
		return nil, err
	}
	existing, err := s.existingByID(ctx)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	seen := make(map[string]bool, len(doc.Relations))

	for i := range doc.Relations {
		raw := normalizeRaw(doc.Relations[i])
		if raw.Position == 0 {
			raw.Position = i + 1
		}

		if raw.Err != nil {
			result.Errors = append(result.Errors, ImportError{
				Entry:   raw.Position,
				ID:      raw.ID,
				Message: raw.Err.Error(),
				Err:     raw.Err,
			})
			continue
		}

		if ierr := validateRaw(&raw, layers); ierr != nil {
			result.Errors = append(result.Errors, *ierr)
			continue
		}

		if raw.ID == "" {
			raw.ID = generateUUID()
		}
		if seen[raw.ID] {
			result.Errors = append(result.Errors, ImportError{
				Entry:   raw.Position,
				ID:      raw.ID,
				Field:   "id",
				Value:   raw.ID,
				Message: "duplicate id in file",
				Err:     entities.ErrRelationExists,
			})
			continue
		}
		seen[raw.ID] = true

		current, exists := existing[raw.ID]
		if exists && opts.OnConflict == ConflictSkip {
			result.Skipped++
			continue
		}

		if !opts.DryRun {
			if err := s.save(ctx, raw, current); err != nil {
				return nil, fmt.Errorf("saving relation %s: %w", raw.ID, err)
			}
		}
		result.Imported++
		result.ImportedIDs = append(result.ImportedIDs, raw.ID)
	}

	s.logger.Info("imported relations",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Errors)),
		zap.Bool("dry_run", opts.DryRun),
	)

	if !opts.DryRun && s.history != nil {
		s.history.Note(fmt.Sprintf("Imported %d relationships (%d skipped, %d failed)",
			result.Imported, result.Skipped, len(result.Errors)))
	}

	return result, nil
}

// existingByID indexes the stored relations by ID.
func (s *TransferService) existingByID(ctx context.Context) (map[string]*entities.Relation, error) {
	relations, err := s.store.ListRelations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}
	byID := make(map[string]*entities.Relation, len(relations))
	for i := range relations {
		byID[relations[i].ID] = &relations[i]
	}
	return byID, nil
}

// save stores raw, replacing current when it is non-nil. The creation time
// of a replaced relation is preserved.
func (s *TransferService) save(ctx context.Context, raw parsers.RawRelation, current *entities.Relation) error {
	rel := &entities.Relation{
		ID:               raw.ID,
		Name:             raw.Name,
		ReferencedLayer:  raw.ReferencedLayer,
		ReferencingLayer: raw.ReferencingLayer,
		KeyPairs:         raw.Keys,
		CreatedAt:        timeNow(),
	}

	if current != nil {
		rel.CreatedAt = current.CreatedAt
		if err := s.store.RemoveRelation(ctx, raw.ID); err != nil {
			return fmt.Errorf("removing relation: %w", err)
		}
	}
	if err := s.store.AddRelation(ctx, rel); err != nil {
		return fmt.Errorf("adding relation: %w", err)
	}
	return nil
}

func normalizeRaw(raw parsers.RawRelation) parsers.RawRelation {
	raw.ID = strings.TrimSpace(raw.ID)
	raw.Name = strings.TrimSpace(raw.Name)
	raw.ReferencingLayer = strings.TrimSpace(raw.ReferencingLayer)
	raw.ReferencedLayer = strings.TrimSpace(raw.ReferencedLayer)
	raw.Keys = entities.CloneKeyPairs(raw.Keys)
	return raw
}

// validateRaw checks one relation and returns an error describing the first
// problem, or nil if the relation can be stored.
func validateRaw(raw *parsers.RawRelation, layers layerIndex) *ImportError {
	base := ImportError{Entry: raw.Position, ID: raw.ID}

	if v := firstViolation(raw); v != nil {
		base.Field = v.Field
		base.Message = v.Message
		base.Err = entities.ErrInvalidRelation
		return &base
	}

	if dup := duplicateParentField(raw.Keys); dup != "" {
		base.Field = "keys"
		base.Value = dup
		base.Message = fmt.Sprintf("parent field %s is paired more than once", dup)
		base.Err = entities.ErrInvalidRelation
		return &base
	}

	if err := layers.checkReferences(raw.ReferencedLayer, raw.ReferencingLayer, raw.Keys); err != nil {
		base.Message = err.Error()
		switch {
		case errors.Is(err, entities.ErrLayerNotFound):
			base.Field = "layer"
			base.Err = entities.ErrLayerNotFound
		case errors.Is(err, entities.ErrFieldNotFound):
			base.Field = "keys"
			base.Err = entities.ErrFieldNotFound
		default:
			base.Err = err
		}
		if _, value, ok := strings.Cut(err.Error(), ": "); ok {
			base.Value = value
		}
		return &base
	}

	return nil
}
