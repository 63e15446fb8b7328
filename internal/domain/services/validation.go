package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/domain/ports"
)

// validate reports struct tag violations using JSON field names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldViolation is the first struct tag violation found by the validator.
type fieldViolation struct {
	Field   string
	Message string
}

// firstViolation validates s and describes the first failing field.
// Returns nil if s is valid.
func firstViolation(s any) *fieldViolation {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &fieldViolation{Message: err.Error()}
	}

	fe := verrs[0]
	field := fe.Field()
	if ns := fe.Namespace(); ns != "" {
		// Drop the struct name, keep the path (e.g. "keys[0].parent_field").
		if _, rest, ok := strings.Cut(ns, "."); ok {
			field = rest
		}
	}

	switch fe.Tag() {
	case "required":
		return &fieldViolation{Field: field, Message: "missing required field: " + field}
	case "min":
		return &fieldViolation{Field: field, Message: fmt.Sprintf("%s needs at least %s entry", field, fe.Param())}
	default:
		return &fieldViolation{Field: field, Message: fmt.Sprintf("invalid value for %s (%s)", field, fe.Tag())}
	}
}

// duplicateParentField returns the first parent field used by more than one
// pair, or "" if parent fields are unique.
func duplicateParentField(pairs []entities.KeyPair) string {
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if seen[p.ParentField] {
			return p.ParentField
		}
		seen[p.ParentField] = true
	}
	return ""
}

// layerIndex maps layer names to layers for reference checks.
type layerIndex map[string]*entities.Layer

// loadLayers fetches the project layers into an index.
func loadLayers(ctx context.Context, store ports.RelationStore) (layerIndex, error) {
	layers, err := store.ListLayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing layers: %w", err)
	}
	idx := make(layerIndex, len(layers))
	for i := range layers {
		idx[layers[i].Name] = &layers[i]
	}
	return idx, nil
}

// checkReferences verifies that both layers exist and that every key pair
// names a field of the parent and of the child layer.
func (idx layerIndex) checkReferences(parentLayer, childLayer string, pairs []entities.KeyPair) error {
	parent, ok := idx[parentLayer]
	if !ok {
		return fmt.Errorf("%w: %s", entities.ErrLayerNotFound, parentLayer)
	}
	child, ok := idx[childLayer]
	if !ok {
		return fmt.Errorf("%w: %s", entities.ErrLayerNotFound, childLayer)
	}

	for _, p := range pairs {
		if !parent.HasField(p.ParentField) {
			return fmt.Errorf("%w: %s.%s", entities.ErrFieldNotFound, parentLayer, p.ParentField)
		}
		if !child.HasField(p.ChildField) {
			return fmt.Errorf("%w: %s.%s", entities.ErrFieldNotFound, childLayer, p.ChildField)
		}
	}
	return nil
}

// checkSnapshotReferences re-validates a snapshot against the current layers.
func checkSnapshotReferences(ctx context.Context, store ports.RelationStore, snap entities.RelationSnapshot) error {
	idx, err := loadLayers(ctx, store)
	if err != nil {
		return err
	}
	return idx.checkReferences(snap.ParentLayer, snap.ChildLayer, snap.Pairs())
}
