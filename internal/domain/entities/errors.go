package entities

import "errors"

// Domain error kinds. Callers wrap them with context and match with errors.Is.
var (
	ErrIndexOutOfRange     = errors.New("history index out of range")
	ErrLayerNotFound       = errors.New("layer not found")
	ErrFieldNotFound       = errors.New("field not found")
	ErrMalformedImportFile = errors.New("malformed import file")
	ErrRelationNotFound    = errors.New("relation not found")
	ErrRelationExists      = errors.New("relation already exists")
	ErrNotReversible       = errors.New("history entry cannot be rolled back")
	ErrInvalidRelation     = errors.New("invalid relation")
)
