// Package parsers reads and writes the bulk relation file formats.
package parsers

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ersonp/relman/internal/domain/entities"
)

// CompressedExt is the extension of gzip-compressed bulk files.
const CompressedExt = ".gz"

// RawRelation represents a relation read from a bulk file before validation.
type RawRelation struct {
	ID               string             `json:"-"`
	Name             string             `json:"name" validate:"required"`
	ReferencingLayer string             `json:"referencing_layer" validate:"required"`
	ReferencedLayer  string             `json:"referenced_layer" validate:"required"`
	Keys             []entities.KeyPair `json:"keys" validate:"required,min=1,dive"`
	Position         int                `json:"-"` // Position in source file (set by parser, 1-indexed)
	// Err is set when the entry could not be decoded. It wraps
	// entities.ErrMalformedImportFile.
	Err error `json:"-" validate:"-"`
}

// Document is the bulk payload: relations keyed by ID, in file order.
type Document struct {
	Relations []RawRelation
}

// RawFromRelation converts a stored relation to its bulk representation.
func RawFromRelation(rel *entities.Relation) RawRelation {
	return RawRelation{
		ID:               rel.ID,
		Name:             rel.Name,
		ReferencingLayer: rel.ReferencingLayer,
		ReferencedLayer:  rel.ReferencedLayer,
		Keys:             entities.CloneKeyPairs(rel.KeyPairs),
	}
}

// Codec reads and writes bulk documents in one format.
type Codec interface {
	Parse(r io.Reader) (*Document, error)
	Format(w io.Writer, doc *Document) error
}

// ForFormat returns the appropriate codec for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Codec {
	switch strings.ToLower(format) {
	case "json":
		return &JSONCodec{}
	case "csv":
		return &CSVCodec{}
	default:
		return nil
	}
}

// ForFile returns the appropriate codec based on file extension.
// A trailing ".gz" is ignored.
func ForFile(filename string) Codec {
	name := strings.ToLower(filename)
	name = strings.TrimSuffix(name, CompressedExt)
	switch filepath.Ext(name) {
	case ".json":
		return &JSONCodec{}
	case ".csv":
		return &CSVCodec{}
	default:
		return nil
	}
}

// IsCompressed reports whether the file name designates a gzip file.
func IsCompressed(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), CompressedExt)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", entities.ErrMalformedImportFile, fmt.Sprintf(format, args...))
}
