package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ersonp/relman/internal/domain/entities"
)

// csvHeader is the column order written by Format.
var csvHeader = []string{"id", "name", "referencing_layer", "referenced_layer", "parent_field", "child_field"}

// csvAliases maps legacy column names to their canonical name.
var csvAliases = map[string]string{
	"nome":         "name",
	"layer_figlio": "referencing_layer",
	"layer_padre":  "referenced_layer",
}

// CSVCodec handles a flat CSV format with one row per key pair.
// Rows sharing an id belong to the same relation; the first row of an id
// supplies its name and layers. Each row with an empty id is a relation of
// its own.
type CSVCodec struct{}

// Parse reads CSV from the reader and returns the parsed document.
func (c *CSVCodec) Parse(r io.Reader) (*Document, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	colIndex, err := c.readHeader(reader)
	if err != nil {
		return nil, err
	}

	doc, err := c.readRecords(reader, colIndex)
	if err != nil {
		return nil, err
	}
	if len(doc.Relations) == 0 {
		return nil, malformed("document contains no relations")
	}
	return doc, nil
}

// readHeader reads and validates the CSV header row.
func (c *CSVCodec) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, malformed("reading CSV header: %v", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(col))
		if canonical, ok := csvAliases[col]; ok {
			col = canonical
		}
		colIndex[col] = i
	}

	for _, col := range csvHeader {
		if _, ok := colIndex[col]; !ok {
			return nil, malformed("missing required column: %s", col)
		}
	}

	return colIndex, nil
}

// readRecords reads all data rows and groups them by relation id.
func (c *CSVCodec) readRecords(reader *csv.Reader, colIndex map[string]int) (*Document, error) {
	doc := &Document{}
	byID := make(map[string]int)
	lineNum := 1 // header is line 1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if err != nil {
			return nil, malformed("line %d: %v", lineNum, err)
		}

		get := func(col string) string {
			idx := colIndex[col]
			if idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		id := get("id")
		pair := entities.KeyPair{ParentField: get("parent_field"), ChildField: get("child_field")}

		if i, ok := byID[id]; ok && id != "" {
			doc.Relations[i].Keys = append(doc.Relations[i].Keys, pair)
			continue
		}

		if id != "" {
			byID[id] = len(doc.Relations)
		}
		doc.Relations = append(doc.Relations, RawRelation{
			ID:               id,
			Name:             get("name"),
			ReferencingLayer: get("referencing_layer"),
			ReferencedLayer:  get("referenced_layer"),
			Keys:             []entities.KeyPair{pair},
			Position:         lineNum,
		})
	}

	return doc, nil
}

// Format writes the document as CSV, one row per key pair.
func (c *CSVCodec) Format(w io.Writer, doc *Document) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for i := range doc.Relations {
		rel := &doc.Relations[i]
		for _, p := range rel.Keys {
			row := []string{
				rel.ID,
				rel.Name,
				rel.ReferencingLayer,
				rel.ReferencedLayer,
				p.ParentField,
				p.ChildField,
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("writing relation %s: %w", rel.ID, err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}
