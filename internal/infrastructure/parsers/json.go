package parsers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ersonp/relman/internal/domain/entities"
)

// DefaultIndent is the number of spaces used to indent exported JSON.
const DefaultIndent = 4

// JSONCodec handles the JSON object format:
//
//	{"<id>": {"name": ..., "referencing_layer": ..., "referenced_layer": ...,
//	          "keys": {"<parent field>": "<child field>"}}}
//
// Parsing also accepts the legacy keys "nome", "layer_figlio", "layer_padre"
// and "chiavi". Object key order is preserved for relations and key pairs.
type JSONCodec struct {
	Indent int
}

// Parse reads a JSON document from the reader. Syntax errors fail the whole
// document; an entry with the wrong shape is returned with Err set.
func (c *JSONCodec) Parse(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)

	if err := expectDelim(dec, '{'); err != nil {
		return nil, malformed("%v", err)
	}

	doc := &Document{}
	for dec.More() {
		id, err := readKey(dec)
		if err != nil {
			return nil, malformed("%v", err)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, malformed("relation %q: %v", id, err)
		}
		rel, err := decodeRelation(json.NewDecoder(bytes.NewReader(value)))
		if err != nil {
			// The file is well-formed; only this entry has the wrong shape
			rel = RawRelation{Err: malformed("relation %q: %v", id, err)}
		}
		rel.ID = id
		rel.Position = len(doc.Relations) + 1
		doc.Relations = append(doc.Relations, rel)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, malformed("%v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("unexpected data after document")
	}
	if len(doc.Relations) == 0 {
		return nil, malformed("document contains no relations")
	}

	return doc, nil
}

func decodeRelation(dec *json.Decoder) (RawRelation, error) {
	var rel RawRelation

	if err := expectDelim(dec, '{'); err != nil {
		return rel, err
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return rel, err
		}

		switch key {
		case "name", "nome":
			err = dec.Decode(&rel.Name)
		case "referencing_layer", "layer_figlio":
			err = dec.Decode(&rel.ReferencingLayer)
		case "referenced_layer", "layer_padre":
			err = dec.Decode(&rel.ReferencedLayer)
		case "keys", "chiavi":
			rel.Keys, err = decodePairs(dec)
		default:
			var skip json.RawMessage
			err = dec.Decode(&skip)
		}
		if err != nil {
			return rel, err
		}
	}
	return rel, expectDelim(dec, '}')
}

func decodePairs(dec *json.Decoder) ([]entities.KeyPair, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("keys must be an object")
	}

	var pairs []entities.KeyPair
	for dec.More() {
		parent, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var child string
		if err := dec.Decode(&child); err != nil {
			return nil, err
		}
		pairs = append(pairs, entities.KeyPair{ParentField: parent, ChildField: child})
	}
	return pairs, expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, found %v", want.String(), tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("parsing JSON: %w", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, found %v", tok)
	}
	return key, nil
}

// Format writes the document as indented JSON.
func (c *JSONCodec) Format(w io.Writer, doc *Document) error {
	var buf bytes.Buffer

	buf.WriteByte('{')
	for i := range doc.Relations {
		rel := &doc.Relations[i]
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(&buf, rel.ID)
		buf.WriteString(`:{"name":`)
		writeString(&buf, rel.Name)
		buf.WriteString(`,"referencing_layer":`)
		writeString(&buf, rel.ReferencingLayer)
		buf.WriteString(`,"referenced_layer":`)
		writeString(&buf, rel.ReferencedLayer)
		buf.WriteString(`,"keys":{`)
		for j, p := range rel.Keys {
			if j > 0 {
				buf.WriteByte(',')
			}
			writeString(&buf, p.ParentField)
			buf.WriteByte(':')
			writeString(&buf, p.ChildField)
		}
		buf.WriteString("}}")
	}
	buf.WriteByte('}')

	indent := c.Indent
	if indent <= 0 {
		indent = DefaultIndent
	}

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", strings.Repeat(" ", indent)); err != nil {
		return err
	}
	out.WriteByte('\n')

	_, err := w.Write(out.Bytes())
	return err
}

func writeString(buf *bytes.Buffer, s string) {
	data, _ := json.Marshal(s)
	buf.Write(data)
}
