// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pandocjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotDocument is returned when the input is neither of the JSON shapes
// pandoc writes for a document.
var ErrNotDocument = errors.New("not a pandoc JSON document")

// Shape identifies which JSON layout a document was read from.
type Shape int

const (
	// ShapeCurrent is {"pandoc-api-version": [...], "meta": {...}, "blocks": [...]},
	// written by pandoc 1.18 and later.
	ShapeCurrent Shape = iota
	// ShapeLegacy is [{"unMeta": {...}}, [...]], written by older pandoc.
	ShapeLegacy
)

// Document is a pandoc document with its parts kept as raw JSON.
type Document struct {
	Shape      Shape
	APIVersion json.RawMessage
	Meta       json.RawMessage
	Blocks     json.RawMessage
}

type currentDocument struct {
	APIVersion json.RawMessage `json:"pandoc-api-version"`
	Meta       json.RawMessage `json:"meta"`
	Blocks     json.RawMessage `json:"blocks"`
}

type legacyMeta struct {
	UnMeta json.RawMessage `json:"unMeta"`
}

// Decode reads one document from r.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	switch firstByte(data) {
	case '{':
		var cd currentDocument
		if err := json.Unmarshal(data, &cd); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		if firstByte(cd.Blocks) != '[' {
			return nil, fmt.Errorf("decoding document: missing blocks array: %w", ErrNotDocument)
		}
		doc := &Document{
			Shape:      ShapeCurrent,
			APIVersion: cd.APIVersion,
			Meta:       cd.Meta,
			Blocks:     cd.Blocks,
		}
		if len(doc.APIVersion) == 0 {
			return nil, fmt.Errorf("decoding document: missing pandoc-api-version: %w", ErrNotDocument)
		}
		if len(doc.Meta) == 0 {
			doc.Meta = json.RawMessage("{}")
		}
		return doc, nil

	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		if len(parts) != 2 || firstByte(parts[1]) != '[' {
			return nil, fmt.Errorf("decoding document: legacy layout needs [meta, blocks]: %w", ErrNotDocument)
		}
		var lm legacyMeta
		if err := json.Unmarshal(parts[0], &lm); err != nil {
			return nil, fmt.Errorf("decoding document meta: %w", err)
		}
		if len(lm.UnMeta) == 0 {
			lm.UnMeta = json.RawMessage("{}")
		}
		return &Document{
			Shape:  ShapeLegacy,
			Meta:   lm.UnMeta,
			Blocks: parts[1],
		}, nil

	default:
		return nil, ErrNotDocument
	}
}

// Encode writes doc to w in the shape it was read from.
func Encode(w io.Writer, doc *Document) error {
	var b bytes.Buffer
	switch doc.Shape {
	case ShapeLegacy:
		b.WriteString(`[{"unMeta":`)
		b.Write(doc.Meta)
		b.WriteString(`},`)
		b.Write(doc.Blocks)
		b.WriteByte(']')
	default:
		b.WriteString(`{"pandoc-api-version":`)
		b.Write(doc.APIVersion)
		b.WriteString(`,"meta":`)
		b.Write(doc.Meta)
		b.WriteString(`,"blocks":`)
		b.Write(doc.Blocks)
		b.WriteByte('}')
	}
	if _, err := w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}

// MetaMap decodes the document metadata into a Meta map.
func (d *Document) MetaMap() (Meta, error) {
	meta := Meta{}
	if err := json.Unmarshal(d.Meta, &meta); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return meta, nil
}

// Apply walks the metadata and the blocks of doc with action. Every call
// receives the metadata as it was before the walk started.
func Apply(doc *Document, action Action, format string) error {
	meta, err := doc.MetaMap()
	if err != nil {
		return err
	}

	newMeta, err := Walk(doc.Meta, action, format, meta)
	if err != nil {
		return fmt.Errorf("walking metadata: %w", err)
	}
	newBlocks, err := Walk(doc.Blocks, action, format, meta)
	if err != nil {
		return fmt.Errorf("walking blocks: %w", err)
	}

	doc.Meta = newMeta
	doc.Blocks = newBlocks
	return nil
}

// Filter reads a document from r, applies action for the given target
// format and writes the result to w. It is the whole job of a pandoc JSON
// filter executable.
func Filter(r io.Reader, w io.Writer, format string, action Action) error {
	doc, err := Decode(r)
	if err != nil {
		return err
	}
	if err := Apply(doc, action, format); err != nil {
		return err
	}
	return Encode(w, doc)
}
