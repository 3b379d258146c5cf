// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pandocjson reads, walks and writes pandoc's JSON document
// representation (the format exchanged with filters via --filter). It plays
// the role pandocfilters plays for Python filters: decode the document, offer
// every element to an Action, splice the replacements and encode the result.
//
// Payloads are kept as json.RawMessage throughout. Subtrees an Action does
// not touch are written back with their original bytes.
package pandocjson

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TagLink is the element tag pandoc uses for hyperlinks.
const TagLink = "Link"

// ErrMalformedNode is returned when an element payload does not have the
// shape pandoc guarantees for its tag.
var ErrMalformedNode = errors.New("malformed node")

// Meta is the document metadata, keyed by field name. Values are pandoc
// MetaValue elements in raw form. Actions receive it read-only.
type Meta map[string]json.RawMessage

// Action is called once for every element found in an array of the document.
// tag is the element's "t" field and value its "c" field (nil when the element
// carries no content, e.g. Space). format is the target format pandoc passed
// to the filter.
type Action func(tag string, value json.RawMessage, format string, meta Meta) (Result, error)

// Result is what an Action decided for one element: keep it or replace it.
type Result struct {
	value    json.RawMessage
	replaced bool
}

// Unchanged keeps the element. Its children are still walked.
func Unchanged() Result { return Result{} }

// Replace substitutes v for the element. A JSON array is spliced into the
// enclosing list item by item; any other value takes the element's place.
// An empty v removes the element.
func Replace(v json.RawMessage) Result {
	return Result{value: v, replaced: true}
}

// Replaced reports whether the Action asked for a replacement.
func (r Result) Replaced() bool { return r.replaced }

// Value returns the replacement. It is nil for Unchanged.
func (r Result) Value() json.RawMessage { return r.value }

// Node is a typed view of one element. The set of variants is closed:
// LinkNode for hyperlinks and OtherNode for every other tag.
type Node interface {
	Tag() string
	node()
}

// LinkNode is a Link element: [Attr, [Inline], Target]. Rest holds any
// elements after the target.
type LinkNode struct {
	Attr    json.RawMessage
	Inlines json.RawMessage
	Target  json.RawMessage
	Rest    []json.RawMessage
}

func (LinkNode) Tag() string { return TagLink }
func (LinkNode) node()       {}

// OtherNode is any element this package has no typed view for. Raw is the
// payload exactly as it was read.
type OtherNode struct {
	Kind string
	Raw  json.RawMessage
}

func (n OtherNode) Tag() string { return n.Kind }
func (OtherNode) node()         {}

// ParseNode builds the typed view of an element. Only Link payloads are
// inspected; every other tag is wrapped without looking at value.
func ParseNode(tag string, value json.RawMessage) (Node, error) {
	if tag != TagLink {
		return OtherNode{Kind: tag, Raw: value}, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(value, &parts); err != nil {
		return nil, fmt.Errorf("%s payload is not an array: %w", tag, ErrMalformedNode)
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("%s payload has %d element(s), want at least 2: %w", tag, len(parts), ErrMalformedNode)
	}

	n := LinkNode{Attr: parts[0], Inlines: parts[1]}
	if len(parts) > 2 {
		n.Target = parts[2]
		n.Rest = parts[3:]
	}
	return n, nil
}
