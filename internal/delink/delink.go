// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package delink removes hyperlinks from a pandoc document while keeping the
// link text. Transform is a pandocjson.Action: it looks at one element at a
// time, holds no state and never modifies its arguments, so it is safe to
// call from any number of goroutines.
package delink

import (
	"encoding/json"
	"fmt"

	"github.com/pdiddy/delink/internal/pandocjson"
)

// ErrMalformedNode is returned for a Link whose payload is not
// [Attr, [Inline], Target].
var ErrMalformedNode = pandocjson.ErrMalformedNode

// Transform replaces a Link element with its inline content and leaves every
// other element unchanged. The target and attributes of the link are
// discarded. format and meta are not consulted.
func Transform(tag string, value json.RawMessage, format string, meta pandocjson.Meta) (pandocjson.Result, error) {
	node, err := pandocjson.ParseNode(tag, value)
	if err != nil {
		return pandocjson.Unchanged(), err
	}

	switch n := node.(type) {
	case pandocjson.LinkNode:
		return pandocjson.Replace(n.Inlines), nil
	case pandocjson.OtherNode:
		return pandocjson.Unchanged(), nil
	default:
		return pandocjson.Unchanged(), fmt.Errorf("unhandled node %T", n)
	}
}

var _ pandocjson.Action = Transform
