// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package delink

import (
	"bytes"
	"io"

	"github.com/pdiddy/delink/internal/pandocjson"
)

// Filter reads a pandoc JSON document from r, strips its links and writes it
// to w. format is the target format pandoc passes as the filter's argument.
func Filter(r io.Reader, w io.Writer, format string) error {
	return pandocjson.Filter(r, w, format, Transform)
}

// Bytes strips the links from an encoded pandoc JSON document.
func Bytes(doc []byte, format string) ([]byte, error) {
	var out bytes.Buffer
	if err := Filter(bytes.NewReader(doc), &out, format); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
