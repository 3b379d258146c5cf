// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pandocjson

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Walk applies action to every element reachable from raw and returns the
// rewritten value. Elements are only offered to action when they appear as
// items of an array, which is where pandoc keeps blocks and inlines.
//
// When action leaves an element unchanged its children are walked. When it
// returns a replacement, the replacement is walked as well: elements nested
// inside it are offered, the replacement items themselves are not offered
// again. Values with no change anywhere below them are returned as the same
// bytes.
func Walk(raw json.RawMessage, action Action, format string, meta Meta) (json.RawMessage, error) {
	out, _, err := walk(raw, action, format, meta)
	return out, err
}

func walk(raw json.RawMessage, action Action, format string, meta Meta) (json.RawMessage, bool, error) {
	switch firstByte(raw) {
	case '[':
		return walkArray(raw, action, format, meta)
	case '{':
		return walkObject(raw, action, format, meta)
	default:
		return raw, false, nil
	}
}

func walkArray(raw json.RawMessage, action Action, format string, meta Meta) (json.RawMessage, bool, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("decoding array: %w", err)
	}

	out := make([]json.RawMessage, 0, len(items))
	changed := false

	for _, item := range items {
		tag, value, isElement := element(item)
		if !isElement {
			w, c, err := walk(item, action, format, meta)
			if err != nil {
				return nil, false, err
			}
			out = append(out, w)
			changed = changed || c
			continue
		}

		res, err := action(tag, value, format, meta)
		if err != nil {
			return nil, false, err
		}
		if !res.Replaced() {
			w, c, err := walk(item, action, format, meta)
			if err != nil {
				return nil, false, err
			}
			out = append(out, w)
			changed = changed || c
			continue
		}

		changed = true
		repl := res.Value()
		if len(bytes.TrimSpace(repl)) == 0 {
			continue
		}
		if firstByte(repl) != '[' {
			w, _, err := walk(repl, action, format, meta)
			if err != nil {
				return nil, false, err
			}
			out = append(out, w)
			continue
		}

		var spliced []json.RawMessage
		if err := json.Unmarshal(repl, &spliced); err != nil {
			return nil, false, fmt.Errorf("decoding replacement for %s: %w", tag, err)
		}
		for _, z := range spliced {
			w, _, err := walk(z, action, format, meta)
			if err != nil {
				return nil, false, err
			}
			out = append(out, w)
		}
	}

	if !changed {
		return raw, false, nil
	}
	return joinArray(out), true, nil
}

// member is one key/value pair of a JSON object, kept in source order.
type member struct {
	key   string
	value json.RawMessage
}

func walkObject(raw json.RawMessage, action Action, format string, meta Meta) (json.RawMessage, bool, error) {
	members, err := objectMembers(raw)
	if err != nil {
		return nil, false, err
	}

	changed := false
	for i, m := range members {
		w, c, err := walk(m.value, action, format, meta)
		if err != nil {
			return nil, false, err
		}
		if c {
			members[i].value = w
			changed = true
		}
	}

	if !changed {
		return raw, false, nil
	}
	return joinObject(members), true, nil
}

// objectMembers decodes a JSON object without losing key order.
func objectMembers(raw json.RawMessage) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decoding object: %w", err)
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decoding object key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decoding object: unexpected key token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decoding value of %q: %w", key, err)
		}
		members = append(members, member{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decoding object end: %w", err)
	}
	return members, nil
}

// element reports whether raw is a pandoc element, an object with a string
// "t" field, and returns its tag and "c" payload.
func element(raw json.RawMessage) (tag string, value json.RawMessage, ok bool) {
	if firstByte(raw) != '{' {
		return "", nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", nil, false
	}
	t, found := fields["t"]
	if !found {
		return "", nil, false
	}
	if err := json.Unmarshal(t, &tag); err != nil {
		return "", nil, false
	}
	return tag, fields["c"], true
}

func joinArray(items []json.RawMessage) json.RawMessage {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(item)
	}
	b.WriteByte(']')
	return b.Bytes()
}

func joinObject(members []member) json.RawMessage {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(encodeString(m.key))
		b.WriteByte(':')
		b.Write(m.value)
	}
	b.WriteByte('}')
	return b.Bytes()
}

// encodeString writes s as a JSON string without HTML escaping, matching
// what pandoc itself emits.
func encodeString(s string) []byte {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return bytes.TrimSuffix(b.Bytes(), []byte{'\n'})
}

func firstByte(raw json.RawMessage) byte {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return c
	}
	return 0
}
