package pnl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// jsonObjectWriter builds a JSON object whose fields keep the order they were
// added in. Its zero value is an empty object.
type jsonObjectWriter struct {
	fields []jsonField
	err    error
}

type jsonField struct {
	key   string
	value json.RawMessage
}

// Append adds key with the JSON encoding of value.
func (w *jsonObjectWriter) Append(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	raw, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("cannot encode %q: %w", key, err)
		return w
	}
	w.fields = append(w.fields, jsonField{key, raw})
	return w
}

// Optional adds key unless value is the zero value of its type.
func (w *jsonObjectWriter) Optional(key string, value any) *jsonObjectWriter {
	if v := reflect.ValueOf(value); !v.IsValid() || v.IsZero() {
		return w
	}
	return w.Append(key, value)
}

// Merge adds the fields of v, in order. v must encode to a JSON object.
func (w *jsonObjectWriter) Merge(v any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	raw, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("cannot encode %T: %w", v, err)
		return w
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, _ := dec.Token(); tok != json.Delim('{') {
		w.err = fmt.Errorf("cannot merge %s: not a json object", raw)
		return w
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			w.err = err
			return w
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			w.err = err
			return w
		}
		w.fields = append(w.fields, jsonField{tok.(string), value})
	}
	return w
}

// MarshalJSON returns the object, or the first error met while building it.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range w.fields {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(f.key)
		b.Write(key)
		b.WriteByte(':')
		b.Write(f.value)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
