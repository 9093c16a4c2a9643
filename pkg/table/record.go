// Package table implements the on-disk table store. Every table is a
// single encrypted file holding an ordered sequence of Records, rewritten
// in full on every committed mutation (no page-level update exists by
// design).
package table

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"github.com/elliotchance/orderedmap"

	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
)

// IDField is the name every Record is keyed by.
const IDField = "id"

// Record is an ordered mapping from field name to JSON-typed value,
// backed by an ordered map rather than a plain Go map whose iteration
// order is unspecified.
type Record struct {
	fields *orderedmap.OrderedMap
}

// NewRecord builds an empty record.
func NewRecord() *Record {
	return &Record{fields: orderedmap.NewOrderedMap()}
}

// RecordFromMap builds a record from an already-decoded JSON object,
// with fields in the order given by order (keys absent from raw are skipped).
func RecordFromMap(raw map[string]json.RawMessage, order []string) *Record {
	r := NewRecord()
	for _, k := range order {
		if v, ok := raw[k]; ok {
			r.fields.Set(k, v)
		}
	}
	return r
}

// ID returns the record's id field, or "" if unset.
func (r *Record) ID() string {
	v, ok := r.Get(IDField)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// SetID sets the record's id field.
func (r *Record) SetID(id string) { r.Set(IDField, id) }

// Get returns the decoded value for field, and whether it was present.
func (r *Record) Get(field string) (any, bool) {
	raw, ok := r.fields.Get(field)
	if !ok {
		return nil, false
	}
	msg, ok := raw.(json.RawMessage)
	if !ok {
		return raw, true
	}
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return nil, false
	}
	return v, true
}

// Set assigns value to field, appending it to the field order if new.
func (r *Record) Set(field string, value any) {
	r.fields.Set(field, value)
}

// Delete removes field from the record.
func (r *Record) Delete(field string) {
	r.fields.Delete(field)
}

// Keys returns the record's field names in insertion order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, r.fields.Len())
	for el := r.fields.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key.(string))
	}
	return keys
}

// Clone returns a deep-enough copy: a new ordered map holding the same
// field values, safe to mutate independently of r.
func (r *Record) Clone() *Record {
	out := NewRecord()
	for el := r.fields.Front(); el != nil; el = el.Next() {
		out.fields.Set(el.Key, el.Value)
	}
	return out
}

// MarshalJSON renders the record as a JSON object, preserving field order
// (Go's encoding/json does not guarantee map order, so this is written by
// hand rather than delegating to a plain map).
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf []byte
	buf = append(buf, '{')
	first := true
	for el := r.fields.Front(); el != nil; el = el.Next() {
		if !first {
			buf = append(buf, ',')
		}
		first = false

		key, err := json.Marshal(el.Key.(string))
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')

		val, err := marshalFieldValue(el.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, val...)
	}
	buf = append(buf, '}')
	return buf, nil
}

func marshalFieldValue(v any) ([]byte, error) {
	if raw, ok := v.(json.RawMessage); ok {
		if len(raw) == 0 {
			return []byte("null"), nil
		}
		return raw, nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON decodes a JSON object into the record, preserving the
// field order the object was written in.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return &dberrors.FormatError{Op: "record.unmarshal", Reason: err.Error()}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return &dberrors.FormatError{Op: "record.unmarshal", Reason: "expected a JSON object"}
	}

	r.fields = orderedmap.NewOrderedMap()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return &dberrors.FormatError{Op: "record.unmarshal", Reason: err.Error()}
		}
		key, ok := keyTok.(string)
		if !ok {
			return &dberrors.FormatError{Op: "record.unmarshal", Reason: "expected a string key"}
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return &dberrors.FormatError{Op: "record.unmarshal", Reason: err.Error()}
		}
		r.fields.Set(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return &dberrors.FormatError{Op: "record.unmarshal", Reason: err.Error()}
	}
	return nil
}

// GenerateID returns a fresh 128-bit identifier rendered as lowercase
// hex, used when an inserted row carries no id of its own.
func GenerateID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", &dberrors.IOError{Op: "record.generate_id", Err: err}
	}
	return hex.EncodeToString(buf), nil
}
