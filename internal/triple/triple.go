// Package triple defines the subject-predicate-object statements written into
// graphcol chunks and their wire encoding.
package triple

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Tag identifies the type of an object value on the wire.
type Tag int

const (
	TagString Tag = 5
	TagRef    Tag = 10
)

// Value is the object position of a triple.
type Value interface {
	Tag() Tag
	value()
}

// String is a plain text literal.
type String string

// Ref is a reference to another entity by IRI.
type Ref string

// Opaque carries a value with a tag this package does not interpret. V holds
// the raw JSON of the value so it is written back unchanged.
type Opaque struct {
	T Tag
	V json.RawMessage
}

func (String) Tag() Tag   { return TagString }
func (Ref) Tag() Tag      { return TagRef }
func (o Opaque) Tag() Tag { return o.T }

func (String) value() {}
func (Ref) value()    {}
func (Opaque) value() {}

// Triple is one statement. TS is epoch milliseconds and TX the transaction id
// shared by every triple of a run.
type Triple struct {
	S  string
	P  string
	O  Value
	TS int64
	TX string
}

type wireValue struct {
	T Tag             `json:"t"`
	V json.RawMessage `json:"v"`
}

type wireTriple struct {
	S  string    `json:"s"`
	P  string    `json:"p"`
	O  wireValue `json:"o"`
	TS int64     `json:"ts"`
	TX string    `json:"tx"`
}

// MarshalValue returns the {"t":..,"v":..} form of v.
func MarshalValue(v Value) ([]byte, error) {
	w, err := toWire(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func toWire(v Value) (wireValue, error) {
	switch val := v.(type) {
	case nil:
		return wireValue{}, fmt.Errorf("missing object value")
	case String:
		raw, err := json.Marshal(string(val))
		return wireValue{T: TagString, V: raw}, err
	case Ref:
		raw, err := json.Marshal(string(val))
		return wireValue{T: TagRef, V: raw}, err
	case Opaque:
		if val.T < 0 {
			return wireValue{}, fmt.Errorf("negative type tag %d", val.T)
		}
		if len(val.V) == 0 || !json.Valid(val.V) {
			return wireValue{}, fmt.Errorf("tag %d: value is not valid JSON", val.T)
		}
		return wireValue{T: val.T, V: val.V}, nil
	default:
		return wireValue{}, fmt.Errorf("unsupported value type %T", v)
	}
}

func fromWire(w wireValue) (Value, error) {
	switch w.T {
	case TagString, TagRef:
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return nil, fmt.Errorf("tag %d: %w", w.T, err)
		}
		if w.T == TagString {
			return String(s), nil
		}
		return Ref(s), nil
	default:
		if len(w.V) == 0 {
			return nil, fmt.Errorf("tag %d: missing value", w.T)
		}
		raw := make(json.RawMessage, len(w.V))
		copy(raw, w.V)
		return Opaque{T: w.T, V: raw}, nil
	}
}

func (t Triple) MarshalJSON() ([]byte, error) {
	o, err := toWire(t.O)
	if err != nil {
		return nil, fmt.Errorf("triple %s %s: %w", t.S, t.P, err)
	}

	return json.Marshal(wireTriple{S: t.S, P: t.P, O: o, TS: t.TS, TX: t.TX})
}

func (t *Triple) UnmarshalJSON(data []byte) error {
	var w wireTriple
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	o, err := fromWire(w.O)
	if err != nil {
		return fmt.Errorf("triple %s %s: %w", w.S, w.P, err)
	}

	*t = Triple{S: w.S, P: w.P, O: o, TS: w.TS, TX: w.TX}
	return nil
}

// Equal reports whether two triples are identical field for field. Opaque
// values compare by their compacted JSON.
func Equal(a, b Triple) bool {
	if a.S != b.S || a.P != b.P || a.TS != b.TS || a.TX != b.TX {
		return false
	}

	return ValuesEqual(a.O, b.O)
}

// ValuesEqual compares two object values.
func ValuesEqual(a, b Value) bool {
	oa, aok := a.(Opaque)
	ob, bok := b.(Opaque)
	if aok && bok {
		if oa.T != ob.T {
			return false
		}
		var ca, cb bytes.Buffer
		if json.Compact(&ca, oa.V) != nil || json.Compact(&cb, ob.V) != nil {
			return false
		}
		return bytes.Equal(ca.Bytes(), cb.Bytes())
	}
	if aok || bok {
		return false
	}

	return a == b
}

// EntityIRI turns a numeric source id into <namespace>entity/Q<id>. Anything
// else is already an identifier and is returned as is.
func EntityIRI(namespace, id string) string {
	if isNumeric(id) {
		return namespace + "entity/Q" + id
	}
	return id
}

// PredicateCode turns a numeric relation id into P<id>.
func PredicateCode(id string) string {
	if isNumeric(id) {
		return "P" + id
	}
	return id
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
