package graphcol

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/zeebo/blake3"

	"github.com/bowerhall/graphcol/internal/triple"
)

// FormatVersion is written into every chunk and manifest.
const FormatVersion = 1

// Chunk is the decoded form of a chunk file.
type Chunk struct {
	Version   int             `json:"version"`
	Namespace string          `json:"namespace"`
	Triples   []triple.Triple `json:"triples"`
}

// Encode serializes triples into a chunk payload. Field order is fixed, so the
// same input always produces the same bytes.
func Encode(triples []triple.Triple, namespace string) ([]byte, error) {
	if !utf8.ValidString(namespace) {
		return nil, &EncodingError{Index: -1, Err: fmt.Errorf("namespace is not valid UTF-8")}
	}

	for i, t := range triples {
		if err := validate(t); err != nil {
			return nil, &EncodingError{Index: i, Err: err}
		}
	}

	if triples == nil {
		triples = []triple.Triple{}
	}

	data, err := json.Marshal(Chunk{
		Version:   FormatVersion,
		Namespace: namespace,
		Triples:   triples,
	})
	if err != nil {
		return nil, &EncodingError{Index: -1, Err: err}
	}

	return data, nil
}

// validate rejects triples that json.Marshal would not write verbatim. Invalid
// UTF-8 would otherwise be replaced with U+FFFD.
func validate(t triple.Triple) error {
	for _, f := range [...]struct{ name, v string }{{"subject", t.S}, {"predicate", t.P}, {"tx", t.TX}} {
		if !utf8.ValidString(f.v) {
			return fmt.Errorf("%s is not valid UTF-8: %q", f.name, f.v)
		}
	}

	switch o := t.O.(type) {
	case triple.String:
		if !utf8.ValidString(string(o)) {
			return fmt.Errorf("string value is not valid UTF-8: %q", string(o))
		}
	case triple.Ref:
		if !utf8.ValidString(string(o)) {
			return fmt.Errorf("ref value is not valid UTF-8: %q", string(o))
		}
	case triple.Opaque:
		if !utf8.Valid(o.V) {
			return fmt.Errorf("tag %d: value is not valid UTF-8", o.T)
		}
	}

	_, err := triple.MarshalValue(t.O)
	return err
}

// Decode parses a chunk payload produced by Encode.
func Decode(data []byte) (*Chunk, error) {
	var c Chunk
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode chunk: %w", err)
	}

	if c.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported chunk version %d", c.Version)
	}

	return &c, nil
}

// Checksum returns the hex blake3 digest of a payload.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return fmt.Sprintf("%x", sum[:])
}
