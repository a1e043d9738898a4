package graphcol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/bowerhall/graphcol/internal/triple"
)

const testNamespace = "https://wikidata.org/"

func sampleTriples() []triple.Triple {
	return []triple.Triple{
		{S: testNamespace + "entity/Q1", P: "P31", O: triple.Ref(testNamespace + "entity/Q42"), TS: 1700000000000, TX: "01HF0000000000000000000000"},
		{S: testNamespace + "entity/Q42", P: "label", O: triple.String("Douglas Adams"), TS: 1700000000000, TX: "01HF0000000000000000000000"},
		{S: testNamespace + "entity/Q42", P: "P2048", O: triple.Opaque{T: 3, V: json.RawMessage(`1.96`)}, TS: 1700000000000, TX: "01HF0000000000000000000000"},
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	in := sampleTriples()

	data, err := Encode(in, testNamespace)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	chunk, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if chunk.Version != FormatVersion {
		t.Errorf("expected version %d, got %d", FormatVersion, chunk.Version)
	}
	if chunk.Namespace != testNamespace {
		t.Errorf("expected namespace %s, got %s", testNamespace, chunk.Namespace)
	}
	if len(chunk.Triples) != len(in) {
		t.Fatalf("expected %d triples, got %d", len(in), len(chunk.Triples))
	}
	for i := range in {
		if !triple.Equal(in[i], chunk.Triples[i]) {
			t.Errorf("triple %d differs: %+v != %+v", i, in[i], chunk.Triples[i])
		}
	}
}

func TestEncodeEntityRefScenario(t *testing.T) {
	in := []triple.Triple{{
		S:  "https://wikidata.org/entity/Q1",
		P:  "P50",
		O:  triple.Ref("https://wikidata.org/entity/Q42"),
		TS: 1,
		TX: "01HF0000000000000000000000",
	}}

	data, err := Encode(in, testNamespace)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	chunk, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	ref, ok := chunk.Triples[0].O.(triple.Ref)
	if !ok {
		t.Fatalf("expected Ref, got %T", chunk.Triples[0].O)
	}
	if ref != "https://wikidata.org/entity/Q42" {
		t.Errorf("unexpected ref %s", ref)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	a, err := Encode(sampleTriples(), testNamespace)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := Encode(sampleTriples(), testNamespace)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if string(a) != string(b) {
		t.Error("expected identical output for identical input")
	}
	if !strings.HasPrefix(string(a), `{"version":1,"namespace":"https://wikidata.org/","triples":[{"s":`) {
		t.Errorf("unexpected layout: %.80s", a)
	}
}

func TestEncodeDoesNotMutateInput(t *testing.T) {
	in := sampleTriples()
	before := sampleTriples()

	if _, err := Encode(in, testNamespace); err != nil {
		t.Fatalf("encode: %v", err)
	}

	for i := range in {
		if !triple.Equal(in[i], before[i]) {
			t.Errorf("triple %d was modified", i)
		}
	}
}

func TestEncodeRejectsBrokenValue(t *testing.T) {
	in := sampleTriples()
	in[1].O = triple.Opaque{T: 8, V: json.RawMessage(`{nope`)}

	_, err := Encode(in, testNamespace)

	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
	if encErr.Index != 1 {
		t.Errorf("expected index 1, got %d", encErr.Index)
	}
}

func TestEncodeRejectsInvalidUTF8(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*triple.Triple)
	}{
		{"string value", func(tr *triple.Triple) { tr.O = triple.String("caf\xe9") }},
		{"ref value", func(tr *triple.Triple) { tr.O = triple.Ref(testNamespace + "entity/Q\xff") }},
		{"opaque value", func(tr *triple.Triple) { tr.O = triple.Opaque{T: 7, V: json.RawMessage("\"\xe9\"")} }},
		{"subject", func(tr *triple.Triple) { tr.S = "\xc3\x28" }},
		{"predicate", func(tr *triple.Triple) { tr.P = "P\x80" }},
		{"tx", func(tr *triple.Triple) { tr.TX = "01HF\xfe" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sampleTriples()
			tt.mutate(&in[2])

			data, err := Encode(in, testNamespace)

			var encErr *EncodingError
			if !errors.As(err, &encErr) {
				t.Fatalf("expected EncodingError, got data=%s err=%v", data, err)
			}
			if encErr.Index != 2 {
				t.Errorf("expected index 2, got %d", encErr.Index)
			}
		})
	}
}

func TestEncodeKeepsMultibyteText(t *testing.T) {
	in := []triple.Triple{{S: "s", P: "label", O: triple.String("café 東京 🦀"), TX: "tx"}}

	data, err := Encode(in, testNamespace)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !triple.Equal(in[0], out.Triples[0]) {
		t.Errorf("round trip changed the triple: %+v", out.Triples[0])
	}
}

func TestEncodeEmpty(t *testing.T) {
	data, err := Encode(nil, testNamespace)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `"triples":[]`) {
		t.Errorf("expected empty triples array, got %s", data)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	if _, err := Decode([]byte(`{"version":2,"namespace":"x","triples":[]}`)); err == nil {
		t.Error("expected error for version 2")
	}
}

func TestChecksumStable(t *testing.T) {
	a := Checksum([]byte("chunk"))
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a != Checksum([]byte("chunk")) {
		t.Error("checksum should be stable")
	}
	if a == Checksum([]byte("chunk2")) {
		t.Error("different input should give different checksum")
	}
}

func TestPaths(t *testing.T) {
	if got := ChunkPath("wikidata/humans", 0); got != "datasets/wikidata/humans/chunks/chunk_000000.graphcol" {
		t.Errorf("unexpected chunk path %s", got)
	}
	if got := ChunkPath("films", 123456); got != "datasets/films/chunks/chunk_123456.graphcol" {
		t.Errorf("unexpected chunk path %s", got)
	}
	if got := ManifestPath("wikidata/humans"); got != "datasets/wikidata/humans/index.json" {
		t.Errorf("unexpected manifest path %s", got)
	}
}
