package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const edgesTSV = "# subject\tpredicate\tobject\n42\t31\t5\n\n1\t279\t42\r\nQ7\tlabel\tQ8\n"

func readAllEdges(t *testing.T, r EdgeReader) []Edge {
	t.Helper()
	var out []Edge
	for {
		e, err := r.Read()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		out = append(out, e)
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestTSVEdges(t *testing.T) {
	r := NewTSVEdges(io.NopCloser(bytes.NewBufferString(edgesTSV)), false)
	edges := readAllEdges(t, r)

	want := []Edge{
		{Subject: "42", Predicate: "31", Object: "5"},
		{Subject: "1", Predicate: "279", Object: "42"},
		{Subject: "Q7", Predicate: "label", Object: "Q8"},
	}

	if len(edges) != len(want) {
		t.Fatalf("expected %d edges, got %d: %+v", len(want), len(edges), edges)
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d: got %+v, want %+v", i, edges[i], want[i])
		}
	}
}

func TestTSVHeaderSkipped(t *testing.T) {
	r := NewTSVEdges(io.NopCloser(bytes.NewBufferString("head\trel\ttail\n1\t2\t3\n")), true)
	edges := readAllEdges(t, r)

	if len(edges) != 1 || edges[0].Subject != "1" {
		t.Errorf("unexpected edges %+v", edges)
	}
}

func TestTSVWrongFieldCount(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"short", "4\t5\n"},
		{"long", "4\t5\t6\t7\n"},
		{"trailing tab", "4\t5\t6\t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewTSVEdges(io.NopCloser(bytes.NewBufferString("1\t2\t3\n"+tt.line)), false)

			if _, err := r.Read(); err != nil {
				t.Fatalf("first read: %v", err)
			}
			_, err := r.Read()
			if err == nil || err == io.EOF {
				t.Fatalf("expected parse error, got %v", err)
			}
			if !strings.Contains(err.Error(), "line 2") {
				t.Errorf("error should name the line: %v", err)
			}
		})
	}
}

func TestTSVLabels(t *testing.T) {
	r := NewTSVLabels(io.NopCloser(bytes.NewBufferString("42\tDouglas Adams\n7\tTab\tin label\n")), false)

	l, err := r.Read()
	if err != nil || l != (Label{Entity: "42", Text: "Douglas Adams"}) {
		t.Fatalf("unexpected label %+v %v", l, err)
	}

	l, err = r.Read()
	if err != nil || l.Text != "Tab\tin label" {
		t.Fatalf("unexpected label %+v %v", l, err)
	}

	if _, err := r.Read(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestOpenCompressed(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write([]byte(edgesTSV))
	zw.Close()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	zst := enc.EncodeAll([]byte(edgesTSV), nil)
	enc.Close()

	for name, data := range map[string][]byte{
		"edges.tsv":     []byte(edgesTSV),
		"edges.tsv.gz":  gz.Bytes(),
		"edges.tsv.zst": zst,
	} {
		t.Run(name, func(t *testing.T) {
			set, err := Open(Spec{Format: FormatTSV, Edges: writeFile(t, name, data)})
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer set.Close()

			if set.Labels != nil {
				t.Error("expected no labels reader")
			}
			if n := len(readAllEdges(t, set.Edges)); n != 3 {
				t.Errorf("expected 3 edges, got %d", n)
			}
		})
	}
}

func TestOpenWithLabels(t *testing.T) {
	set, err := Open(Spec{
		Edges:  writeFile(t, "edges.tsv", []byte("1\t2\t3\n")),
		Labels: writeFile(t, "labels.tsv", []byte("1\tone\n")),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer set.Close()

	l, err := set.Labels.Read()
	if err != nil || l.Text != "one" {
		t.Errorf("unexpected label %+v %v", l, err)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(Spec{}); err == nil {
		t.Error("expected error without edges")
	}
	if _, err := Open(Spec{Edges: filepath.Join(t.TempDir(), "missing.tsv")}); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Open(Spec{Format: "parquet", Edges: writeFile(t, "e.tsv", []byte("1\t2\t3\n"))}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNTriples(t *testing.T) {
	doc := `<https://wikidata.org/entity/Q42> <https://wikidata.org/prop/direct/P31> <https://wikidata.org/entity/Q5> .
<https://wikidata.org/entity/Q42> <http://www.w3.org/2000/01/rdf-schema#label> "Douglas Adams"@en .
`
	set, err := Open(Spec{Format: FormatNTriples, Edges: writeFile(t, "q42.nt", []byte(doc))})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer set.Close()

	edges := readAllEdges(t, set.Edges)
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}

	if edges[0].Object != "https://wikidata.org/entity/Q5" || edges[0].Literal {
		t.Errorf("unexpected first edge %+v", edges[0])
	}
	if edges[1].Object != "Douglas Adams" || !edges[1].Literal {
		t.Errorf("unexpected second edge %+v", edges[1])
	}
	if edges[1].Predicate != "http://www.w3.org/2000/01/rdf-schema#label" {
		t.Errorf("unexpected predicate %s", edges[1].Predicate)
	}
}

func TestSliceReaders(t *testing.T) {
	es := NewEdgeSlice([]Edge{{Subject: "a"}})
	if e, err := es.Read(); err != nil || e.Subject != "a" {
		t.Errorf("unexpected %+v %v", e, err)
	}
	if _, err := es.Read(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}

	ls := NewLabelSlice(nil)
	if _, err := ls.Read(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}
