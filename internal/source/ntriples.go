package source

import (
	"fmt"
	"io"

	"github.com/knakk/rdf"
)

// NTriples reads edges from an N-Triples stream. Literal objects come back
// with Literal set; IRIs and blank nodes are passed through verbatim.
type NTriples struct {
	dec rdf.TripleDecoder
	rc  io.ReadCloser
	n   int
}

func NewNTriples(rc io.ReadCloser) *NTriples {
	return &NTriples{dec: rdf.NewTripleDecoder(rc, rdf.NTriples), rc: rc}
}

func (n *NTriples) Read() (Edge, error) {
	tr, err := n.dec.Decode()
	if err == io.EOF {
		return Edge{}, io.EOF
	}
	if err != nil {
		return Edge{}, fmt.Errorf("triple %d: %w", n.n+1, err)
	}
	n.n++

	return Edge{
		Subject:   tr.Subj.String(),
		Predicate: tr.Pred.String(),
		Object:    tr.Obj.String(),
		Literal:   tr.Obj.Type() == rdf.TermLiteral,
	}, nil
}

func (n *NTriples) Close() error {
	return n.rc.Close()
}
