// Package source reads the edge and label streams of a dataset. Readers are
// single pass: Read returns io.EOF once the stream is exhausted.
package source

import (
	"errors"
	"fmt"
	"io"
)

// Edge is one (subject, relation, object) record. Ids are raw source ids
// and are normalized by the caller.
type Edge struct {
	Subject   string
	Predicate string
	Object    string

	// Literal marks objects that are text rather than entity ids.
	Literal bool
}

// Label names an entity.
type Label struct {
	Entity string
	Text   string
}

type EdgeReader interface {
	Read() (Edge, error)
	Close() error
}

type LabelReader interface {
	Read() (Label, error)
	Close() error
}

// Format names a supported on-disk layout.
type Format string

const (
	FormatTSV      Format = "tsv"
	FormatNTriples Format = "ntriples"
)

// Spec locates the files of one dataset.
type Spec struct {
	Format Format
	Edges  string
	Labels string

	// Header skips the first line of TSV files.
	Header bool
}

// Set is an opened dataset. Labels is nil when the dataset has none.
type Set struct {
	Edges  EdgeReader
	Labels LabelReader
}

// Close closes both readers.
func (s *Set) Close() error {
	var errs []error
	if s.Edges != nil {
		errs = append(errs, s.Edges.Close())
	}
	if s.Labels != nil {
		errs = append(errs, s.Labels.Close())
	}
	return errors.Join(errs...)
}

// Open opens the files named by spec.
func Open(spec Spec) (*Set, error) {
	if spec.Edges == "" {
		return nil, fmt.Errorf("no edges file")
	}

	edgesFile, err := OpenFile(spec.Edges)
	if err != nil {
		return nil, err
	}

	set := &Set{}
	switch spec.Format {
	case FormatTSV, "":
		set.Edges = NewTSVEdges(edgesFile, spec.Header)
	case FormatNTriples:
		set.Edges = NewNTriples(edgesFile)
	default:
		edgesFile.Close()
		return nil, fmt.Errorf("unknown format %q", spec.Format)
	}

	if spec.Labels != "" {
		labelsFile, err := OpenFile(spec.Labels)
		if err != nil {
			set.Close()
			return nil, err
		}
		set.Labels = NewTSVLabels(labelsFile, spec.Header)
	}

	return set, nil
}

// EdgeSlice serves edges from memory.
type EdgeSlice struct {
	edges []Edge
	pos   int
}

func NewEdgeSlice(edges []Edge) *EdgeSlice {
	return &EdgeSlice{edges: edges}
}

func (s *EdgeSlice) Read() (Edge, error) {
	if s.pos >= len(s.edges) {
		return Edge{}, io.EOF
	}
	e := s.edges[s.pos]
	s.pos++
	return e, nil
}

func (s *EdgeSlice) Close() error { return nil }

// LabelSlice serves labels from memory.
type LabelSlice struct {
	labels []Label
	pos    int
}

func NewLabelSlice(labels []Label) *LabelSlice {
	return &LabelSlice{labels: labels}
}

func (s *LabelSlice) Read() (Label, error) {
	if s.pos >= len(s.labels) {
		return Label{}, io.EOF
	}
	l := s.labels[s.pos]
	s.pos++
	return l, nil
}

func (s *LabelSlice) Close() error { return nil }
