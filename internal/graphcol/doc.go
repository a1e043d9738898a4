// Package graphcol turns a stream of triples into bounded, immutable chunk
// files plus a manifest.
//
// A dataset is laid out as
//
//	datasets/<dataset>/chunks/chunk_000000.graphcol
//	datasets/<dataset>/chunks/chunk_000001.graphcol
//	...
//	datasets/<dataset>/index.json
//
// Chunks are JSON documents {"version":1,"namespace":...,"triples":[...]}.
// The manifest is written last and is the only way a loader learns how many
// chunks exist; a dataset without a manifest is incomplete.
package graphcol
